// Package bus defines the request/response transport contract between the
// host and the boards, and ships an in-process Simulator.
//
// A Bus carries one request frame and returns at most one response frame.
// "No response" (timeout, undecodable reply, transport fault) is reported as
// ok=false; a Bus never panics and never returns an error across the
// boundary. Callers treat every failed exchange the same way: log it and
// try again on the next poll.
//
// The production RS-485 transport lives outside this module and only needs
// to satisfy the Bus interface.
package bus
