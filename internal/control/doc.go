// Package control turns named operator commands into board frames and runs
// them through the poll scheduler.
//
// A command is a name plus a small parameter map, as it arrives from the
// HTTP API:
//
//	POST /api/lanes/2/commands/stir   {"on": true, "speed": 1200}
//
// The Controller validates the target address against the configured lanes,
// builds the frame with package device, checks the safety interlock, and
// submits the frame to the scheduler queue so it shares the bus with the
// polls instead of racing them.
//
// # Interlock
//
// Commands that energise an actuator (open a valve, start a pump or the
// stirrer, move the lid or arm, start a cycle) require the safety gate to
// report ready. Commands that only de-energise or reset (stop, initialize,
// recover, close, off) are always accepted so an operator can bring the
// system to a safe state while it is not ready.
package control
