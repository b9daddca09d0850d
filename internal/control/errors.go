package control

import "errors"

var (
	// ErrUnknownLane is returned for an address that is not a configured lane.
	ErrUnknownLane = errors.New("control: unknown lane")

	// ErrUnknownCommand is returned for an unrecognised command name.
	ErrUnknownCommand = errors.New("control: unknown command")

	// ErrInvalidParameter is returned when a command parameter is missing
	// or out of range.
	ErrInvalidParameter = errors.New("control: invalid parameter")

	// ErrNotReady is returned when an energising command is refused because
	// the safety gate is not ready.
	ErrNotReady = errors.New("control: system not ready")

	// ErrNotAcknowledged is returned when a board answers a command with
	// something other than an ACK.
	ErrNotAcknowledged = errors.New("control: command not acknowledged")
)
