package poller

import "errors"

var (
	// ErrNotRunning is returned by Submit when the scheduler is stopped.
	ErrNotRunning = errors.New("poller: scheduler not running")

	// ErrQueueFull is returned by Submit when the command queue is full.
	ErrQueueFull = errors.New("poller: command queue full")

	// ErrNoResponse is returned by Submit when the board did not answer.
	ErrNoResponse = errors.New("poller: no response from device")

	// ErrStopTimeout is returned by Stop when the loop did not exit in time.
	ErrStopTimeout = errors.New("poller: timed out waiting for loop to stop")

	// ErrStillStopping is returned by Start while a previous loop is still
	// finishing its last exchange.
	ErrStillStopping = errors.New("poller: previous loop still stopping")
)
