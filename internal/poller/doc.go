// Package poller runs the background loop that keeps the device registry
// fresh.
//
// # Cycle
//
// Every period (1 / max(PollHz, 0.1) seconds) the Scheduler:
//
//  1. Requests utility board status and records it. The utility board
//     carries the e-stop chain, so it is polled on every cycle.
//  2. Requests status from exactly one lane, advancing a round-robin
//     cursor, so bus load stays flat however many lanes are configured.
//  3. Executes up to MaxCommandsPerCycle queued commands (see Submit).
//  4. Sleeps for the rest of the period. The sleep is interruptible.
//
// A failed exchange (no response, wrong type, short payload) is logged at
// debug level and the cycle carries on. Nothing a board sends can stop
// the loop.
//
// # Ownership
//
// The Scheduler goroutine is the only code that talks to the bus and the
// only holder of the registry Writer. Commands from the API are queued and
// executed by the same goroutine so they never interleave with polls on the
// shared wire.
//
// # Lifecycle
//
//	s, err := poller.New(cfg, sim, poller.Options{Logger: log})
//	s.Start(ctx)
//	defer s.Stop()
//
// Start is idempotent. Stop waits up to StopTimeout for the loop to exit and
// never aborts a bus exchange already in flight.
package poller
