// Package registry holds the latest known status of every configured board.
//
// The registry is split into two handles created together by New:
//
//   - *Registry is the read side. Any number of goroutines (HTTP handlers,
//     the safety gate, status publishers) may call it concurrently without
//     locking.
//   - *Writer is the only way to record a status. It is handed to the poll
//     scheduler and nobody else, so there is exactly one writer.
//
// Each write publishes a fresh immutable state through an atomic pointer,
// so a reader always sees a complete state, either the one before a write
// or the one after it.
//
// Addresses are fixed at construction. An address that has never been
// polled successfully reports Online=false and nil status fields; entries
// are never removed.
package registry
