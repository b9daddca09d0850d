// Package recipe stores versioned lane recipes in SQLite.
//
// A recipe arrives as a loosely typed JSON payload that still uses the
// bench's legacy flat keys (cycletype, fixedholdtime, autopinbreaktime, ...).
// ParsePayload maps it onto typed columns, and the per-step arrays become
// rows in recipe_pinbreak_steps.
//
// Every accepted payload is identified by the SHA-256 of its canonical JSON.
// Store.Upsert is idempotent on that hash: posting the active recipe again is
// a no-op, posting anything else deactivates the old version and inserts a
// new active one. History is never deleted.
//
// The store does not push recipes to hardware.
package recipe
