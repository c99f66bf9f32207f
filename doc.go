// Package gate is the client-side session gate of the reuse marketplace app.
//
// A [Gate] decides, on mount, on focus and on every route change, whether the
// stored bearer credential is present and unexpired, and redirects between the
// login screen and the home screen accordingly. Expired credentials are removed
// from the store as a side effect of checking them.
//
// # Concurrency model
//
// Each Gate runs one event-loop goroutine that owns all mutable state. Triggers
// ([Gate.Mount], [Gate.Focus], [Gate.PathChanged]) enqueue events; store reads
// run on worker goroutines and post their completion back to the loop. Readers
// use [Gate.Snapshot] or [Gate.Subscribe] and never mutate state.
//
// At most one redirect is in flight: the guard is taken before
// [Navigator.Navigate] is called and released by an event queued after it
// returns. Redirect requests that arrive while the guard is held are dropped.
//
// # Ordering
//
// By default the check that completes last wins, even if it started first.
// [OrderingStrict] discards completions older than the newest applied one.
// Completions from a previous mount are always discarded.
//
// # Failure policy
//
// Storage and decode failures are logged and treated as "no credential". No
// error escapes the event loop.
//
// # What this package must NOT do
//
//   - Verify credential signatures (the server does that).
//   - Block inside Navigate callbacks.
//   - Log credential values.
package gate
