// Package tokenstore persists the single bearer credential held by the client.
//
// # Contract
//
// Every [Store] holds at most one credential. Read returns ("", nil) when nothing
// is stored; absence is never an error. Clear on an empty store succeeds. Any
// backend failure is wrapped with [ErrUnavailable] so callers can fail open to
// the logged-out state.
//
// # Implementations
//
//   - [MemoryStore]: process memory, for tests and throwaway sessions.
//   - [FileStore]: a single 0600 file, written by atomic rename.
//   - [RedisStore]: one Redis key, for clients that share a credential across processes.
//
// # What this package must NOT do
//
//   - Decode or validate credentials (see package token).
//   - Log credential values.
package tokenstore
