// Package audit relays session-gate events to a caller-supplied sink without
// blocking the gate's event loop.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, no-op).
//   - [Dispatcher]: buffered async relay, dropping or blocking when full.
//   - [Event]: one redirect, credential clear, login or logout.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the gate does that.
//   - Import the gate package or any sibling internal package.
package audit
