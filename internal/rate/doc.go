// Package rate throttles failed logins on the fake API server with Redis
// counters.
//
// # Window semantics
//
// Fixed-window counters: INCR plus EXPIRE on the first hit. Keys:
//
//	<prefix>:rl:login:<email>   failed logins per account
//	<prefix>:rl:ip:<ip>         failed logins per client IP
//
// # What this package must NOT do
//
//   - Decide whether credentials are valid.
//   - Be imported by the session gate or client; it serves the test double only.
package rate
