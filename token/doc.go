// Package token reads and mints the bearer credentials carried by the reuse app.
//
// # Local expiry checks
//
// [DecodePayload] and [IsExpired] inspect a credential's claims without verifying
// its signature and without contacting any server. They never panic: malformed
// input yields [ErrMalformed] from DecodePayload and "not expired" from IsExpired.
//
// A credential without an exp claim is treated as never expiring. This is an
// explicit policy inherited from the mobile client, not an accident of parsing.
//
// # Issuance
//
// [Manager] signs and verifies credentials. Only the fake API server and tests use
// it; the session gate never holds signing keys.
//
// # What this package must NOT do
//
//   - Persist credentials (see package tokenstore).
//   - Make routing or session decisions.
package token
