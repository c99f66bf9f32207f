// Package apistub is an in-process fake of the reuse marketplace API used by
// tests and by cmd/reuse-devapi for local development.
//
// Routes (all JSON, errors as {"detail": "..."}):
//
//	GET  /api/health
//	POST /api/auth/register     201 user, 409 duplicate email
//	POST /api/auth/login        200 {access_token, token_type}, 401, 429
//	GET  /api/listings          listings created so far
//	POST /api/listings          bearer, 201 listing, 422 invalid
//	POST /api/listings/upload   bearer, multipart "files", 200 [url, ...]
//	GET  /media/:name
//
// State lives in memory. Passwords are hashed with [password.Argon2],
// credentials are minted by [token.Manager], and failed logins are throttled
// by internal/rate when a Redis client is supplied.
//
// # What this package must NOT do
//
//   - Persist anything to disk.
//   - Be used as a production backend.
package apistub
