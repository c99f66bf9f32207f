// Package client talks to the reuse marketplace API.
//
// A [Client] is safe for concurrent use. Every request carries an X-Request-ID
// header and, when a [TokenSource] yields a credential, a bearer Authorization
// header. Connectivity failures are reported as [*NetworkError] (matching
// [ErrNetwork]); non-2xx responses as [*ServerError], which matches
// [ErrAuthRejected] for status 401.
package client
