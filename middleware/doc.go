// Package middleware guards HTTP routes with bearer credentials issued by
// [token.Manager].
//
// # Guards
//
//   - [Bearer]: net/http middleware.
//   - [Gin]: the same guard bridged into a gin handler chain.
//
// Each guard reads the Authorization header, verifies it with Manager.Parse,
// and injects the verified claims into the request context. Rejections are
// answered with 401 and a JSON body of the form {"detail": "..."}.
//
// # What this package must NOT do
//
//   - Mint credentials.
//   - Make authorization decisions beyond pass or reject.
package middleware
