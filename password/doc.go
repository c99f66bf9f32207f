// Package password hashes and verifies account passwords with Argon2id.
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verify reads the cost parameters from the stored hash, so raising Config
// does not invalidate existing hashes. The fake API server stores its users'
// passwords with this package.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Log plaintext passwords.
package password
