// Package password owns password hashing, hash verification and the password
// strength policy.
//
// # Hash formats
//
// [Compare] accepts the two formats credential sources are expected to hold:
//
//	$2a$ / $2b$ / $2y$             bcrypt (golang.org/x/crypto/bcrypt)
//	$argon2id$v=19$m=..,t=..,p=..$  argon2id in PHC string format
//
// Anything else is reported as [ErrUnsupportedHash]. Callers treat that the
// same as a mismatch.
//
// # Policy
//
// [Validate] evaluates every rule of a [Policy] and returns one message per
// violated rule so a form can show all problems at once. It performs no I/O.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and hashes.
//   - Import any other goCred package.
//   - Log plaintext passwords or hash parameters.
package password
