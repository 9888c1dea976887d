package password

import "strings"

// Hasher produces and checks hashes in one format.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
	NeedsUpgrade(hash string) (bool, error)
}

var (
	_ Hasher = (*Argon2)(nil)
	_ Hasher = (*Bcrypt)(nil)
)

// Compare checks plaintext against a stored hash of any supported format.
// Both branches compare in constant time with respect to the password.
//
// A false result with a nil error is a plain mismatch. Errors mean the hash
// itself could not be used.
func Compare(plaintext, hash string) (bool, error) {
	switch {
	case hash == "":
		return false, ErrUnsupportedHash
	case isBcrypt(hash):
		return verifyBcrypt(plaintext, hash)
	case strings.HasPrefix(hash, argon2Prefix):
		if len(plaintext) > DefaultMaxPasswordBytes {
			return false, ErrPasswordTooLong
		}
		return verifyArgon2(plaintext, hash)
	default:
		return false, ErrUnsupportedHash
	}
}
