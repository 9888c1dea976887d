package password

import "errors"

var (
	// ErrUnsupportedHash is returned when a stored hash is in no known format.
	ErrUnsupportedHash = errors.New("unsupported password hash format")
	// ErrMalformedHash is returned when a hash has a known prefix but cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrPasswordTooLong is returned when plaintext exceeds the hasher's byte limit.
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
	// ErrPasswordEmpty is returned when hashing an empty password.
	ErrPasswordEmpty = errors.New("password is empty")
	// ErrPasswordPolicy wraps the messages of a failed [Validate] call.
	ErrPasswordPolicy = errors.New("password policy violation")
)
