package attempts

import "errors"

var (
	// ErrStoreUnavailable indicates the attempt store could not be read or written.
	ErrStoreUnavailable = errors.New("attempt store unavailable")
	// ErrEmptyIdentifier is returned for an empty identifier.
	ErrEmptyIdentifier = errors.New("attempt identifier is empty")
)
