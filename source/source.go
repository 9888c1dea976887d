package source

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

const (
	// DefaultRole is assigned when a source row carries no role.
	DefaultRole = "operator"
	// AdminRole is the role of the bootstrap administrator.
	AdminRole = "admin"
)

var (
	// ErrUnavailable marks a transport, decode or driver failure. The
	// authenticate flow treats it as "this source found nothing".
	ErrUnavailable = errors.New("credential source unavailable")
	// ErrTokenRejected is returned by a TokenExchanger when the upstream
	// refused the credentials.
	ErrTokenRejected = errors.New("token exchange rejected")
)

// Record is one row returned by a source lookup.
type Record struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// Source looks up a user row by email and names the verifiers that may
// accept a password for that row, in order.
type Source interface {
	Name() string
	// Lookup returns (nil, nil) when no row matches.
	Lookup(ctx context.Context, email string) (*Record, error)
	Verifiers() []Verifier
}

// Verifier checks a password against a row found by its source.
type Verifier interface {
	Name() string
	Verify(ctx context.Context, password string, rec *Record) (bool, error)
}

// NormalizeEmail rewrites every whitespace rune to '+'. Form-encoded
// submissions turn '+' into a space; this undoes it.
func NormalizeEmail(email string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '+'
		}
		return r
	}, email)
}
