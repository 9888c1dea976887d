package goCred

import (
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/source"
)

const (
	// DefaultRole is assigned when the matching row carries no role.
	DefaultRole = source.DefaultRole
	// AdminRole is the role of the bootstrap administrator.
	AdminRole = source.AdminRole
)

// Identity is the result of a successful authentication. It never carries
// the password or its hash.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`

	// Source names the credential source that matched, Verifier the check
	// that accepted the password. Neither is serialized.
	Source    string `json:"-"`
	Verifier  string `json:"-"`
	AttemptID string `json:"-"`
}

// LoginRequest is the input to [Engine.Login]. Identifier is the lockout key;
// when empty the client IP from the context is used, then the email.
type LoginRequest struct {
	Identifier string
	Email      string
	Password   string
}

// LoginResult carries the identity and the attempt bookkeeping for one login.
// Identifier is the lockout key that was used. Remaining is the number of
// failures left before lockout and is only meaningful after a failure.
type LoginResult struct {
	Identity   *Identity
	Identifier string
	Remaining  int
}

// AttemptResult is returned by [Engine.RecordAttempt].
type AttemptResult struct {
	Blocked   bool
	Remaining int
}

// CredentialSource is a user row provider consulted by Authenticate.
type CredentialSource = source.Source

// CredentialVerifier checks a password against a row.
type CredentialVerifier = source.Verifier

// CredentialRecord is one row returned by a [CredentialSource].
type CredentialRecord = source.Record

// PasswordPolicy describes password strength rules.
type PasswordPolicy = password.Policy

// PasswordValidation is the outcome of [Engine.ValidatePassword].
type PasswordValidation = password.ValidationResult

// DefaultPasswordPolicy returns min 8, max 128, all character classes and
// the common forbidden patterns.
func DefaultPasswordPolicy() PasswordPolicy {
	return password.DefaultPolicy()
}
