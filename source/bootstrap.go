package source

import (
	"context"
	"crypto/subtle"
	"strings"
)

// BootstrapID is the identity ID reported for the bootstrap administrator.
const BootstrapID = "bootstrap-admin"

// Bootstrap is a single statically configured administrator, consulted last
// so operators can still sign in when no user store is reachable.
type Bootstrap struct {
	email    string
	password string
}

// NewBootstrap returns nil when either value is empty.
func NewBootstrap(email, password string) *Bootstrap {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil
	}
	return &Bootstrap{email: email, password: password}
}

func (b *Bootstrap) Name() string { return "bootstrap" }

// Lookup matches the configured email case-insensitively.
func (b *Bootstrap) Lookup(_ context.Context, email string) (*Record, error) {
	if !strings.EqualFold(email, b.email) {
		return nil, nil
	}
	return &Record{
		ID:    BootstrapID,
		Email: b.email,
		Name:  "Administrator",
		Role:  AdminRole,
	}, nil
}

func (b *Bootstrap) Verifiers() []Verifier {
	return []Verifier{bootstrapVerifier{expected: b.password}}
}

type bootstrapVerifier struct {
	expected string
}

func (bootstrapVerifier) Name() string { return "bootstrap_match" }

func (v bootstrapVerifier) Verify(_ context.Context, password string, _ *Record) (bool, error) {
	return subtle.ConstantTimeCompare([]byte(password), []byte(v.expected)) == 1, nil
}
