package source

import (
	"context"

	"github.com/MrEthical07/goCred/password"
)

// HashVerifier compares the password with the row's stored hash through
// [password.Compare]. A row without a hash never matches.
type HashVerifier struct{}

func (HashVerifier) Name() string { return "hash" }

func (HashVerifier) Verify(_ context.Context, plaintext string, rec *Record) (bool, error) {
	if rec == nil || rec.PasswordHash == "" {
		return false, nil
	}
	return password.Compare(plaintext, rec.PasswordHash)
}
