package goCred

import (
	"errors"

	"github.com/MrEthical07/goCred/attempts"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/source"
)

var (
	// ErrInvalidCredentials is returned for every failed authentication. It
	// never distinguishes an unknown email from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginLocked is returned by Login while the identifier is locked out.
	ErrLoginLocked = errors.New("login locked")
	// ErrLimiterUnavailable is returned by Login when the attempt store
	// cannot be read or written. Login fails closed.
	ErrLimiterUnavailable = errors.New("attempt limiter unavailable")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrNoSources is returned by Build when no credential source is configured.
	ErrNoSources = errors.New("no credential sources configured")
	// ErrBuilderUsed is returned by a second call to Build.
	ErrBuilderUsed = errors.New("builder already used")
	// ErrConfigInvalid wraps every Config.Validate failure.
	ErrConfigInvalid = errors.New("invalid configuration")
	// ErrStoreUnavailable is returned by the attempt methods when the store
	// fails. Login maps it to ErrLimiterUnavailable.
	ErrStoreUnavailable = attempts.ErrStoreUnavailable
	// ErrEmptyIdentifier is returned by the attempt methods for an empty identifier.
	ErrEmptyIdentifier = attempts.ErrEmptyIdentifier
	// ErrPasswordPolicy is wrapped by password.ValidationResult.Err when a
	// password fails the policy.
	ErrPasswordPolicy = password.ErrPasswordPolicy
	// ErrSourceUnavailable marks a failed source lookup. Authenticate logs it
	// and never returns it.
	ErrSourceUnavailable = source.ErrUnavailable
)
