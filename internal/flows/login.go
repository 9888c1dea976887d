package flows

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/source"
)

// LoginInput is the flow-local login request.
type LoginInput struct {
	Identifier string
	Email      string
	Password   string
}

// LoginAttempt mirrors the limiter's record result.
type LoginAttempt struct {
	Blocked   bool
	Remaining int
}

// LoginResult is the flow-local login outcome. Identifier and Remaining are
// populated on failures too.
type LoginResult struct {
	Identity   *AuthIdentity
	Identifier string
	Remaining  int
}

// LoginMetrics carries metric IDs used by the login flow.
type LoginMetrics struct {
	LoginSuccess       int
	LoginFailure       int
	LoginLocked        int
	LimiterUnavailable int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginLocked   string
	AttemptsReset string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginLocked        error
	LimiterUnavailable error
}

// LoginDeps captures limiter and authenticate dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string

	IsBlocked     func(context.Context, string) (bool, error)
	RecordAttempt func(context.Context, string) (LoginAttempt, error)
	ResetAttempts func(context.Context, string) error
	Authenticate  func(context.Context, string, string) (*AuthIdentity, error)

	MetricInc func(int)
	EmitAudit func(context.Context, AuditRecord)
	Logger    *zap.Logger

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// ResolveIdentifier picks the limiter key: the explicit identifier, else the
// client IP, else the normalized email.
func ResolveIdentifier(ctx context.Context, in LoginInput, clientIP func(context.Context) string) string {
	if in.Identifier != "" {
		return in.Identifier
	}
	if clientIP != nil {
		if ip := clientIP(ctx); ip != "" {
			return ip
		}
	}
	return source.NormalizeEmail(in.Email)
}

// RunLogin checks the lockout, authenticates, and records or resets attempts.
// Limiter failures fail closed.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, AuditRecord) {}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.IsBlocked == nil ||
		deps.RecordAttempt == nil ||
		deps.ResetAttempts == nil ||
		deps.Authenticate == nil {
		return nil, deps.Errors.EngineNotReady
	}

	identifier := ResolveIdentifier(ctx, in, deps.ClientIPFromContext)
	result := &LoginResult{Identifier: identifier}
	if identifier == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return result, deps.Errors.InvalidCredentials
	}
	log := deps.Logger.With(zap.String("identifier", identifier))

	locked := func() (*LoginResult, error) {
		result.Remaining = 0
		deps.MetricInc(deps.Metrics.LoginLocked)
		deps.EmitAudit(ctx, AuditRecord{
			Event:      deps.Events.LoginLocked,
			Identifier: identifier,
			Email:      source.NormalizeEmail(in.Email),
			Err:        deps.Errors.LoginLocked,
		})
		return result, deps.Errors.LoginLocked
	}
	unavailable := func(op string, err error) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LimiterUnavailable)
		log.Error("attempt limiter unavailable", zap.String("op", op), zap.Error(err))
		return result, deps.Errors.LimiterUnavailable
	}

	blocked, err := deps.IsBlocked(ctx, identifier)
	if err != nil {
		return unavailable("is_blocked", err)
	}
	if blocked {
		return locked()
	}

	identity, err := deps.Authenticate(ctx, in.Email, in.Password)
	if err == nil {
		result.Identity = identity
		if resetErr := deps.ResetAttempts(ctx, identifier); resetErr != nil {
			log.Warn("attempt reset after login failed", zap.Error(resetErr))
		} else {
			deps.EmitAudit(ctx, AuditRecord{
				Event:      deps.Events.AttemptsReset,
				AttemptID:  identity.AttemptID,
				UserID:     identity.ID,
				Identifier: identifier,
				Success:    true,
				Metadata:   map[string]string{"reason": "login_success"},
			})
		}
		deps.MetricInc(deps.Metrics.LoginSuccess)
		return result, nil
	}
	if errors.Is(err, deps.Errors.EngineNotReady) {
		return result, err
	}
	if ctx.Err() != nil {
		return result, deps.Errors.InvalidCredentials
	}

	attempt, recErr := deps.RecordAttempt(ctx, identifier)
	if recErr != nil {
		return unavailable("record_attempt", recErr)
	}
	if attempt.Blocked {
		return locked()
	}

	result.Remaining = attempt.Remaining
	deps.MetricInc(deps.Metrics.LoginFailure)
	return result, deps.Errors.InvalidCredentials
}
