package goCred

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/attempts"
	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	"github.com/MrEthical07/goCred/internal/flows"
	"github.com/MrEthical07/goCred/password"
	"github.com/MrEthical07/goCred/source"
)

// Engine verifies credentials against an ordered list of sources and
// applies the login lockout. It is safe for concurrent use once built.
type Engine struct {
	config  Config
	logger  *zap.Logger
	sources []source.Source
	limiter *attempts.Limiter
	audit   *internalaudit.Dispatcher
	metrics *Metrics
	now     func() time.Time

	flowDeps flows.Deps
}

// Close flushes pending audit events and stops the dispatcher. It does not
// close sources or the attempt store; their owners do.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns the number of audit events dropped on a full buffer
// or an expired context.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Authenticate checks email and password against each source in order and
// returns the identity of the first row a verifier accepts.
//
// Every failure returns ErrInvalidCredentials: unknown email, wrong
// password, empty input, unavailable sources and a canceled context are
// indistinguishable to the caller. Source failures are logged, counted and
// audited. Authenticate never mutates stored state.
func (e *Engine) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	id, err := flows.RunAuthenticate(ctx, email, password, e.flowDeps.Authenticate)
	if err != nil {
		return nil, err
	}
	return identityFromFlow(id), nil
}

// Login runs Authenticate behind the attempt limiter. See [Engine.LoginWithResult].
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*Identity, error) {
	result, err := e.LoginWithResult(ctx, req)
	if err != nil {
		return nil, err
	}
	if result == nil || result.Identity == nil {
		return nil, ErrEngineNotReady
	}
	return result.Identity, nil
}

// LoginWithResult checks the lockout for the request identifier, then
// authenticates. Success resets the identifier's attempts; failure records
// one. It returns ErrLoginLocked while the identifier is locked out and
// ErrLimiterUnavailable when the attempt store fails. The result is non-nil
// on failures too, carrying the identifier and remaining attempts.
func (e *Engine) LoginWithResult(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	res, err := flows.RunLogin(ctx, flows.LoginInput{
		Identifier: req.Identifier,
		Email:      req.Email,
		Password:   req.Password,
	}, e.flowDeps.Login)

	if res == nil {
		return nil, err
	}
	out := &LoginResult{
		Identifier: res.Identifier,
		Remaining:  res.Remaining,
	}
	if res.Identity != nil {
		out.Identity = identityFromFlow(res.Identity)
	}
	return out, err
}

// RecordAttempt counts one failed attempt for identifier and reports
// whether it is now locked out.
func (e *Engine) RecordAttempt(ctx context.Context, identifier string) (AttemptResult, error) {
	if e == nil || e.limiter == nil {
		return AttemptResult{}, ErrEngineNotReady
	}
	res, err := e.limiter.RecordAttempt(ctx, identifier)
	if err != nil {
		return AttemptResult{}, err
	}
	return AttemptResult{Blocked: res.Blocked, Remaining: res.Remaining}, nil
}

// IsBlocked reports whether identifier is locked out. It never writes.
func (e *Engine) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	if e == nil || e.limiter == nil {
		return false, ErrEngineNotReady
	}
	return e.limiter.IsBlocked(ctx, identifier)
}

// ResetAttempts clears the attempt record for identifier.
func (e *Engine) ResetAttempts(ctx context.Context, identifier string) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	if err := e.limiter.ResetAttempts(ctx, identifier); err != nil {
		return err
	}
	e.metricInc(MetricAttemptsReset)
	e.emitAudit(ctx, flows.AuditRecord{
		Event:      AuditAttemptsReset,
		Identifier: identifier,
		Success:    true,
		Metadata:   map[string]string{"reason": "explicit"},
	})
	return nil
}

// ValidatePassword checks pw against policy. A zero policy selects the
// configured policy, and a zero configured policy selects the default.
func (e *Engine) ValidatePassword(pw string, policy PasswordPolicy) PasswordValidation {
	if policy.IsZero() && e != nil {
		policy = e.config.PasswordPolicy
	}
	if policy.IsZero() {
		policy = password.DefaultPolicy()
	}

	result := password.Validate(pw, policy)
	if result.Valid {
		e.metricInc(MetricPasswordPolicyAccepted)
	} else {
		e.metricInc(MetricPasswordPolicyRejected)
	}
	return result
}

func (e *Engine) initFlowDeps() {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }

	e.flowDeps = flows.Deps{
		Authenticate: flows.AuthenticateDeps{
			Sources:             e.sources,
			SourceTimeout:       e.config.Sources.Timeout,
			DefaultRole:         e.config.Sources.DefaultRole,
			Now:                 e.now,
			NewAttemptID:        uuid.NewString,
			ClientIPFromContext: ClientIPFromContext,
			ObserveLatency: func(d time.Duration) {
				e.metrics.Observe(MetricAuthenticateLatency, d)
			},
			MetricInc: metricInc,
			EmitAudit: e.emitAudit,
			Logger:    e.logger,
			Metrics: flows.AuthenticateMetrics{
				AuthSuccess:       int(MetricAuthSuccess),
				AuthFailure:       int(MetricAuthFailure),
				SourceUnavailable: int(MetricSourceUnavailable),
			},
			Events: flows.AuthenticateEvents{
				AuthSuccess:       AuditAuthSuccess,
				AuthFailure:       AuditAuthFailure,
				SourceUnavailable: AuditSourceUnavailable,
			},
			Errors: flows.AuthenticateErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
			},
		},
		Login: flows.LoginDeps{
			ClientIPFromContext: ClientIPFromContext,
			IsBlocked:           e.limiter.IsBlocked,
			RecordAttempt: func(ctx context.Context, identifier string) (flows.LoginAttempt, error) {
				res, err := e.limiter.RecordAttempt(ctx, identifier)
				if err != nil {
					return flows.LoginAttempt{}, err
				}
				return flows.LoginAttempt{Blocked: res.Blocked, Remaining: res.Remaining}, nil
			},
			ResetAttempts: func(ctx context.Context, identifier string) error {
				if err := e.limiter.ResetAttempts(ctx, identifier); err != nil {
					return err
				}
				e.metricInc(MetricAttemptsReset)
				return nil
			},
			Authenticate: func(ctx context.Context, email, pw string) (*flows.AuthIdentity, error) {
				return flows.RunAuthenticate(ctx, email, pw, e.flowDeps.Authenticate)
			},
			MetricInc: metricInc,
			EmitAudit: e.emitAudit,
			Logger:    e.logger,
			Metrics: flows.LoginMetrics{
				LoginSuccess:       int(MetricLoginSuccess),
				LoginFailure:       int(MetricLoginFailure),
				LoginLocked:        int(MetricLoginLocked),
				LimiterUnavailable: int(MetricLimiterUnavailable),
			},
			Events: flows.LoginEvents{
				LoginLocked:   AuditLoginLocked,
				AttemptsReset: AuditAttemptsReset,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:     ErrEngineNotReady,
				InvalidCredentials: ErrInvalidCredentials,
				LoginLocked:        ErrLoginLocked,
				LimiterUnavailable: ErrLimiterUnavailable,
			},
		},
	}
}

func identityFromFlow(id *flows.AuthIdentity) *Identity {
	if id == nil {
		return nil
	}
	return &Identity{
		ID:          id.ID,
		DisplayName: id.DisplayName,
		Email:       id.Email,
		Role:        id.Role,
		Source:      id.Source,
		Verifier:    id.Verifier,
		AttemptID:   id.AttemptID,
	}
}
