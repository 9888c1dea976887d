package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goCred/source"
)

// AuthIdentity is the flow-local identity returned on success.
type AuthIdentity struct {
	ID          string
	DisplayName string
	Email       string
	Role        string
	Source      string
	Verifier    string
	AttemptID   string
}

// AuditRecord is the flow-local audit payload. The root engine maps it onto
// its audit event type.
type AuditRecord struct {
	Event      string
	AttemptID  string
	UserID     string
	Email      string
	Identifier string
	Source     string
	Success    bool
	Err        error
	Metadata   map[string]string
}

// AuthenticateMetrics carries metric IDs used by the authenticate flow.
type AuthenticateMetrics struct {
	AuthSuccess       int
	AuthFailure       int
	SourceUnavailable int
}

// AuthenticateEvents carries audit event names used by the authenticate flow.
type AuthenticateEvents struct {
	AuthSuccess       string
	AuthFailure       string
	SourceUnavailable string
}

// AuthenticateErrors carries host-level sentinel errors.
type AuthenticateErrors struct {
	EngineNotReady     error
	InvalidCredentials error
}

// AuthenticateDeps captures credential verification dependencies.
type AuthenticateDeps struct {
	Sources       []source.Source
	SourceTimeout time.Duration
	DefaultRole   string

	Now                 func() time.Time
	NewAttemptID        func() string
	ClientIPFromContext func(context.Context) string
	ObserveLatency      func(time.Duration)

	MetricInc func(int)
	EmitAudit func(context.Context, AuditRecord)
	Logger    *zap.Logger

	Metrics AuthenticateMetrics
	Events  AuthenticateEvents
	Errors  AuthenticateErrors
}

type sourceOutcome struct {
	rec      *source.Record
	verifier string
}

// RunAuthenticate consults the sources in order and returns the identity
// built from the first row one of its verifiers accepts. Source failures are
// logged and treated as "no row"; every non-success returns the same
// InvalidCredentials error.
func RunAuthenticate(ctx context.Context, email, password string, deps AuthenticateDeps) (*AuthIdentity, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewAttemptID == nil {
		deps.NewAttemptID = func() string { return "" }
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, AuditRecord) {}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.DefaultRole == "" {
		deps.DefaultRole = source.DefaultRole
	}
	if len(deps.Sources) == 0 {
		return nil, deps.Errors.EngineNotReady
	}

	start := deps.Now()
	defer func() { deps.ObserveLatency(deps.Now().Sub(start)) }()

	attemptID := deps.NewAttemptID()
	email = source.NormalizeEmail(email)
	ip := deps.ClientIPFromContext(ctx)
	log := deps.Logger.With(zap.String("attempt_id", attemptID))

	fail := func(reason string) (*AuthIdentity, error) {
		deps.MetricInc(deps.Metrics.AuthFailure)
		deps.EmitAudit(ctx, AuditRecord{
			Event:     deps.Events.AuthFailure,
			AttemptID: attemptID,
			Email:     email,
			Err:       deps.Errors.InvalidCredentials,
			Metadata:  map[string]string{"reason": reason, "ip": ip},
		})
		return nil, deps.Errors.InvalidCredentials
	}

	if email == "" || password == "" {
		return fail("empty_credentials")
	}

	for _, src := range deps.Sources {
		if src == nil {
			continue
		}
		if ctx.Err() != nil {
			log.Debug("authenticate aborted", zap.Error(ctx.Err()))
			return fail("canceled")
		}

		out, err := trySource(ctx, src, email, password, deps.SourceTimeout, log)
		if err != nil {
			deps.MetricInc(deps.Metrics.SourceUnavailable)
			log.Warn("credential source unavailable", zap.String("source", src.Name()), zap.Error(err))
			deps.EmitAudit(ctx, AuditRecord{
				Event:     deps.Events.SourceUnavailable,
				AttemptID: attemptID,
				Email:     email,
				Source:    src.Name(),
				Err:       err,
			})
		}
		if out == nil {
			continue
		}

		id := buildIdentity(out.rec, email, deps.DefaultRole)
		id.Source = src.Name()
		id.Verifier = out.verifier
		id.AttemptID = attemptID

		deps.MetricInc(deps.Metrics.AuthSuccess)
		log.Debug("credential verified", zap.String("source", id.Source), zap.String("verifier", id.Verifier))
		deps.EmitAudit(ctx, AuditRecord{
			Event:     deps.Events.AuthSuccess,
			AttemptID: attemptID,
			UserID:    id.ID,
			Email:     id.Email,
			Source:    id.Source,
			Success:   true,
			Metadata:  map[string]string{"verifier": id.Verifier, "ip": ip},
		})
		return id, nil
	}

	return fail("no_match")
}

// trySource runs one lookup and its verifiers under the per-source timeout.
// A panic is converted into source.ErrUnavailable. A non-nil outcome may be
// returned together with an error when an earlier verifier failed.
func trySource(ctx context.Context, src source.Source, email, password string, timeout time.Duration, log *zap.Logger) (out *sourceOutcome, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s panicked: %v", source.ErrUnavailable, src.Name(), r)
		}
	}()

	rec, err := src.Lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	var verifyErr error
	for _, v := range src.Verifiers() {
		ok, vErr := v.Verify(ctx, password, rec)
		if vErr != nil {
			if errors.Is(vErr, source.ErrUnavailable) {
				verifyErr = vErr
			} else {
				log.Debug("verifier declined", zap.String("source", src.Name()), zap.String("verifier", v.Name()), zap.Error(vErr))
			}
			continue
		}
		if ok {
			return &sourceOutcome{rec: rec, verifier: v.Name()}, verifyErr
		}
	}
	return nil, verifyErr
}

func buildIdentity(rec *source.Record, email, defaultRole string) *AuthIdentity {
	id := &AuthIdentity{
		ID:          rec.ID,
		DisplayName: rec.Name,
		Email:       rec.Email,
		Role:        rec.Role,
	}
	if id.Email == "" {
		id.Email = email
	}
	if id.DisplayName == "" {
		id.DisplayName = id.Email
	}
	if id.Role == "" {
		id.Role = defaultRole
	}
	return id
}
