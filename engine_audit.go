package goCred

import (
	"context"
	"errors"

	"github.com/MrEthical07/goCred/internal/flows"
)

// AuditErrorCode is the stable error string written into audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrLoginLocked        AuditErrorCode = "login_locked"
	auditErrLimiterUnavailable AuditErrorCode = "limiter_unavailable"
	auditErrSourceUnavailable  AuditErrorCode = "source_unavailable"
	auditErrPasswordPolicy     AuditErrorCode = "password_policy"
	auditErrInternal           AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(ctx context.Context, rec flows.AuditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp:  e.now().UTC(),
		EventType:  rec.Event,
		AttemptID:  rec.AttemptID,
		UserID:     rec.UserID,
		Email:      rec.Email,
		Identifier: rec.Identifier,
		IP:         ClientIPFromContext(ctx),
		Source:     rec.Source,
		Success:    rec.Success,
		Metadata:   rec.Metadata,
	}
	if code := auditErrorCode(rec.Err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrLoginLocked):
		return auditErrLoginLocked
	case errors.Is(err, ErrLimiterUnavailable),
		errors.Is(err, ErrStoreUnavailable):
		return auditErrLimiterUnavailable
	case errors.Is(err, ErrSourceUnavailable):
		return auditErrSourceUnavailable
	case errors.Is(err, ErrPasswordPolicy):
		return auditErrPasswordPolicy
	default:
		return auditErrInternal
	}
}
