package goCred

import (
	"io"

	internalaudit "github.com/MrEthical07/goCred/internal/audit"
	"go.uber.org/zap"
)

// Audit event types.
const (
	AuditAuthSuccess       = internalaudit.EventAuthSuccess
	AuditAuthFailure       = internalaudit.EventAuthFailure
	AuditLoginLocked       = internalaudit.EventLoginLocked
	AuditAttemptsReset     = internalaudit.EventAttemptsReset
	AuditSourceUnavailable = internalaudit.EventSourceUnavailable
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// ZapSink is an [AuditSink] that logs each event through zap.
type ZapSink = internalaudit.ZapSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewZapSink creates a [ZapSink] logging under the "audit" name.
func NewZapSink(logger *zap.Logger) *ZapSink {
	return internalaudit.NewZapSink(logger)
}
