package goCred

import internalmetrics "github.com/MrEthical07/goCred/internal/metrics"

// MetricID identifies a counter in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricAuthSuccess counts Authenticate calls that returned an identity.
	MetricAuthSuccess = internalmetrics.MetricAuthSuccess
	// MetricAuthFailure counts Authenticate calls that returned ErrInvalidCredentials.
	MetricAuthFailure = internalmetrics.MetricAuthFailure
	// MetricSourceUnavailable counts source lookups or verifiers that failed.
	MetricSourceUnavailable = internalmetrics.MetricSourceUnavailable
	// MetricLoginSuccess counts Login calls that returned an identity.
	MetricLoginSuccess = internalmetrics.MetricLoginSuccess
	// MetricLoginFailure counts failed logins below the lockout threshold.
	MetricLoginFailure = internalmetrics.MetricLoginFailure
	// MetricLoginLocked counts logins rejected by the lockout.
	MetricLoginLocked = internalmetrics.MetricLoginLocked
	// MetricLimiterUnavailable counts logins failed closed on a store error.
	MetricLimiterUnavailable = internalmetrics.MetricLimiterUnavailable
	// MetricAttemptsReset counts explicit and post-login resets.
	MetricAttemptsReset = internalmetrics.MetricAttemptsReset
	// MetricPasswordPolicyAccepted counts ValidatePassword calls that passed.
	MetricPasswordPolicyAccepted = internalmetrics.MetricPasswordPolicyAccepted
	// MetricPasswordPolicyRejected counts ValidatePassword calls that failed.
	MetricPasswordPolicyRejected = internalmetrics.MetricPasswordPolicyRejected
	// MetricAuthenticateLatency is the histogram slot for Authenticate.
	MetricAuthenticateLatency = internalmetrics.MetricAuthenticateLatency

	metricIDCount = internalmetrics.MetricIDCount
)

// Metrics holds atomic counters and the optional latency histogram.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] block configured by cfg. When Enabled is
// false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
