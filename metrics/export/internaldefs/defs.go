package internaldefs

import (
	"strconv"

	goCred "github.com/MrEthical07/goCred"
	internalmetrics "github.com/MrEthical07/goCred/internal/metrics"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goCred.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter exported for dispatcher drops.
const AuditDroppedName = "credgate_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goCred.MetricAuthSuccess, Name: "credgate_auth_success_total", Help: "Authenticate calls that returned an identity."},
	{ID: goCred.MetricAuthFailure, Name: "credgate_auth_failure_total", Help: "Authenticate calls rejected as invalid credentials."},
	{ID: goCred.MetricSourceUnavailable, Name: "credgate_source_unavailable_total", Help: "Credential source lookups or verifiers that failed."},
	{ID: goCred.MetricLoginSuccess, Name: "credgate_login_success_total", Help: "Successful logins."},
	{ID: goCred.MetricLoginFailure, Name: "credgate_login_failure_total", Help: "Failed logins below the lockout threshold."},
	{ID: goCred.MetricLoginLocked, Name: "credgate_login_locked_total", Help: "Logins rejected by the attempt lockout."},
	{ID: goCred.MetricLimiterUnavailable, Name: "credgate_limiter_unavailable_total", Help: "Logins failed closed on an attempt store error."},
	{ID: goCred.MetricAttemptsReset, Name: "credgate_attempts_reset_total", Help: "Attempt records cleared."},
	{ID: goCred.MetricPasswordPolicyAccepted, Name: "credgate_password_policy_accepted_total", Help: "Passwords accepted by the strength policy."},
	{ID: goCred.MetricPasswordPolicyRejected, Name: "credgate_password_policy_rejected_total", Help: "Passwords rejected by the strength policy."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goCred.MetricAuthenticateLatency, Name: "credgate_authenticate_latency_seconds", Help: "Authenticate latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The last
// engine bucket is +Inf.
var HistogramUpperBounds = internalmetrics.BucketUpperBounds[:]

// BucketLabel returns the "le" label of bucket i: the bound in seconds,
// or "+Inf" for the overflow bucket.
func BucketLabel(i int) string {
	if i < 0 || i >= len(HistogramUpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(HistogramUpperBounds[i], 'g', -1, 64)
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling
// missing buckets.
func NormalizeBuckets(raw []uint64) [internalmetrics.HistBucketCount]uint64 {
	var out [internalmetrics.HistBucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [internalmetrics.HistBucketCount]uint64) [internalmetrics.HistBucketCount]uint64 {
	var out [internalmetrics.HistBucketCount]uint64
	var running uint64
	for i := range raw {
		running += raw[i]
		out[i] = running
	}
	return out
}
