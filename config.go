package goCred

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/attempts"
	"github.com/MrEthical07/goCred/password"
)

// Config is the engine configuration tree. Build clones it, so callers may
// reuse the value after the engine is constructed.
type Config struct {
	Sources        SourcesConfig
	Attempts       AttemptsConfig
	PasswordPolicy password.Policy
	Audit          AuditConfig
	Metrics        MetricsConfig
}

/*
====================================
SOURCES CONFIG
====================================
*/

// SourcesConfig governs how Authenticate calls each credential source.
type SourcesConfig struct {
	// Timeout bounds one source's lookup plus verifiers. It is derived from
	// the caller's context. Zero disables the per-source bound.
	Timeout time.Duration
	// DefaultRole is assigned when a matching row has no role.
	DefaultRole string
}

/*
====================================
ATTEMPTS CONFIG
====================================
*/

// AttemptsConfig is the login lockout policy.
type AttemptsConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration
	// MemoryCapacity bounds the in-process store when no store or Redis
	// client is supplied to the builder.
	MemoryCapacity int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles the in-process counters and the authenticate
// latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration used when none is supplied:
// 5s per source, 5 attempts per 15 minutes, the default password policy,
// audit and metrics enabled.
func DefaultConfig() Config {
	return Config{
		Sources: SourcesConfig{
			Timeout:     5 * time.Second,
			DefaultRole: DefaultRole,
		},
		Attempts: AttemptsConfig{
			MaxAttempts:     attempts.DefaultMaxAttempts,
			LockoutDuration: attempts.DefaultLockoutDuration,
			MemoryCapacity:  attempts.DefaultMemoryCapacity,
		},
		PasswordPolicy: password.DefaultPolicy(),
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.PasswordPolicy.ForbiddenPatterns != nil {
		out.PasswordPolicy.ForbiddenPatterns = append([]string(nil), cfg.PasswordPolicy.ForbiddenPatterns...)
	}
	return out
}

// Validate checks the configuration for values the engine cannot run with.
// Every error wraps ErrConfigInvalid.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigInvalid, err)
	}
	return nil
}

func (c *Config) validate() error {
	// Sources
	if c.Sources.Timeout < 0 {
		return errors.New("Sources Timeout must be >= 0")
	}
	if strings.TrimSpace(c.Sources.DefaultRole) == "" {
		return errors.New("Sources DefaultRole must not be empty")
	}

	// Attempts
	if c.Attempts.MaxAttempts <= 0 {
		return errors.New("Attempts MaxAttempts must be > 0")
	}
	if c.Attempts.LockoutDuration <= 0 {
		return errors.New("Attempts LockoutDuration must be > 0")
	}
	if c.Attempts.MemoryCapacity < 0 {
		return errors.New("Attempts MemoryCapacity must be >= 0")
	}

	// Password policy
	p := c.PasswordPolicy
	if p.MinLength < 0 || p.MaxLength < 0 {
		return errors.New("PasswordPolicy lengths must be >= 0")
	}
	if p.MaxLength > 0 && p.MinLength > p.MaxLength {
		return errors.New("PasswordPolicy MinLength must be <= MaxLength")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	// LintInfo is advisory.
	LintInfo LintSeverity = iota
	// LintWarn marks a setting that weakens lockout or password rules.
	LintWarn
)

// LintWarning is one advisory finding about a valid configuration.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the list returned by [Config.Lint].
type LintResult []LintWarning

// Codes returns the warning codes in order.
func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// Lint reports settings that are valid but likely unintended. It never
// fails; Validate decides whether the engine can start.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Attempts.MaxAttempts > 20 {
		add("attempts_max_high", LintWarn, "MaxAttempts above 20 weakens brute-force protection")
	}
	if c.Attempts.LockoutDuration > 0 && c.Attempts.LockoutDuration < time.Minute {
		add("lockout_short", LintWarn, "LockoutDuration below one minute")
	}
	if c.Sources.Timeout == 0 {
		add("source_timeout_disabled", LintWarn, "a hung credential source will stall Authenticate until the caller's deadline")
	}
	if c.Sources.Timeout > 30*time.Second {
		add("source_timeout_long", LintInfo, "Sources Timeout above 30s")
	}
	if c.PasswordPolicy.IsZero() {
		add("password_policy_empty", LintInfo, "ValidatePassword falls back to the default policy")
	} else if c.PasswordPolicy.MinLength < 8 {
		add("password_min_length_low", LintWarn, "PasswordPolicy MinLength below 8")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "login outcomes are not audited")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", LintInfo, "a slow audit sink will block Login")
	}

	return ws
}
