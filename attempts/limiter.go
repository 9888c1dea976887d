package attempts

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is the number of failures that locks an identifier.
	DefaultMaxAttempts = 5
	// DefaultLockoutDuration is the length of a counting window.
	DefaultLockoutDuration = 15 * time.Minute
)

// Config holds limiter policy.
type Config struct {
	MaxAttempts     int
	LockoutDuration time.Duration
}

// DefaultConfig returns 5 attempts per 15 minutes.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     DefaultMaxAttempts,
		LockoutDuration: DefaultLockoutDuration,
	}
}

// Result is returned by [Limiter.RecordAttempt].
type Result struct {
	Blocked   bool
	Remaining int
	Count     int
}

// Option customizes a [Limiter].
type Option func(*Limiter)

// WithClock replaces time.Now. Tests use it to simulate window expiry.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// Limiter applies the lockout window to records kept in a [Store].
// It is safe for concurrent use when the store is.
type Limiter struct {
	store  Store
	config Config
	now    func() time.Time
}

// New creates a limiter over store. Non-positive config values fall back to
// the defaults.
func New(store Store, cfg Config, opts ...Option) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = DefaultLockoutDuration
	}
	l := &Limiter{
		store:  store,
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Config returns the effective policy.
func (l *Limiter) Config() Config {
	return l.config
}

// RecordAttempt counts one failed attempt for identifier.
func (l *Limiter) RecordAttempt(ctx context.Context, identifier string) (Result, error) {
	if identifier == "" {
		return Result{}, ErrEmptyIdentifier
	}

	rec, err := l.store.Increment(ctx, identifier, l.now(), l.config.LockoutDuration)
	if err != nil {
		return Result{}, wrapStoreErr(err)
	}

	// A count of one always means this attempt opened the window.
	if rec.Count == 1 {
		return Result{
			Blocked:   false,
			Remaining: l.config.MaxAttempts - 1,
			Count:     rec.Count,
		}, nil
	}

	return Result{
		Blocked:   rec.Count >= l.config.MaxAttempts,
		Remaining: max(0, l.config.MaxAttempts-rec.Count),
		Count:     rec.Count,
	}, nil
}

// IsBlocked reports whether identifier is locked out. It never writes.
func (l *Limiter) IsBlocked(ctx context.Context, identifier string) (bool, error) {
	if identifier == "" {
		return false, ErrEmptyIdentifier
	}

	rec, ok, err := l.store.Load(ctx, identifier)
	if err != nil {
		return false, wrapStoreErr(err)
	}
	if !ok {
		return false, nil
	}
	return rec.Count >= l.config.MaxAttempts && !l.expired(rec, l.now()), nil
}

// ResetAttempts deletes the record for identifier.
func (l *Limiter) ResetAttempts(ctx context.Context, identifier string) error {
	if identifier == "" {
		return ErrEmptyIdentifier
	}
	if err := l.store.Delete(ctx, identifier); err != nil {
		return wrapStoreErr(err)
	}
	return nil
}

func (l *Limiter) expired(rec Record, now time.Time) bool {
	return windowExpired(rec.WindowStartedAt, now, l.config.LockoutDuration)
}

func wrapStoreErr(err error) error {
	if errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
