package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	goCred "github.com/MrEthical07/goCred"
)

// Blocker is the part of goCred.Engine that Lockout needs.
type Blocker interface {
	IsBlocked(ctx context.Context, identifier string) (bool, error)
}

// LockoutOption customizes [Lockout].
type LockoutOption func(*lockoutConfig)

type lockoutConfig struct {
	identifier func(*http.Request) string
	retryAfter time.Duration
}

// WithIdentifier replaces the default identifier, the client IP stored by
// [ClientIP].
func WithIdentifier(fn func(*http.Request) string) LockoutOption {
	return func(c *lockoutConfig) {
		if fn != nil {
			c.identifier = fn
		}
	}
}

// WithRetryAfter sets the Retry-After header sent with 429 responses.
func WithRetryAfter(d time.Duration) LockoutOption {
	return func(c *lockoutConfig) {
		c.retryAfter = d
	}
}

// Lockout rejects requests whose identifier is locked out with 429. Store
// failures answer 503. Requests without an identifier pass through.
func Lockout(engine Blocker, opts ...LockoutOption) func(http.Handler) http.Handler {
	cfg := lockoutConfig{
		identifier: func(r *http.Request) string {
			return goCred.ClientIPFromContext(r.Context())
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			id := cfg.identifier(r)
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}

			blocked, err := engine.IsBlocked(r.Context(), id)
			switch {
			case err != nil && errors.Is(err, goCred.ErrEmptyIdentifier):
				next.ServeHTTP(w, r)
			case err != nil:
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			case blocked:
				if cfg.retryAfter > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(cfg.retryAfter.Seconds())))
				}
				http.Error(w, "too many failed login attempts", http.StatusTooManyRequests)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// RequireBearer admits requests carrying "Authorization: Bearer {key}".
// An empty key rejects everything.
func RequireBearer(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || key == "" || subtle.ConstantTimeCompare([]byte(token), []byte(key)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
