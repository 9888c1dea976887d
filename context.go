package goCred

import "context"

type clientIPContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. Login uses it as the
// attempt identifier when the request names none, and it is copied into
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// ClientIPFromContext returns the IP set by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}
