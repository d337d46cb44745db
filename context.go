package powgate

import (
	"context"
	"time"
)

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type solveTelemetryContextKey struct{}

type solveTelemetry struct {
	ElapsedMS   int64
	TotalHashes uint64
}

// WithClientIP attaches the caller's IP address to ctx. The Engine records
// it in challenge records and audit events. It plays no part in client
// identity; fingerprints are derived from the User-Agent alone.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the HTTP User-Agent string to ctx. The Engine
// hashes it into the client fingerprint used for rate limiting and session
// binding; calls without one fail with [ErrFingerprintRequired].
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithSolveTelemetry attaches client-reported solve effort to ctx. The
// Engine copies it into the submit audit event as advisory metadata. It is
// never trusted and never influences verification.
func WithSolveTelemetry(ctx context.Context, elapsed time.Duration, totalHashes uint64) context.Context {
	return context.WithValue(ctx, solveTelemetryContextKey{}, solveTelemetry{
		ElapsedMS:   elapsed.Milliseconds(),
		TotalHashes: totalHashes,
	})
}

func solveTelemetryFromContext(ctx context.Context) (solveTelemetry, bool) {
	if ctx == nil {
		return solveTelemetry{}, false
	}

	tel, ok := ctx.Value(solveTelemetryContextKey{}).(solveTelemetry)
	return tel, ok
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	userAgent, _ := ctx.Value(userAgentContextKey{}).(string)
	return userAgent
}
