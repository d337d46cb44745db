package powgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/powgate/powgate/internal/stores"
)

// CheckStatus reports whether the holder of the given session token has a
// live solved-state session. The token signature is verified first, then
// the session store is consulted; the store is authoritative, so a
// logged-out or reaped session fails even when the token itself is still
// valid. The session must also belong to the caller's fingerprint.
//
// The check fails closed: any failure, including an unreachable store,
// reports the client as unsolved.
func (e *Engine) CheckStatus(ctx context.Context, tokenStr string) (*SessionInfo, error) {
	if e == nil || e.sessions == nil {
		return nil, ErrEngineNotReady
	}
	if tokenStr == "" {
		e.metrics.Inc(MetricStatusUnsolved)
		return nil, ErrTokenInvalid
	}

	userAgent := userAgentFromContext(ctx)
	if userAgent == "" {
		return nil, ErrFingerprintRequired
	}
	fp := FingerprintFromUserAgent(userAgent)

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		e.metrics.Inc(MetricStatusUnsolved)
		return nil, ErrTokenInvalid
	}

	record, err := e.sessions.Get(ctx, claims.SID, fp, time.Now())
	if err != nil {
		e.metrics.Inc(MetricStatusUnsolved)
		switch {
		case errors.Is(err, stores.ErrSessionNotFound),
			errors.Is(err, stores.ErrSessionFingerprintMismatch):
			return nil, ErrSessionNotFound
		default:
			e.metrics.Inc(MetricStoreErrors)
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.metrics.Inc(MetricStatusSolved)
	return &SessionInfo{
		SessionID: claims.SID,
		CreatedAt: time.UnixMilli(record.CreatedAtMS),
		ExpiresAt: time.UnixMilli(record.ExpiresAtMS),
	}, nil
}

// Logout removes the session named by the token. It is unconditional and
// idempotent: removing an unknown or already-removed session is not an
// error, and a token that fails validation names no session at all, so it
// is a no-op rather than a failure. Third parties still cannot log out
// arbitrary session IDs because an unsigned ID never reaches the store.
func (e *Engine) Logout(ctx context.Context, tokenStr string) error {
	if e == nil || e.sessions == nil {
		return ErrEngineNotReady
	}

	claims, err := e.tokens.Parse(tokenStr)
	if err != nil {
		return nil
	}

	if err := e.sessions.Delete(ctx, claims.SID); err != nil {
		e.metrics.Inc(MetricStoreErrors)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricLogout)
	e.emitAudit(AuditEvent{
		Timestamp: time.Now(),
		EventType: "session.logout",
		SessionID: claims.SID,
		Success:   true,
	})
	return nil
}
