package powgate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/powgate/powgate/internal/stores"
	"github.com/powgate/powgate/pow"
)

// SubmitSolution checks a nonce against its challenge and, when the digest
// meets the difficulty, mints a solved-state session and returns its signed
// token. The challenge is consumed atomically before verification, so a
// given challenge ID accepts at most one submission, and a wrong nonce
// burns the challenge. Replays, concurrent duplicates, and unknown
// challenge IDs all get [ErrInvalidNonce]; callers cannot tell them apart
// from a wrong guess.
func (e *Engine) SubmitSolution(ctx context.Context, challengeID string, nonce uint32) (*SubmitResult, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}
	if challengeID == "" {
		return nil, ErrInvalidNonce
	}

	userAgent := userAgentFromContext(ctx)
	if userAgent == "" {
		return nil, ErrFingerprintRequired
	}
	fp := FingerprintFromUserAgent(userAgent)
	ip := clientIPFromContext(ctx)
	now := time.Now()
	start := now

	record, err := e.challenges.Consume(ctx, challengeID, now)
	if err != nil {
		return nil, e.submitFailure(challengeID, fp, ip, now, err)
	}

	telemetry := telemetryMetadata(ctx)

	if !pow.Verify(record.Payload[:], nonce, record.DifficultyBits) {
		e.metrics.Inc(MetricSubmitInvalidNonce)
		e.metrics.Observe(MetricSubmitLatency, time.Since(start))
		e.emitAudit(AuditEvent{
			Timestamp:   now,
			EventType:   "challenge.submit",
			ChallengeID: challengeID,
			Fingerprint: fingerprintTag(fp),
			IP:          ip,
			Success:     false,
			Error:       ErrInvalidNonce.Error(),
			Metadata:    telemetry,
		})
		return nil, ErrInvalidNonce
	}

	sessionID := uuid.NewString()
	expiresAt := now.Add(e.config.Session.TTL)

	session := &stores.SessionRecord{
		Fingerprint: fp,
		ChallengeID: challengeID,
		CreatedAtMS: now.UnixMilli(),
		ExpiresAtMS: expiresAt.UnixMilli(),
	}
	if err := e.sessions.Save(ctx, sessionID, session, e.config.Session.TTL); err != nil {
		e.metrics.Inc(MetricStoreErrors)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	tokenStr, err := e.tokens.Create(sessionID, expiresAt)
	if err != nil {
		// The session is orphaned; the reaper or TTL collects it.
		return nil, fmt.Errorf("session token signing failed: %w", err)
	}

	e.metrics.Inc(MetricSubmitSuccess)
	e.metrics.Inc(MetricSessionCreated)
	e.metrics.Observe(MetricSubmitLatency, time.Since(start))
	e.emitAudit(AuditEvent{
		Timestamp:   now,
		EventType:   "challenge.submit",
		ChallengeID: challengeID,
		SessionID:   sessionID,
		Fingerprint: fingerprintTag(fp),
		IP:          ip,
		Success:     true,
		Metadata:    telemetry,
	})

	return &SubmitResult{
		SessionID: sessionID,
		Token:     tokenStr,
		ExpiresAt: expiresAt,
	}, nil
}

// telemetryMetadata converts client-reported solve effort into audit
// metadata. The values are advisory only.
func telemetryMetadata(ctx context.Context) map[string]string {
	tel, ok := solveTelemetryFromContext(ctx)
	if !ok {
		return nil
	}
	return map[string]string{
		"elapsed_ms":   strconv.FormatInt(tel.ElapsedMS, 10),
		"total_hashes": strconv.FormatUint(tel.TotalHashes, 10),
	}
}

func (e *Engine) submitFailure(challengeID string, fp Fingerprint, ip string, now time.Time, err error) error {
	var public error
	var detail string
	switch {
	case errors.Is(err, stores.ErrChallengeExpired):
		e.metrics.Inc(MetricSubmitExpired)
		public = ErrChallengeExpired
		detail = public.Error()
	case errors.Is(err, stores.ErrChallengeNotFound):
		// Unknown and already-consumed challenges surface as a bad nonce
		// so a probing client cannot distinguish them from a wrong guess.
		// Metrics and audit keep the real reason.
		e.metrics.Inc(MetricSubmitNotFound)
		public = ErrInvalidNonce
		detail = err.Error()
	default:
		e.metrics.Inc(MetricStoreErrors)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.emitAudit(AuditEvent{
		Timestamp:   now,
		EventType:   "challenge.submit",
		ChallengeID: challengeID,
		Fingerprint: fingerprintTag(fp),
		IP:          ip,
		Success:     false,
		Error:       detail,
	})
	return public
}
