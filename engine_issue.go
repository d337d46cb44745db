package powgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/powgate/powgate/internal"
	"github.com/powgate/powgate/internal/rate"
	"github.com/powgate/powgate/internal/stores"
)

// IssueChallenge mints a fresh proof-of-work challenge for the client
// identified by the context's User-Agent fingerprint. Rate limiting is
// per fingerprint per fixed window; a throttled client gets
// [ErrRateLimited] and its budget keeps draining while it retries.
func (e *Engine) IssueChallenge(ctx context.Context) (*ChallengeGrant, error) {
	if e == nil || e.challenges == nil {
		return nil, ErrEngineNotReady
	}

	userAgent := userAgentFromContext(ctx)
	if userAgent == "" {
		return nil, ErrFingerprintRequired
	}
	fp := FingerprintFromUserAgent(userAgent)
	ip := clientIPFromContext(ctx)
	now := time.Now()

	if err := e.limiter.CheckAndIncrement(ctx, fp, now, e.config.RateLimit.MaxRequests, e.config.RateLimit.Window); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metrics.Inc(MetricIssueRateLimited)
			e.emitAudit(AuditEvent{
				Timestamp:   now,
				EventType:   "challenge.rate_limited",
				Fingerprint: fingerprintTag(fp),
				IP:          ip,
				Success:     false,
				Error:       ErrRateLimited.Error(),
			})
			return nil, ErrRateLimited
		}
		e.metrics.Inc(MetricStoreErrors)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	payload, err := internal.NewChallengePayload()
	if err != nil {
		return nil, fmt.Errorf("challenge payload generation failed: %w", err)
	}

	challengeID := uuid.NewString()
	expiresAt := now.Add(e.config.Challenge.TTL)

	record := &stores.ChallengeRecord{
		Payload:        payload,
		DifficultyBits: e.config.Challenge.DifficultyBits,
		CreatedAtMS:    now.UnixMilli(),
		ExpiresAtMS:    expiresAt.UnixMilli(),
		Fingerprint:    fp,
		ClientIP:       ip,
	}

	ttl := e.config.Challenge.TTL + e.config.Challenge.ExpiredGrace
	if err := e.challenges.Save(ctx, challengeID, record, ttl); err != nil {
		e.metrics.Inc(MetricStoreErrors)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metrics.Inc(MetricChallengeIssued)
	e.emitAudit(AuditEvent{
		Timestamp:   now,
		EventType:   "challenge.issued",
		ChallengeID: challengeID,
		Fingerprint: fingerprintTag(fp),
		IP:          ip,
		Success:     true,
	})

	return &ChallengeGrant{
		ChallengeID:      challengeID,
		Payload:          payload,
		DifficultyBits:   record.DifficultyBits,
		ExpiresAt:        expiresAt,
		ExpectedAttempts: uint64(1) << record.DifficultyBits,
	}, nil
}
