package powgate

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/powgate/powgate/internal/rate"
	"github.com/powgate/powgate/internal/reaper"
	"github.com/powgate/powgate/internal/stores"
	"github.com/powgate/powgate/token"
)

// Engine is the proof-of-work gate. Construct one through [Builder.Build];
// the zero value is not usable. All methods are safe for concurrent use.
type Engine struct {
	config Config

	challenges *stores.ChallengeStore
	sessions   *stores.SessionStore
	limiter    *rate.Limiter
	tokens     *token.Manager

	audit   *auditDispatcher
	metrics *Metrics
	reaper  *reaper.Reaper
}

// Metrics returns the Engine's counter set. Never nil on a built Engine.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// MetricsSnapshot returns a point-in-time copy of every counter and
// histogram, for exporters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return MetricsSnapshot{}
	}
	return e.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// ReapOnce runs one synchronous sweep of expired challenges, sessions, and
// stale rate windows. The background reaper does this on its own when
// enabled; ReapOnce exists for startup cleanup and operational tooling.
func (e *Engine) ReapOnce(ctx context.Context) (ReapStats, error) {
	if e == nil || e.challenges == nil {
		return ReapStats{}, ErrEngineNotReady
	}

	var stats ReapStats
	var firstErr error
	for _, result := range e.reaper.RunOnce(ctx) {
		if result.Err != nil && firstErr == nil {
			firstErr = result.Err
		}
		switch result.Target {
		case reapTargetChallenges:
			stats.ChallengesRemoved = result.Removed
		case reapTargetSessions:
			stats.SessionsRemoved = result.Removed
		case reapTargetRateWindows:
			stats.RateWindowsRemoved = result.Removed
		}
	}

	return stats, firstErr
}

// Close stops the background reaper and flushes the audit pipeline.
// Idempotent. The Engine must not be used after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.reaper != nil {
		e.reaper.Stop()
	}
	e.audit.Close()
}

const (
	reapTargetChallenges  = "challenges"
	reapTargetSessions    = "sessions"
	reapTargetRateWindows = "rate_windows"
)

func (e *Engine) buildReaper() *reaper.Reaper {
	// Built even when the loop is disabled so ReapOnce always works.
	return reaper.New(reaper.Config{Interval: e.config.Reaper.Interval, Report: e.reportReap},
		reaper.Target{Name: reapTargetChallenges, Sweep: e.challenges.SweepExpired},
		reaper.Target{Name: reapTargetSessions, Sweep: e.sessions.SweepExpired},
		reaper.Target{Name: reapTargetRateWindows, Sweep: e.limiter.SweepWindows},
	)
}

func (e *Engine) reportReap(result reaper.Result) {
	if result.Err != nil {
		e.metrics.Inc(MetricStoreErrors)
		e.emitAudit(AuditEvent{
			Timestamp: time.Now(),
			EventType: "reap." + result.Target,
			Success:   false,
			Error:     result.Err.Error(),
		})
		return
	}

	switch result.Target {
	case reapTargetChallenges:
		e.metrics.Add(MetricReapedChallenges, uint64(result.Removed))
	case reapTargetSessions:
		e.metrics.Add(MetricReapedSessions, uint64(result.Removed))
	case reapTargetRateWindows:
		e.metrics.Add(MetricReapedRateWindows, uint64(result.Removed))
	}
}

func (e *Engine) emitAudit(event AuditEvent) {
	e.audit.Emit(context.Background(), event)
}

// fingerprintTag is the audit-safe form of a fingerprint: the first 8 hex
// characters, enough to correlate events without logging the full hash.
func fingerprintTag(fp Fingerprint) string {
	return hex.EncodeToString(fp[:4])
}
