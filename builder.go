package powgate

import (
	"context"
	"errors"

	"github.com/powgate/powgate/internal/rate"
	"github.com/powgate/powgate/internal/stores"
	"github.com/powgate/powgate/token"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Builders are single use and not safe for
// concurrent use; Build everything up front, then share the Engine.
type Builder struct {
	config    Config
	redis     redis.UniversalClient
	auditSink AuditSink
	built     bool
}

// New returns a Builder preloaded with the default configuration: 23-bit
// difficulty, 2-minute challenges, 1-hour sessions, 10 issuances per minute
// per fingerprint.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing challenge, session, and rate
// limit state. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets the destination for audit events. Has no effect unless
// Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the submit-verification latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, wires the stores, and returns a ready
// Engine. When the reaper is enabled its loop is already running on return;
// callers own the Engine's lifecycle and must Close it.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	signingMethod := token.SigningMethod(cfg.Token.SigningMethod)
	if cfg.Token.SigningMethod == "" {
		signingMethod = token.MethodHS256
	}
	tokens, err := token.NewManager(token.Config{
		SigningMethod: signingMethod,
		PrivateKey:    cloneBytes(cfg.Token.PrivateKey),
		PublicKey:     cloneBytes(cfg.Token.PublicKey),
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
		KeyID:         cfg.Token.KeyID,
		VerifyKeys:    cfg.Token.VerifyKeys,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		challenges: stores.NewChallengeStore(b.redis, cfg.Challenge.RedisPrefix),
		sessions:   stores.NewSessionStore(b.redis, cfg.Session.RedisPrefix),
		limiter:    rate.New(b.redis, cfg.RateLimit.Retention),
		tokens:     tokens,
		audit:      newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:    NewMetrics(cfg.Metrics),
	}
	engine.reaper = engine.buildReaper()

	if cfg.Reaper.SweepOnStart {
		engine.reaper.RunOnce(context.Background())
	}
	if cfg.Reaper.Enabled {
		engine.reaper.Start()
	}

	b.built = true

	return engine, nil
}
