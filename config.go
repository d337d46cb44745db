package powgate

import (
	"errors"
	"fmt"
	"time"

	"github.com/powgate/powgate/pow"
	"github.com/powgate/powgate/token"
)

// Config holds all Engine tuning parameters. Instances are read during
// [Builder.Build] and treated as immutable afterwards.
type Config struct {
	Challenge ChallengeConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Reaper    ReaperConfig
	Token     TokenConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// ChallengeConfig controls puzzle issuance.
type ChallengeConfig struct {
	// DifficultyBits is the required count of leading zero bits in a
	// solution digest. Valid range is 1 through 32.
	DifficultyBits uint8
	// TTL is how long a client has to submit a solution.
	TTL time.Duration
	// ExpiredGrace keeps expired challenge records around past their
	// deadline so late submissions can be told "expired" rather than
	// "not found". The reaper and Redis TTLs remove them afterwards.
	ExpiredGrace time.Duration
	// RedisPrefix namespaces challenge keys. Defaults to "pc".
	RedisPrefix string
}

// SessionConfig controls the solved-state sessions minted on successful
// submission.
type SessionConfig struct {
	// TTL is the session lifetime. Sessions are never extended; a client
	// solves a fresh challenge when its session lapses.
	TTL time.Duration
	// RedisPrefix namespaces session keys. Defaults to "ps".
	RedisPrefix string
}

// RateLimitConfig controls fixed-window throttling of challenge issuance.
type RateLimitConfig struct {
	// MaxRequests is the issuance budget per fingerprint per window.
	MaxRequests int
	// Window is the fixed window length, aligned to wall-clock
	// boundaries.
	Window time.Duration
	// Retention is the TTL on window counter keys. Must be at least
	// Window.
	Retention time.Duration
}

// ReaperConfig controls the background sweep of expired records.
type ReaperConfig struct {
	// Enabled starts the sweep loop during Build. Redis TTLs still bound
	// key lifetime when disabled.
	Enabled bool
	// Interval between sweep passes.
	Interval time.Duration
	// SweepOnStart runs one pass synchronously during Build.
	SweepOnStart bool
}

// TokenConfig controls session token signing. Fields mirror
// [token.Config]; see that package for key format details.
type TokenConfig struct {
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// AuditConfig controls the asynchronous audit event pipeline.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking when the buffer is
	// full. Dropped counts are visible via [Engine.AuditDropped].
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled bool
	// EnableLatencyHistograms additionally tracks a submit-verification
	// latency histogram.
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration [New] starts from: 23-bit
// difficulty, 2-minute challenges, 1-hour sessions, 10 issuances per minute
// per fingerprint. Callers adjust fields and pass the result to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Challenge: ChallengeConfig{
			DifficultyBits: 23,
			TTL:            2 * time.Minute,
			ExpiredGrace:   30 * time.Second,
			RedisPrefix:    "pc",
		},
		Session: SessionConfig{
			TTL:         time.Hour,
			RedisPrefix: "ps",
		},
		RateLimit: RateLimitConfig{
			MaxRequests: 10,
			Window:      time.Minute,
			Retention:   time.Hour,
		},
		Reaper: ReaperConfig{
			Enabled:      true,
			Interval:     time.Minute,
			SweepOnStart: false,
		},
		Token: TokenConfig{
			SigningMethod: string(token.MethodHS256),
			Issuer:        "powgate",
			Leeway:        30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for internally inconsistent or
// out-of-range values.
func (c *Config) Validate() error {
	if c.Challenge.DifficultyBits < pow.MinDifficultyBits || c.Challenge.DifficultyBits > pow.MaxDifficultyBits {
		return fmt.Errorf("challenge difficulty must be between %d and %d bits", pow.MinDifficultyBits, pow.MaxDifficultyBits)
	}
	if c.Challenge.TTL <= 0 {
		return errors.New("challenge TTL must be positive")
	}
	if c.Challenge.ExpiredGrace < 0 {
		return errors.New("challenge expired grace must not be negative")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session TTL must be positive")
	}
	if c.RateLimit.MaxRequests <= 0 {
		return errors.New("rate limit max requests must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if c.RateLimit.Retention < c.RateLimit.Window {
		return errors.New("rate limit retention must be at least one window")
	}
	if c.Reaper.Enabled && c.Reaper.Interval <= 0 {
		return errors.New("reaper interval must be positive")
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer size must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	if cfg.Token.VerifyKeys != nil {
		out.Token.VerifyKeys = make(map[string][]byte, len(cfg.Token.VerifyKeys))
		for kid, key := range cfg.Token.VerifyKeys {
			out.Token.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
