package rate

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "prl"

// Limiter enforces a fixed-window request budget per client fingerprint
// using Redis counters.
type Limiter struct {
	redis     redis.UniversalClient
	retention time.Duration
}

// New creates a [Limiter] backed by the given Redis client. retention is the
// TTL applied to window counter keys; it must be at least as long as the
// largest window the caller will use.
func New(redisClient redis.UniversalClient, retention time.Duration) *Limiter {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Limiter{
		redis:     redisClient,
		retention: retention,
	}
}

// CheckAndIncrement counts a request against the fingerprint's current window
// and returns [ErrRateLimited] once the count exceeds limit. The counter is
// always incremented first, so throttled clients keep consuming budget and
// stay throttled until a fresh window opens.
func (l *Limiter) CheckAndIncrement(ctx context.Context, fingerprint [32]byte, now time.Time, limit int, window time.Duration) error {
	key := windowKey(fingerprint, windowStartMS(now, window))

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.retention).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}
	}

	if count > int64(limit) {
		return ErrRateLimited
	}

	return nil
}

// SweepWindows deletes counter keys whose window started more than the
// retention period before now. Returns how many keys were removed.
func (l *Limiter) SweepWindows(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-l.retention).UnixMilli()
	removed := 0

	var cursor uint64
	for {
		keys, next, err := l.redis.Scan(ctx, cursor, keyPrefix+":*", 256).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}

		for _, key := range keys {
			start, ok := parseWindowStart(key)
			if !ok || start >= cutoff {
				continue
			}
			if err := l.redis.Del(ctx, key).Err(); err != nil {
				return removed, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
			}
			removed++
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func windowStartMS(now time.Time, window time.Duration) int64 {
	windowMS := window.Milliseconds()
	if windowMS <= 0 {
		windowMS = 1
	}
	return (now.UnixMilli() / windowMS) * windowMS
}

func windowKey(fingerprint [32]byte, startMS int64) string {
	fp := base64.RawURLEncoding.EncodeToString(fingerprint[:])
	return keyPrefix + ":" + fp + ":" + strconv.FormatInt(startMS, 10)
}

func parseWindowStart(key string) (int64, bool) {
	idx := strings.LastIndexByte(key, ':')
	if idx < 0 || idx == len(key)-1 {
		return 0, false
	}
	start, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return 0, false
	}
	return start, true
}
