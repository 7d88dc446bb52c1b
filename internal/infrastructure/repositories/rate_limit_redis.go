package repositories

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/henzogomes/git-shame/internal/core/ports"
)

// RedisRateLimiter is a fixed-window limiter sharing counters across
// processes. Window buckets are encoded in the key so expiry is handled by
// Redis TTLs instead of sweeps.
type RedisRateLimiter struct {
	client    redis.Cmdable
	max       int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewRedisRateLimiter creates a limiter admitting max requests per window
// per identifier, counted in Redis.
func NewRedisRateLimiter(client redis.Cmdable, max int, window time.Duration, keyPrefix string) *RedisRateLimiter {
	return &RedisRateLimiter{
		client:    client,
		max:       max,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

var _ ports.RateLimiter = (*RedisRateLimiter)(nil)

func (l *RedisRateLimiter) key(identifier string, windowStart time.Time) string {
	return fmt.Sprintf("%s:%s:%d", l.keyPrefix, identifier, windowStart.Unix())
}

// Allow atomically increments the identifier's counter for the current
// window bucket. Counts past the limit are harmless; the bucket key expires
// with the window.
func (l *RedisRateLimiter) Allow(ctx context.Context, identifier string) (bool, error) {
	windowStart := l.now().Truncate(l.window)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, l.key(identifier, windowStart))
	pipe.Expire(ctx, l.key(identifier, windowStart), l.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to increment rate limit window: %w", err)
	}

	return incr.Val() <= int64(l.max), nil
}

// ResetSeconds returns the seconds left in the current window bucket.
func (l *RedisRateLimiter) ResetSeconds(ctx context.Context, identifier string) (int, error) {
	now := l.now()
	windowStart := now.Truncate(l.window)

	exists, err := l.client.Exists(ctx, l.key(identifier, windowStart)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to probe rate limit window: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	remaining := windowStart.Add(l.window).Sub(now)
	if remaining <= 0 {
		return 0, nil
	}
	return int(math.Ceil(remaining.Seconds())), nil
}
