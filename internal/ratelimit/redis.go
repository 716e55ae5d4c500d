package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window Limiter sharing its budget across server
// instances via INCR + EXPIRE.
type Redis struct {
	rdb    *redis.Client
	max    int
	period time.Duration
	prefix string
}

// NewRedis creates a Redis-backed limiter allowing max requests per period.
func NewRedis(rdb *redis.Client, max int, period time.Duration, prefix string) *Redis {
	return &Redis{rdb: rdb, max: max, period: period, prefix: prefix}
}

// Allow implements Limiter.
func (r *Redis) Allow(ctx context.Context, key string) (Result, error) {
	k := r.prefix + ":" + key

	count, err := r.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := r.rdb.Expire(ctx, k, r.period).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	ttl, err := r.rdb.TTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		ttl = r.period
	}
	resetAt := time.Now().Add(ttl)

	remaining := r.max - int(count)
	if remaining < 0 {
		remaining = 0
	}
	if int(count) > r.max {
		return Result{Allowed: false, Remaining: 0, RetryAfter: ttl, ResetAt: resetAt}, nil
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: resetAt}, nil
}
