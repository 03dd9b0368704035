// Package ratelimit throttles OTP issuance and login attempts.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/bank_system/internal/apperr"
)

// ErrLimited is returned when a key exceeded its attempts for the window.
var ErrLimited = fmt.Errorf("%w: too many attempts, try again later", apperr.ErrAuthentication)

// Limiter counts attempts per key.
type Limiter interface {
	// Allow records an attempt for key and reports whether it is within the
	// limit.
	Allow(ctx context.Context, key string) (bool, error)
}

// Unlimited allows everything.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// RedisLimiter is a fixed-window counter kept in Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisLimiter allows limit attempts per key within window.
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

// Allow fails open: a Redis error allows the attempt and is returned so the
// caller can log it.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	k := l.prefix + "rl:" + key
	cnt, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return true, fmt.Errorf("rate limit incr: %w", err)
	}
	if cnt == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return true, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return cnt <= int64(l.limit), nil
}
