package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// LoginLimiter counts login attempts per client in fixed windows.
type LoginLimiter struct {
	client *redisv9.Client
	limit  int
	window time.Duration
}

func NewLoginLimiter(client *redisv9.Client, limit int, window time.Duration) *LoginLimiter {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		client: client,
		limit:  limit,
		window: window,
	}
}

// Allow records one attempt for key and reports whether it is within the
// limit. retryAfter is the time left in the current window.
func (l *LoginLimiter) Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error) {
	redisKey := l.limitKey(key)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis incr login attempts failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, fmt.Errorf("redis expire login attempts failed: %w", err)
		}
	}

	retryAfter, err = l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis ttl login attempts failed: %w", err)
	}
	if retryAfter < 0 {
		// Counter without expiry, e.g. a crash between INCR and EXPIRE.
		_ = l.client.Expire(ctx, redisKey, l.window).Err()
		retryAfter = l.window
	}
	return count <= int64(l.limit), retryAfter, nil
}

func (l *LoginLimiter) limitKey(key string) string {
	return "savora:login:" + key
}
