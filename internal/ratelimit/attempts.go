package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "auth:login_failures"

// AttemptLimiter counts failed attempts per key in a fixed window shared by
// every instance through Redis. A nil limiter or max <= 0 never blocks.
type AttemptLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
	prefix string
}

// NewAttemptLimiter builds a limiter. An empty prefix uses the login default.
func NewAttemptLimiter(client *redis.Client, max int, window time.Duration, prefix string) *AttemptLimiter {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &AttemptLimiter{client: client, max: max, window: window, prefix: prefix}
}

func (l *AttemptLimiter) enabled() bool {
	return l != nil && l.client != nil && l.max > 0
}

func (l *AttemptLimiter) key(k string) string {
	return fmt.Sprintf("%s:%s", l.prefix, strings.ToLower(k))
}

// Blocked reports whether key has reached the failure limit. On Redis errors
// it returns false together with the error so callers can fail open.
func (l *AttemptLimiter) Blocked(ctx context.Context, key string) (bool, error) {
	if !l.enabled() {
		return false, nil
	}
	count, err := l.client.Get(ctx, l.key(key)).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return count >= l.max, nil
}

// RecordFailure increments the counter, starting the window on the first failure.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, key string) (int64, error) {
	if !l.enabled() {
		return 0, nil
	}
	redisKey := l.key(key)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.ExpireNX(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the counter for key.
func (l *AttemptLimiter) Reset(ctx context.Context, key string) error {
	if !l.enabled() {
		return nil
	}
	return l.client.Del(ctx, l.key(key)).Err()
}

// TTL returns the time until the window for key resets.
func (l *AttemptLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	if !l.enabled() {
		return 0, nil
	}
	return l.client.TTL(ctx, l.key(key)).Result()
}
