// Package ratelimit provides per-IP request limiting for the auth endpoints,
// backed by Redis. A fixed window counter is kept per (purpose, ip) pair.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRequests = 10
	defaultWindow      = time.Minute
)

// Limiter is implemented by RedisLimiter and NoopLimiter. The noop variant
// backs the memory storage mode, where no Redis is available.
type Limiter interface {
	// CheckIPRateLimitWithPurpose reports whether the ip has exceeded the
	// request budget for the given purpose (e.g. "login", "signup").
	CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error)
	// RecordIPRequestWithPurpose counts one request against the budget.
	RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error
}

// RedisLimiter counts requests in Redis with a TTL'd key per window.
type RedisLimiter struct {
	client      *redis.Client
	maxRequests int
	window      time.Duration
}

func NewLimiter(client *redis.Client) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxRequests: defaultMaxRequests,
		window:      defaultWindow,
	}
}

func rateLimitKey(purpose, ip string) string {
	return fmt.Sprintf("ratelimit:%s:%s", purpose, ip)
}

func (l *RedisLimiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, rateLimitKey(purpose, ip)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= l.maxRequests, nil
}

func (l *RedisLimiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := rateLimitKey(purpose, ip)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	// NX keeps the window anchored at the first request
	pipe.ExpireNX(ctx, key, l.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}

// NoopLimiter never limits. Used when Redis is not configured.
type NoopLimiter struct{}

func NewNoopLimiter() *NoopLimiter {
	return &NoopLimiter{}
}

func (l *NoopLimiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	return false, nil
}

func (l *NoopLimiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	return nil
}
