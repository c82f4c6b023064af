package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/celldb/celldb/pkg/observability"
)

// DistributedRateLimiter shares a fixed-window counter across instances
// through Redis.
type DistributedRateLimiter struct {
	redis  *redis.Client
	config *RateLimitConfig
	prefix string
	window time.Duration
}

// NewDistributedRateLimiter creates a Redis-backed limiter.
func NewDistributedRateLimiter(redisClient *redis.Client, config *RateLimitConfig, prefix string) *DistributedRateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &DistributedRateLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
		window: time.Minute,
	}
}

// Allow increments the caller's window counter and reports whether the
// request is under the limit. Burst headroom applies within the window.
func (rl *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", rl.prefix, key)

	pipe := rl.redis.Pipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}

	return incr.Val() <= int64(rl.config.capacity()), nil
}

// TTL returns the time until the caller's window resets.
func (rl *DistributedRateLimiter) TTL(ctx context.Context, key string) (time.Duration, error) {
	return rl.redis.TTL(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Result()
}

// Reset clears the caller's counter.
func (rl *DistributedRateLimiter) Reset(ctx context.Context, key string) error {
	return rl.redis.Del(ctx, fmt.Sprintf("%s:%s", rl.prefix, key)).Err()
}

// DistributedRateLimitMiddleware applies the Redis-backed limiter per
// caller. Redis failures fail open so a cache outage cannot take the API
// down with it.
type DistributedRateLimitMiddleware struct {
	limiter *DistributedRateLimiter
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewDistributedRateLimitMiddleware creates the middleware. metrics may be
// nil.
func NewDistributedRateLimitMiddleware(redisClient *redis.Client, config *RateLimitConfig, logger *observability.Logger, metrics *observability.Metrics) *DistributedRateLimitMiddleware {
	return &DistributedRateLimitMiddleware{
		limiter: NewDistributedRateLimiter(redisClient, config, "ratelimit"),
		logger:  logger,
		metrics: metrics,
	}
}

// Handler wraps next with distributed rate limiting.
func (m *DistributedRateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := callerKey(r)

		allowed, err := m.limiter.Allow(ctx, key)
		if err != nil {
			m.logger.WithError(err).Warn("rate limit check failed, failing open")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			if m.metrics != nil {
				m.metrics.RateLimitRejectedTotal.WithLabelValues("redis").Inc()
			}
			retryAfter := 60
			if ttl, err := m.limiter.TTL(ctx, key); err == nil && ttl > 0 {
				retryAfter = int(ttl.Seconds()) + 1
			}
			writeRateLimited(w, retryAfter)
			return
		}
		next.ServeHTTP(w, r)
	})
}
