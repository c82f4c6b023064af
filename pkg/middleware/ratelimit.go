package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/celldb/celldb/pkg/observability"
)

// RateLimitConfig defines token-bucket rate limiting settings.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate.
	RequestsPerMinute int
	// Burst is the extra capacity above the sustained rate.
	Burst int
}

// DefaultRateLimitConfig returns the default limits.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{RequestsPerMinute: 300, Burst: 50}
}

func (c *RateLimitConfig) capacity() int {
	return c.RequestsPerMinute + c.Burst
}

// RateLimiter is an in-process token bucket limiter keyed per caller.
type RateLimiter struct {
	config  *RateLimitConfig
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// NewRateLimiter creates an in-process rate limiter.
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow consumes one token for key, reporting whether the request may
// proceed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(rl.config.capacity()), lastUpdate: now}
		rl.buckets[key] = b
	}

	elapsed := now.Sub(b.lastUpdate)
	b.tokens += elapsed.Minutes() * float64(rl.config.RequestsPerMinute)
	if limit := float64(rl.config.capacity()); b.tokens > limit {
		b.tokens = limit
	}
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Cleanup drops buckets idle for more than two windows.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * time.Minute)
	for key, b := range rl.buckets {
		if b.lastUpdate.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup periodically drops idle buckets until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimitMiddleware applies the in-process limiter per caller:
// authenticated callers are keyed by user id, anonymous ones by client IP.
type RateLimitMiddleware struct {
	limiter *RateLimiter
	metrics *observability.Metrics
}

// NewRateLimitMiddleware creates the middleware. metrics may be nil.
func NewRateLimitMiddleware(config *RateLimitConfig, metrics *observability.Metrics) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: NewRateLimiter(config), metrics: metrics}
}

// StartCleanup starts the idle bucket sweeper of the underlying limiter.
func (m *RateLimitMiddleware) StartCleanup(ctx context.Context) {
	m.limiter.StartCleanup(ctx)
}

// Handler wraps next with rate limiting.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.limiter.Allow(callerKey(r)) {
			if m.metrics != nil {
				m.metrics.RateLimitRejectedTotal.WithLabelValues("local").Inc()
			}
			writeRateLimited(w, 60)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerKey derives the rate limit key for a request.
func callerKey(r *http.Request) string {
	if id := IdentityFrom(r.Context()); id != nil {
		return "user:" + id.UserID
	}
	return "ip:" + clientIP(r)
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}

func writeRateLimited(w http.ResponseWriter, retryAfter int) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	w.WriteHeader(http.StatusTooManyRequests)
	w.Write([]byte(`{"error":"rate limit exceeded"}`))
}
