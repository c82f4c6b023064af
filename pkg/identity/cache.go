package identity

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
)

// CachingAuthenticator memoizes successful authentications in an expiring
// LRU so hot sessions skip the backing lookup. Failures are never cached;
// entries age out on their own, so a revocation is visible after at most
// one cache TTL.
type CachingAuthenticator struct {
	backend Authenticator
	cache   *expirable.LRU[string, string]
	hits    prometheus.Counter
	misses  prometheus.Counter
}

// NewCachingAuthenticator wraps backend with a cache of up to size entries
// expiring after ttl.
func NewCachingAuthenticator(backend Authenticator, size int, ttl time.Duration) *CachingAuthenticator {
	return &CachingAuthenticator{
		backend: backend,
		cache:   expirable.NewLRU[string, string](size, nil, ttl),
	}
}

// WithCounters attaches hit/miss counters. Either may be nil.
func (c *CachingAuthenticator) WithCounters(hits, misses prometheus.Counter) *CachingAuthenticator {
	c.hits = hits
	c.misses = misses
	return c
}

// Authenticate implements Authenticator.
func (c *CachingAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	tokenHash := HashToken(token)
	if userID, ok := c.cache.Get(tokenHash); ok {
		if c.hits != nil {
			c.hits.Inc()
		}
		return userID, nil
	}
	if c.misses != nil {
		c.misses.Inc()
	}

	userID, err := c.backend.Authenticate(ctx, token)
	if err != nil {
		return "", err
	}
	c.cache.Add(tokenHash, userID)
	return userID, nil
}
