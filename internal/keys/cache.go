package keys

import (
	"context"
	"crypto/rsa"
	"sync"
	"time"
)

var _ PublicKeyResolver = (*Cache)(nil)

type cacheKey struct {
	issuer string
	keyID  string
}

type cacheEntry struct {
	key       *rsa.PublicKey
	expiresAt time.Time
}

// Cache is a bounded, time-boxed cache in front of another resolver.
// An entry is never served after its TTL; failed lookups are not cached.
type Cache struct {
	next       PublicKeyResolver
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[cacheKey]cacheEntry
}

func NewCache(next PublicKeyResolver, ttl time.Duration, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = 16
	}
	return &Cache{
		next:       next,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[cacheKey]cacheEntry),
	}
}

// WithCache wraps next in a Cache if ttl is positive and returns next unchanged otherwise.
func WithCache(next PublicKeyResolver, ttl time.Duration, maxEntries int) PublicKeyResolver {
	if ttl <= 0 {
		return next
	}
	return NewCache(next, ttl, maxEntries)
}

func (c *Cache) ResolvePublicKey(ctx context.Context, issuer, keyID string) (*rsa.PublicKey, error) {
	k := cacheKey{issuer: issuer, keyID: keyID}

	c.mu.Lock()
	entry, ok := c.entries[k]
	if ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.key, nil
	}
	delete(c.entries, k)
	c.mu.Unlock()

	key, err := c.next.ResolvePublicKey(ctx, issuer, keyID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[k] = cacheEntry{key: key, expiresAt: c.now().Add(c.ttl)}
	return key, nil
}

// Len returns the number of entries, including expired ones not yet pruned.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) pruneLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

func (c *Cache) evictOldestLocked() {
	var (
		oldest    cacheKey
		oldestExp time.Time
		found     bool
	)
	for k, e := range c.entries {
		if !found || e.expiresAt.Before(oldestExp) {
			oldest, oldestExp, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.entries, oldest)
	}
}
