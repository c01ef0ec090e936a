package cache

import (
	"context"
	"sync"
	"time"

	quoteapp "github.com/quotedesk/backend/internal/application/quote"
)

// Ensure InMemoryProjectionCache implements ProjectionCache
var _ quoteapp.ProjectionCache = (*InMemoryProjectionCache)(nil)

type cachedProjection struct {
	payload   []byte
	expiresAt time.Time
}

// InMemoryProjectionCache is a process-local projection cache.
// Use this for development and single-instance deployments where Redis
// is not available. Entries expire lazily on read.
type InMemoryProjectionCache struct {
	mu      sync.RWMutex
	entries map[string]cachedProjection
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryProjectionCache creates a cache with the given TTL.
// A non-positive TTL falls back to the default.
func NewInMemoryProjectionCache(ttl time.Duration) *InMemoryProjectionCache {
	if ttl <= 0 {
		ttl = defaultProjectionTTL
	}
	return &InMemoryProjectionCache{
		entries: make(map[string]cachedProjection),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get retrieves a cached projection. A miss is returned as (nil, nil).
func (c *InMemoryProjectionCache) Get(ctx context.Context, publicID string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[publicID]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, publicID)
		c.mu.Unlock()
		return nil, nil
	}

	payload := make([]byte, len(entry.payload))
	copy(payload, entry.payload)
	return payload, nil
}

// Set stores a serialized projection with the configured TTL
func (c *InMemoryProjectionCache) Set(ctx context.Context, publicID string, payload []byte) error {
	buf := make([]byte, len(payload))
	copy(buf, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[publicID] = cachedProjection{
		payload:   buf,
		expiresAt: c.now().Add(c.ttl),
	}
	return nil
}

// Invalidate drops a cached projection
func (c *InMemoryProjectionCache) Invalidate(ctx context.Context, publicID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, publicID)
	return nil
}

// Len reports the number of live entries, expired ones included
func (c *InMemoryProjectionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
