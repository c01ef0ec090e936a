// Package cache provides read-through caches for public quote projections.
package cache

import (
	"context"
	"fmt"
	"time"

	quoteapp "github.com/quotedesk/backend/internal/application/quote"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultProjectionTTL = 5 * time.Minute

// Ensure RedisProjectionCache implements ProjectionCache
var _ quoteapp.ProjectionCache = (*RedisProjectionCache)(nil)

// RedisProjectionCache caches serialized public quote projections in Redis.
// Suitable for distributed deployments where multiple instances serve the
// public signing gateway.
type RedisProjectionCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
	ttl        time.Duration
	logger     *zap.Logger
}

// RedisProjectionCacheOption is a functional option for configuring the cache
type RedisProjectionCacheOption func(*RedisProjectionCache)

// WithProjectionTTL sets the expiration for cached projections
func WithProjectionTTL(ttl time.Duration) RedisProjectionCacheOption {
	return func(c *RedisProjectionCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RedisProjectionCacheOption {
	return func(c *RedisProjectionCache) {
		c.logger = logger
	}
}

// NewRedisProjectionCache creates a cache with its own Redis client
func NewRedisProjectionCache(addr, password string, db int, opts ...RedisProjectionCacheOption) (*RedisProjectionCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	cache := newRedisProjectionCache(client, opts...)
	cache.ownsClient = true
	return cache, nil
}

// NewRedisProjectionCacheWithClient creates a cache with an existing Redis client.
// The caller retains ownership of the client and is responsible for closing it.
func NewRedisProjectionCacheWithClient(client *redis.Client, opts ...RedisProjectionCacheOption) *RedisProjectionCache {
	return newRedisProjectionCache(client, opts...)
}

func newRedisProjectionCache(client *redis.Client, opts ...RedisProjectionCacheOption) *RedisProjectionCache {
	cache := &RedisProjectionCache{
		client:    client,
		keyPrefix: "quote:public:",
		ttl:       defaultProjectionTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

func (c *RedisProjectionCache) key(publicID string) string {
	return c.keyPrefix + publicID
}

// Get retrieves a cached projection. A miss is returned as (nil, nil).
func (c *RedisProjectionCache) Get(ctx context.Context, publicID string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(publicID)).Bytes()
	if err == redis.Nil {
		c.logger.Debug("Projection cache miss", zap.String("public_id", publicID))
		return nil, nil
	}
	if err != nil {
		c.logger.Error("Failed to read projection from cache",
			zap.String("public_id", publicID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to read projection from cache: %w", err)
	}
	return data, nil
}

// Set stores a serialized projection with the configured TTL
func (c *RedisProjectionCache) Set(ctx context.Context, publicID string, payload []byte) error {
	if err := c.client.Set(ctx, c.key(publicID), payload, c.ttl).Err(); err != nil {
		c.logger.Error("Failed to cache projection",
			zap.String("public_id", publicID),
			zap.Error(err))
		return fmt.Errorf("failed to cache projection: %w", err)
	}
	return nil
}

// Invalidate drops a cached projection, typically after the quote is signed
func (c *RedisProjectionCache) Invalidate(ctx context.Context, publicID string) error {
	if err := c.client.Del(ctx, c.key(publicID)).Err(); err != nil {
		c.logger.Error("Failed to invalidate projection",
			zap.String("public_id", publicID),
			zap.Error(err))
		return fmt.Errorf("failed to invalidate projection: %w", err)
	}
	return nil
}

// Close closes the Redis client if this cache owns it
func (c *RedisProjectionCache) Close() error {
	if !c.ownsClient {
		return nil
	}
	return c.client.Close()
}
