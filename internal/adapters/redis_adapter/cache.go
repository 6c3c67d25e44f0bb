// internal/adapters/redis_adapter/cache.go
package redis_a

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ammerola/stockledger/internal/core/ports"
)

// Namespace is the first segment of a cache key. Callers outside this
// package own their own prefixes.
type Namespace string

const NamespaceIdempotency Namespace = "idem"

// ErrFetch wraps failures of the fetch function given to GetOrSet, so callers
// can tell them apart from redis failures
var ErrFetch = errors.New("cache fill failed")

// Cache stores JSON payloads in redis. Concurrent misses on one key share a
// single fetch.
type Cache struct {
	client     *redis.Client
	defaultTTL time.Duration
	fills      singleflight.Group
	logger     *slog.Logger
}

var _ ports.CacheRepository = (*Cache)(nil)

// NewCache creates a cache. defaultTTL applies when a caller passes ttl <= 0.
func NewCache(client *redis.Client, defaultTTL time.Duration, logger *slog.Logger) *Cache {
	return &Cache{
		client:     client,
		defaultTTL: defaultTTL,
		logger:     logger.With(slog.String("component", "cache")),
	}
}

// GetOrSet serves key from redis or fills it with fetch. Failing to store a
// fetched value is logged and the value is still returned.
func (c *Cache) GetOrSet(ctx context.Context, key string, dest interface{},
	fetch func() (interface{}, error), ttl time.Duration) error {

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		c.logger.DebugContext(ctx, "cache hit", slog.String("key", key))
		return decode(key, data, dest)
	case !errors.Is(err, redis.Nil):
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	v, err, shared := c.fills.Do(key, func() (interface{}, error) {
		value, err := fetch()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrFetch, key, err)
		}
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if err := c.client.Set(ctx, key, data, c.ttl(ttl)).Err(); err != nil {
			c.logger.WarnContext(ctx, "cache fill not stored",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	c.logger.DebugContext(ctx, "cache filled",
		slog.String("key", key),
		slog.Bool("shared", shared))
	return decode(key, v.([]byte), dest)
}

// Claim sets key with SET NX
func (c *Cache) Claim(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", key, err)
	}

	ok, err := c.client.SetNX(ctx, key, data, c.ttl(ttl)).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return ok, nil
}

func (c *Cache) ttl(ttl time.Duration) time.Duration {
	if ttl > 0 {
		return ttl
	}
	return c.defaultTTL
}

func decode(key string, data []byte, dest interface{}) error {
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// BuildKey joins parts under a namespace with ':'
func BuildKey(ns Namespace, parts ...string) string {
	if len(parts) == 0 {
		return string(ns)
	}
	return string(ns) + ":" + strings.Join(parts, ":")
}
