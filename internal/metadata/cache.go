package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "bookcatalog:metadata:"

// CacheStore is the part of a redis client the cache needs.
type CacheStore interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// Cache keeps successful lookups in redis. Cache failures are logged and
// the provider is consulted as if the entry were absent.
type Cache struct {
	store  CacheStore
	next   Lookup
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(store CacheStore, next Lookup, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, next: next, ttl: ttl, logger: logger}
}

func (c *Cache) Lookup(ctx context.Context, isbn string) (Metadata, error) {
	key := cacheKeyPrefix + isbn

	raw, err := c.store.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var m Metadata
		if jsonErr := json.Unmarshal(raw, &m); jsonErr == nil {
			return m, nil
		}
		c.logger.Warn("discarding corrupt metadata cache entry", zap.String("isbn", isbn))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("metadata cache read failed", zap.String("isbn", isbn), zap.Error(err))
	}

	m, err := c.next.Lookup(ctx, isbn)
	if err != nil {
		return Metadata{}, err
	}

	if payload, err := json.Marshal(m); err == nil {
		if err := c.store.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("metadata cache write failed", zap.String("isbn", isbn), zap.Error(err))
		}
	}
	return m, nil
}
