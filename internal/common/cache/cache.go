// internal/common/cache/cache.go
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chatdb-workers/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores executor results in redis keyed by a digest of the
// executed query. A nil *ResultCache is valid and never hits.
type ResultCache struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func New(client redis.Cmdable, prefix string, ttl time.Duration) *ResultCache {
	return &ResultCache{client: client, prefix: prefix, ttl: ttl}
}

// Key digests the JSON form of parts. Equal queries give equal keys.
func (c *ResultCache) Key(parts ...interface{}) (string, error) {
	if c == nil {
		return "", nil
	}
	raw, err := json.Marshal(parts)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return c.prefix + hex.EncodeToString(sum[:]), nil
}

// Get decodes the cached value into dest and reports whether it was found.
func (c *ResultCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if c == nil {
		return false, nil
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.ResultCacheLookups.WithLabelValues("miss").Inc()
		return false, nil
	case err != nil:
		metrics.ResultCacheLookups.WithLabelValues("error").Inc()
		return false, fmt.Errorf("cache get: %w", err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		metrics.ResultCacheLookups.WithLabelValues("error").Inc()
		return false, fmt.Errorf("cache decode: %w", err)
	}
	metrics.ResultCacheLookups.WithLabelValues("hit").Inc()
	return true, nil
}

// Set stores value for the configured TTL.
func (c *ResultCache) Set(ctx context.Context, key string, value interface{}) error {
	if c == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
