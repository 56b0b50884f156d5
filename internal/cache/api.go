// Copyright (c) 2026 The FASTODIGAMA Authors
// All rights reserved. See LICENSE for details.

// api.go caches rendered JSON responses of the public API in Valkey.
// Entries are keyed by request URI and dropped wholesale whenever an
// article, category or menu link changes.
package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	apiKeyPrefix = "api:"

	// DefaultAPITTL bounds staleness if an invalidation is missed.
	DefaultAPITTL = 60 * time.Second
)

// APICache stores JSON response bodies in Valkey.
type APICache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAPICache creates an API cache. A zero ttl selects DefaultAPITTL.
func NewAPICache(client *redis.Client, ttl time.Duration) *APICache {
	if ttl == 0 {
		ttl = DefaultAPITTL
	}
	return &APICache{client: client, ttl: ttl}
}

// Get returns the cached body for key. Errors count as misses.
func (c *APICache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, apiKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		slog.Warn("api cache get error", "key", key, "error", err)
		return nil, false
	}
	slog.Debug("api cache hit", "key", key)
	return val, true
}

// Set stores body under key with the configured TTL.
func (c *APICache) Set(ctx context.Context, key string, body []byte) {
	if err := c.client.Set(ctx, apiKeyPrefix+key, body, c.ttl).Err(); err != nil {
		slog.Warn("api cache set error", "key", key, "error", err)
	}
}

// InvalidateAll removes every cached API response.
func (c *APICache) InvalidateAll(ctx context.Context) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, apiKeyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("api cache scan error", "error", err)
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("api cache bulk delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	if deleted > 0 {
		slog.Info("api cache cleared", "deleted", deleted)
	}
}
