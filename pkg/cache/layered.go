package cache

import (
	"context"
	"encoding/json"
	"time"
)

// LayeredCache fronts Redis with the in-process cache. Reads hit memory
// first; writes go through to Redis before the local copy is updated.
type LayeredCache struct {
	local  *MemoryCache
	remote *RedisCache
}

// localTTL bounds how stale the in-process layer can drift from Redis.
const localTTL = 30 * time.Second

// NewLayeredCache combines a fresh memory layer with the given Redis
// backend.
func NewLayeredCache(remote *RedisCache) *LayeredCache {
	return &LayeredCache{local: NewMemoryCache(), remote: remote}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	ttl := expiration
	if ttl <= 0 || ttl > localTTL {
		ttl = localTTL
	}
	_ = lc.local.Set(ctx, key, value, ttl)
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.local.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	// Populate the local layer from the value we just decoded.
	if data, err := json.Marshal(dest); err == nil {
		var raw json.RawMessage = data
		_ = lc.local.Set(ctx, key, raw, localTTL)
	}
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.local.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Close releases both layers.
func (lc *LayeredCache) Close() error {
	_ = lc.local.Close()
	return lc.remote.Close()
}
