package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache: key not found")

// Service is the shared read-through cache. Values are stored as JSON so
// the same keys work across the memory, Redis, and layered backends.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
}

// GenerateKey builds a namespaced cache key.
func GenerateKey(prefix, id string) string {
	return prefix + ":" + id
}
