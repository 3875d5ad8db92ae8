package cache

import "time"

// BytesCache stores serialized HTTP responses with a TTL. Implementations
// are process-local or Redis-backed; callers treat a miss and an error
// the same way and fall through to the source.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
