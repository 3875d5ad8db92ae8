package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

const (
	memoryMaxEntries  = 1000
	memoryDefaultTTL  = 24 * time.Hour
	memorySweepPeriod = 5 * time.Minute
)

type memoryEntry struct {
	data     []byte
	expireAt time.Time
	lastUsed time.Time
}

// MemoryCache is the in-process Service backend. Entries are JSON bytes
// so Get behaves identically to the Redis backend. When full, the least
// recently used entry is evicted.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	sweeper *time.Ticker
}

// NewMemoryCache creates an in-memory cache with a background sweep of
// expired entries.
func NewMemoryCache() *MemoryCache {
	mc := &MemoryCache{
		entries: make(map[string]*memoryEntry),
		sweeper: time.NewTicker(memorySweepPeriod),
	}
	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = memoryDefaultTTL
	}

	now := time.Now()
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.entries) >= memoryMaxEntries {
		mc.evictOldest()
	}
	mc.entries[key] = &memoryEntry{data: data, expireAt: now.Add(expiration), lastUsed: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	now := time.Now()

	mc.mu.Lock()
	e, ok := mc.entries[key]
	if !ok || now.After(e.expireAt) {
		if ok {
			delete(mc.entries, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	e.lastUsed = now
	data := e.data
	mc.mu.Unlock()

	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	for _, key := range keys {
		delete(mc.entries, key)
	}
	mc.mu.Unlock()
	return nil
}

// Close stops the background sweeper.
func (mc *MemoryCache) Close() error {
	mc.sweeper.Stop()
	return nil
}

// evictOldest drops the least recently used entry. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, e := range mc.entries {
		if oldestKey == "" || e.lastUsed.Before(oldest) {
			oldestKey = key
			oldest = e.lastUsed
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

func (mc *MemoryCache) sweep() {
	for range mc.sweeper.C {
		now := time.Now()
		mc.mu.Lock()
		for key, e := range mc.entries {
			if now.After(e.expireAt) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}
