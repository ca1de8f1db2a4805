package cache

import (
	"sync"
	"time"

	"github.com/envimetry/pipeline/internal/telemetry"
)

// MemoryCache is a map-backed cache for tests and single-shot runs.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   telemetry.Clock
}

// NewMemoryCache returns an empty in-memory cache.
func NewMemoryCache(clock telemetry.Clock) *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), clock: clock}
}

// Get returns the payload for key if present and younger than ttl.
func (c *MemoryCache) Get(key string, ttl time.Duration) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !e.fresh(c.clock.Now(), ttl) {
		return nil, false
	}
	return e.Payload, true
}

// Put stores the payload for key, stamping the current time.
func (c *MemoryCache) Put(key string, payload []byte) error {
	c.mu.Lock()
	c.entries[key] = entry{CachedAt: c.clock.Now(), Payload: payload}
	c.mu.Unlock()
	return nil
}

// Len reports the number of stored entries regardless of freshness.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
