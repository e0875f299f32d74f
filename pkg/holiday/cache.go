package holiday

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Cache stores resolved per-year holiday calendars so repeated builds
// do not re-resolve the same jurisdiction.
type Cache interface {
	Get(ctx context.Context, j Jurisdiction, year int) ([]time.Time, bool)
	Put(ctx context.Context, j Jurisdiction, year int, days []time.Time)
}

// NopCache is a Cache that stores nothing.
type NopCache struct{}

// Get implements Cache.
func (NopCache) Get(context.Context, Jurisdiction, int) ([]time.Time, bool) { return nil, false }

// Put implements Cache.
func (NopCache) Put(context.Context, Jurisdiction, int, []time.Time) {}

// MemoryCache is a process-local Cache safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string][]time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string][]time.Time)}
}

// Get implements Cache.
func (c *MemoryCache) Get(_ context.Context, j Jurisdiction, year int) ([]time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	days, ok := c.entries[cacheKey(j, year)]
	return days, ok
}

// Put implements Cache.
func (c *MemoryCache) Put(_ context.Context, j Jurisdiction, year int, days []time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(j, year)] = days
}

func cacheKey(j Jurisdiction, year int) string {
	return fmt.Sprintf("%s:%d", j, year)
}
