package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/homeservices/backend/internal/domain/catalog"
)

// InMemoryStatsCache implements StatsCache for single-instance deployments and tests
type InMemoryStatsCache struct {
	mu        sync.RWMutex
	stats     *catalog.DashboardStats
	expiresAt time.Time
	now       func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewInMemoryStatsCache creates an empty in-memory stats cache
func NewInMemoryStatsCache() *InMemoryStatsCache {
	return &InMemoryStatsCache{now: time.Now}
}

// Get returns the cached stats if they have not expired
func (c *InMemoryStatsCache) Get(ctx context.Context) (*catalog.DashboardStats, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.stats == nil || !c.now().Before(c.expiresAt) {
		c.misses.Add(1)
		return nil, false, nil
	}
	c.hits.Add(1)
	stats := *c.stats
	return &stats, true, nil
}

// Set stores a copy of stats; a non-positive ttl clears the cache instead
func (c *InMemoryStatsCache) Set(ctx context.Context, stats catalog.DashboardStats, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl <= 0 {
		c.stats = nil
		return nil
	}
	c.stats = &stats
	c.expiresAt = c.now().Add(ttl)
	return nil
}

// Invalidate drops the cached stats
func (c *InMemoryStatsCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.stats = nil
	c.mu.Unlock()
	return nil
}

// Close is a no-op
func (c *InMemoryStatsCache) Close() error {
	return nil
}

// Stats returns hit and miss counts since creation
func (c *InMemoryStatsCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

var _ StatsCache = (*InMemoryStatsCache)(nil)
