// Package cache holds the dashboard statistics cache: Redis when configured,
// an in-process map otherwise.
package cache

import (
	"context"
	"time"

	"github.com/homeservices/backend/internal/domain/catalog"
)

// DashboardStatsKey is the single key the dashboard aggregate is stored under
const DashboardStatsKey = "catalog:dashboard_stats"

// StatsCache caches the dashboard aggregate between category mutations
type StatsCache interface {
	// Get returns the cached stats; ok is false on a miss or after expiry
	Get(ctx context.Context) (stats *catalog.DashboardStats, ok bool, err error)
	// Set stores stats for ttl
	Set(ctx context.Context, stats catalog.DashboardStats, ttl time.Duration) error
	// Invalidate drops the cached value so the next read recomputes it
	Invalidate(ctx context.Context) error
	Close() error
}
