package catalog

import (
	"context"

	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/homeservices/backend/internal/domain/shared"
	"github.com/homeservices/backend/internal/infrastructure/cache"
	"go.uber.org/zap"
)

// StatsCacheInvalidator drops the cached dashboard stats whenever a category changes
type StatsCacheInvalidator struct {
	cache  cache.StatsCache
	logger *zap.Logger
}

// NewStatsCacheInvalidator creates a handler for category events
func NewStatsCacheInvalidator(c cache.StatsCache, logger *zap.Logger) *StatsCacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsCacheInvalidator{cache: c, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *StatsCacheInvalidator) EventTypes() []string {
	return catalog.CategoryEventTypes
}

// Handle invalidates the stats cache
func (h *StatsCacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("Failed to invalidate dashboard stats",
			zap.String("event_type", event.EventType()),
			zap.String("category_id", event.AggregateID().String()),
			zap.Error(err),
		)
		return err
	}
	h.logger.Debug("Dashboard stats invalidated", zap.String("event_type", event.EventType()))
	return nil
}

var _ shared.EventHandler = (*StatsCacheInvalidator)(nil)
