package cache

import (
	"context"
	"fmt"

	"github.com/homeservices/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// StatsCacheFactory picks a StatsCache implementation based on configuration
type StatsCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// StatsCacheFactoryOption is a functional option for configuring the factory
type StatsCacheFactoryOption func(*StatsCacheFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StatsCacheFactoryOption {
	return func(f *StatsCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the in-memory cache.
// Default is true.
func WithInMemoryFallback(allow bool) StatsCacheFactoryOption {
	return func(f *StatsCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewStatsCacheFactory creates a new factory
func NewStatsCacheFactory(cfg config.RedisConfig, opts ...StatsCacheFactoryOption) *StatsCacheFactory {
	f := &StatsCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns the Redis cache when Redis is enabled and reachable, otherwise
// the in-memory cache if fallback is allowed.
func (f *StatsCacheFactory) Create(ctx context.Context) (StatsCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory stats cache")
		return NewInMemoryStatsCache(), nil
	}

	store, err := NewRedisStatsCache(ctx, RedisConfig{
		Addr:     f.redisConfig.Addr(),
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis stats cache", zap.String("addr", f.redisConfig.Addr()))
		return store, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for stats cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stats cache. "+
		"Dashboard numbers may differ between instances until the TTL expires.",
		zap.Error(err),
	)
	return NewInMemoryStatsCache(), nil
}
