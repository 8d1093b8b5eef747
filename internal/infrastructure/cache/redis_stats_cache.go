package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/homeservices/backend/internal/domain/catalog"
	"github.com/redis/go-redis/v9"
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStatsCache implements StatsCache on Redis so every API instance sees the
// same aggregate and one instance's invalidation clears it for all.
type RedisStatsCache struct {
	client *redis.Client
	key    string
}

// NewRedisStatsCache connects to Redis and verifies the connection with a ping
func NewRedisStatsCache(ctx context.Context, cfg RedisConfig) (*RedisStatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStatsCacheWithClient(client, ""), nil
}

// NewRedisStatsCacheWithClient wraps an existing client. An empty key uses DashboardStatsKey.
func NewRedisStatsCacheWithClient(client *redis.Client, key string) *RedisStatsCache {
	if key == "" {
		key = DashboardStatsKey
	}
	return &RedisStatsCache{client: client, key: key}
}

// Get reads and decodes the cached stats
func (c *RedisStatsCache) Get(ctx context.Context) (*catalog.DashboardStats, bool, error) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read dashboard stats: %w", err)
	}

	var stats catalog.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		// A corrupt entry is treated as a miss and removed
		_ = c.client.Del(ctx, c.key).Err()
		return nil, false, nil
	}
	return &stats, true, nil
}

// Set encodes stats as JSON and stores them with ttl
func (c *RedisStatsCache) Set(ctx context.Context, stats catalog.DashboardStats, ttl time.Duration) error {
	if ttl <= 0 {
		return c.Invalidate(ctx)
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard stats: %w", err)
	}
	if err := c.client.Set(ctx, c.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dashboard stats: %w", err)
	}
	return nil
}

// Invalidate deletes the cached stats
func (c *RedisStatsCache) Invalidate(ctx context.Context) error {
	if err := c.client.Del(ctx, c.key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate dashboard stats: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (c *RedisStatsCache) Close() error {
	return c.client.Close()
}

// Ping reports whether Redis is reachable, for health checks
func (c *RedisStatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

var _ StatsCache = (*RedisStatsCache)(nil)
