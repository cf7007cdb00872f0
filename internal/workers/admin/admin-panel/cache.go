package adminpanel

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"applicant-gate/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

// StatsCache keeps the admin counters in Redis under StatsCacheKey. A nil
// client or a zero TTL disables it; every method is then a no-op.
type StatsCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewStatsCache(rdb *redis.Client, ttl time.Duration, log logger.Logger) *StatsCache {
	return &StatsCache{
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, ComponentName),
	}
}

func (c *StatsCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

func (c *StatsCache) Get(ctx context.Context) (*Stats, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.redis.Get(ctx, StatsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("stats cache read failed", map[string]interface{}{"error": err})
		}
		return nil, false
	}

	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return nil, false
	}
	stats.Cached = true
	return &stats, true
}

func (c *StatsCache) Set(ctx context.Context, stats *Stats) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, StatsCacheKey, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("stats cache write failed", map[string]interface{}{"error": err})
	}
}

// InvalidateStats drops the cached counters. Decisions and purges call it.
func (c *StatsCache) InvalidateStats(ctx context.Context) {
	if c == nil || c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, StatsCacheKey).Err(); err != nil {
		c.logger.Warn("stats cache not invalidated", map[string]interface{}{"error": err})
	}
}
