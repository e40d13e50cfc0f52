package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	statsGenerationKey = "stats:generation"
	statsKeyPrefix     = "stats:"
)

// StatsCache stores aggregation results keyed by a generation number. Every
// committed write bumps the generation, so entries computed before the write
// can no longer be reached.
type StatsCache interface {
	Generation(ctx context.Context) (int64, error)
	Load(ctx context.Context, generation int64, key string, dst any) (bool, error)
	Store(ctx context.Context, generation int64, key string, value any) error
	Invalidate(ctx context.Context) error
}

type nopStatsCache struct{}

func NewNopStatsCache() StatsCache { return nopStatsCache{} }

func (nopStatsCache) Generation(context.Context) (int64, error)              { return 0, nil }
func (nopStatsCache) Load(context.Context, int64, string, any) (bool, error) { return false, nil }
func (nopStatsCache) Store(context.Context, int64, string, any) error        { return nil }
func (nopStatsCache) Invalidate(context.Context) error                       { return nil }

type redisStatsCache struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

func NewRedisStatsCache(rdb redis.UniversalClient, ttl time.Duration) StatsCache {
	return &redisStatsCache{rdb: rdb, ttl: ttl}
}

func (c *redisStatsCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.rdb.Get(ctx, statsGenerationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stats generation: %w", err)
	}
	return gen, nil
}

func (c *redisStatsCache) Load(ctx context.Context, generation int64, key string, dst any) (bool, error) {
	raw, err := c.rdb.Get(ctx, c.entryKey(generation, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read stats entry: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode stats entry: %w", err)
	}
	return true, nil
}

func (c *redisStatsCache) Store(ctx context.Context, generation int64, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode stats entry: %w", err)
	}
	if err := c.rdb.Set(ctx, c.entryKey(generation, key), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write stats entry: %w", err)
	}
	return nil
}

func (c *redisStatsCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Incr(ctx, statsGenerationKey).Err(); err != nil {
		return fmt.Errorf("failed to bump stats generation: %w", err)
	}
	return nil
}

func (c *redisStatsCache) entryKey(generation int64, key string) string {
	return fmt.Sprintf("%s%d:%s", statsKeyPrefix, generation, key)
}
