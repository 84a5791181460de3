package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"what-to-do/internal/calendar"
	"what-to-do/internal/config"
	"what-to-do/internal/logger"

	goredis "github.com/redis/go-redis/v9"
)

// SummaryCache holds generated summaries keyed by user and date. Entries
// never expire on their own; they are replaced on regeneration.
type SummaryCache interface {
	Get(ctx context.Context, uid int, date time.Time) (string, bool, error)
	Set(ctx context.Context, uid int, date time.Time, summary string) error
	Delete(ctx context.Context, uid int, date time.Time) error
}

func cacheKey(uid int, date time.Time) string {
	return fmt.Sprintf("summary:%d:%s", uid, calendar.Format(date))
}

// NewSummaryCache returns a redis-backed cache when an address is
// configured and reachable, else an in-process one.
func NewSummaryCache(ctx context.Context, cfg config.RedisConfig) SummaryCache {
	if cfg.Addr == "" {
		return NewMemoryCache()
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("cache.redis_unavailable", "addr", cfg.Addr, "err", err)
		client.Close()
		return NewMemoryCache()
	}
	logger.Info("cache.redis", "addr", cfg.Addr)
	return NewRedisCache(client)
}

type redisCache struct{ client *goredis.Client }

func NewRedisCache(client *goredis.Client) SummaryCache { return &redisCache{client: client} }

func (c *redisCache) Get(ctx context.Context, uid int, date time.Time) (string, bool, error) {
	v, err := c.client.Get(ctx, cacheKey(uid, date)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return v, true, nil
}

func (c *redisCache) Set(ctx context.Context, uid int, date time.Time, summary string) error {
	if err := c.client.Set(ctx, cacheKey(uid, date), summary, 0).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, uid int, date time.Time) error {
	if err := c.client.Del(ctx, cacheKey(uid, date)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

type memoryCache struct{ m sync.Map }

func NewMemoryCache() SummaryCache { return &memoryCache{} }

func (c *memoryCache) Get(_ context.Context, uid int, date time.Time) (string, bool, error) {
	v, ok := c.m.Load(cacheKey(uid, date))
	if !ok {
		return "", false, nil
	}
	return v.(string), true, nil
}

func (c *memoryCache) Set(_ context.Context, uid int, date time.Time, summary string) error {
	c.m.Store(cacheKey(uid, date), summary)
	return nil
}

func (c *memoryCache) Delete(_ context.Context, uid int, date time.Time) error {
	c.m.Delete(cacheKey(uid, date))
	return nil
}
