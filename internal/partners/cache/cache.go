// Package cache keeps the active partner roster hot. Matching runs on
// every qualified lead, so the roster is served from memory, refreshed
// through a Redis layer shared between instances, and only hits Postgres
// when both layers are stale.
package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"leaddesk_backend/internal/partners/domain"
	"leaddesk_backend/platform/logger"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const redisKey = "partners:active"

// FetchFunc loads the active roster from the source of truth.
type FetchFunc func(ctx context.Context) ([]domain.Partner, error)

type snapshot struct {
	partners  []domain.Partner
	fetchedAt time.Time
}

// Cache is a two-level TTL cache for the active partner roster.
type Cache struct {
	ttl time.Duration
	now func() time.Time
	rdb *redis.Client // optional shared layer, nil disables it
	log *logger.Logger

	group singleflight.Group

	mu    sync.RWMutex
	local *snapshot
}

// New creates a roster cache. rdb may be nil to run memory-only.
func New(ttl time.Duration, rdb *redis.Client, log *logger.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		ttl: ttl,
		now: time.Now,
		rdb: rdb,
		log: log,
	}
}

// SetClock overrides the cache's time source for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the active roster, loading through fetch when both cache
// layers are stale. Concurrent misses share a single fetch.
func (c *Cache) Get(ctx context.Context, fetch FetchFunc) ([]domain.Partner, error) {
	if partners, ok := c.fresh(); ok {
		return partners, nil
	}

	result, err, _ := c.group.Do(redisKey, func() (any, error) {
		// A request that queued behind the winner sees its result here.
		if partners, ok := c.fresh(); ok {
			return partners, nil
		}

		if partners, ok := c.fromRedis(ctx); ok {
			c.store(partners)
			return partners, nil
		}

		partners, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.store(partners)
		c.toRedis(ctx, partners)
		return partners, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Partner), nil
}

// Invalidate drops both cache layers. Called after roster mutations.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.local = nil
	c.mu.Unlock()

	if c.rdb != nil {
		if err := c.rdb.Del(ctx, redisKey).Err(); err != nil {
			c.log.Warn("failed to drop partner roster from redis", "error", err)
		}
	}
}

func (c *Cache) fresh() ([]domain.Partner, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.local == nil || c.now().Sub(c.local.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.local.partners, true
}

func (c *Cache) store(partners []domain.Partner) {
	c.mu.Lock()
	c.local = &snapshot{partners: partners, fetchedAt: c.now()}
	c.mu.Unlock()
}

func (c *Cache) fromRedis(ctx context.Context) ([]domain.Partner, bool) {
	if c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, redisKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("failed to read partner roster from redis", "error", err)
		}
		return nil, false
	}
	var partners []domain.Partner
	if err := json.Unmarshal(raw, &partners); err != nil {
		c.log.Warn("corrupt partner roster in redis", "error", err)
		return nil, false
	}
	return partners, true
}

func (c *Cache) toRedis(ctx context.Context, partners []domain.Partner) {
	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(partners)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, redisKey, raw, c.ttl).Err(); err != nil {
		c.log.Warn("failed to write partner roster to redis", "error", err)
	}
}
