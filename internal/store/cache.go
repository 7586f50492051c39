package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultCacheKey is the redis hash holding cached history pages.
const DefaultCacheKey = "scribe:history"

// Cached is a read-through redis cache in front of a Gateway. Pages are keyed
// by limit and dropped on every write. Redis failures fall through to the
// backing gateway.
type Cached struct {
	next   Gateway
	redis  *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps next with a redis cache.
func NewCached(next Gateway, client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{next: next, redis: client, key: DefaultCacheKey, ttl: ttl, logger: logger}
}

// Ping checks redis connectivity.
func (c *Cached) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

func (c *Cached) FetchRecent(ctx context.Context, limit int) ([]Transcript, error) {
	field := strconv.Itoa(limit)

	data, err := c.redis.HGet(ctx, c.key, field).Bytes()
	switch {
	case err == nil:
		var items []Transcript
		if jsonErr := json.Unmarshal(data, &items); jsonErr == nil {
			return items, nil
		}
		c.logger.Warn("history cache entry unreadable", "limit", limit)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("history cache read failed", "error", err.Error())
	}

	items, err := c.next.FetchRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(items); err == nil {
		pipe := c.redis.TxPipeline()
		pipe.HSet(ctx, c.key, field, data)
		if c.ttl > 0 {
			pipe.Expire(ctx, c.key, c.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			c.logger.Warn("history cache write failed", "error", err.Error())
		}
	}
	return items, nil
}

func (c *Cached) Save(ctx context.Context, t Transcript) error {
	defer c.invalidate(ctx)
	return c.next.Save(ctx, t)
}

func (c *Cached) Update(ctx context.Context, t Transcript) error {
	defer c.invalidate(ctx)
	return c.next.Update(ctx, t)
}

func (c *Cached) Delete(ctx context.Context, id string) error {
	defer c.invalidate(ctx)
	return c.next.Delete(ctx, id)
}

func (c *Cached) Find(ctx context.Context, id string) (Transcript, error) {
	return Find(ctx, c.next, id)
}

func (c *Cached) invalidate(ctx context.Context) {
	if err := c.redis.Del(ctx, c.key).Err(); err != nil {
		c.logger.Warn("history cache invalidate failed", "error", err.Error())
	}
}
