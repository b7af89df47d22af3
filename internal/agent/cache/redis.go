package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/voxcrm/server/internal/core/error"
	logx "github.com/voxcrm/server/pkg/logger"
)

// RedisCache stores cached responses in Redis with a TTL.
type RedisCache struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisCache creates a Redis-backed response cache.
func NewRedisCache(rdb redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func (c *RedisCache) Get(ctx context.Context, userID, question, pagePath string) (*CachedResponse, error) {
	key := Key(userID, question, pagePath)
	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to read response cache")
		return nil, errx.WrapRedis(err)
	}

	var resp CachedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		// A corrupt entry behaves like a miss; the turn will repopulate it.
		logx.Warn().Err(err).Str("key", key).Msg("dropping unreadable cache entry")
		return nil, nil
	}
	return &resp, nil
}

func (c *RedisCache) Put(ctx context.Context, userID, question, pagePath string, resp CachedResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal cached response: %w", err)
	}
	key := Key(userID, question, pagePath)
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to store response cache")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ ResponseCache = (*RedisCache)(nil)
