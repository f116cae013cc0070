package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/campusvote/server/internal/config"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

// KeyForVoteCount generates the Redis key for a candidate's vote count.
func (c *RedisCache) KeyForVoteCount(profileID string) string {
	return fmt.Sprintf("votes:count:%s", profileID)
}

// IncrVoteCount bumps the cached display counter for a candidate. The
// authoritative value is always restored by a full recount on the next
// pool refresh; this counter only keeps the UI fresh between refreshes.
func (c *RedisCache) IncrVoteCount(ctx context.Context, profileID string) (int64, error) {
	key := c.KeyForVoteCount(profileID)
	n, err := c.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.Client.Expire(ctx, key, time.Hour).Err()
	return n, nil
}

// UpdateVoteCount overwrites the cached counter after a recount.
func (c *RedisCache) UpdateVoteCount(ctx context.Context, profileID string, count int64) error {
	return c.Client.Set(ctx, c.KeyForVoteCount(profileID), count, time.Hour).Err()
}

// GetVoteCount returns the cached counter, or (0, nil) on a cache miss.
func (c *RedisCache) GetVoteCount(ctx context.Context, profileID string) (int64, error) {
	val, err := c.Client.Get(ctx, c.KeyForVoteCount(profileID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil // cache miss
	} else if err != nil {
		return 0, err
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, c.KeyForVoteCount(profileID), time.Hour).Err()
	return strconv.ParseInt(val, 10, 64)
}
