package bizconn

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delixor/shadowbot/internal/core"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "shadowbot:bizconn:"

// RedisCache is a Cache shared between bot instances through Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to the Redis server described by cfg.
func NewRedisCache(cfg Config) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: 2 * time.Second,
	})
	return &RedisCache{client: client, ttl: cfg.TTL}
}

func (c *RedisCache) key(connectionID string) string {
	return keyPrefix + connectionID
}

// ModuleInfo implements core.Module.
func (c *RedisCache) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{ID: "bizconn.redis"}
}

// Ping checks connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("bizconn: redis ping: %w", err)
	}
	return nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, connectionID string) (int64, bool, error) {
	owner, err := c.client.Get(ctx, c.key(connectionID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("bizconn: redis get: %w", err)
	}
	return owner, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, connectionID string, ownerID int64) error {
	if err := c.client.Set(ctx, c.key(connectionID), ownerID, c.ttl).Err(); err != nil {
		return fmt.Errorf("bizconn: redis set: %w", err)
	}
	return nil
}

// Delete implements Cache.
func (c *RedisCache) Delete(ctx context.Context, connectionID string) error {
	if err := c.client.Del(ctx, c.key(connectionID)).Err(); err != nil {
		return fmt.Errorf("bizconn: redis del: %w", err)
	}
	return nil
}

// Stop closes the client.
func (c *RedisCache) Stop(_ context.Context) error {
	return c.client.Close()
}
