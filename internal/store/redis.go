package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"musicresolver/internal/core"
)

// RedisKeyPrefix namespaces search results in a shared Redis.
const RedisKeyPrefix = "musicresolver:search:"

// RedisCache shares search results between resolver instances. Redis failures degrade to
// cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisCache(config *core.CacheConfig, logger *zap.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	return newRedisCache(client, config.TTL, logger)
}

func newRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Ping checks the connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]core.Track, bool) {
	data, err := c.client.Get(ctx, RedisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Redis cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}

	var tracks []core.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return tracks, true
}

func (c *RedisCache) Set(ctx context.Context, key string, tracks []core.Track) {
	// Data carries a json:"-" tag, so caller data never reaches Redis.
	data, err := json.Marshal(tracks)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}

	if err := c.client.Set(ctx, RedisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Redis cache write failed", zap.String("key", key), zap.Error(err))
	}
}
