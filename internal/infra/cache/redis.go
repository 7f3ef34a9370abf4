package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisOpTimeout = 500 * time.Millisecond

// Redis is a JSON-encoding cache stored in Redis under a key prefix.
// Redis failures degrade to cache misses; callers fall back to the source of truth.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// NewRedis creates a Redis-backed cache. Every key is stored as prefix+key.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get retrieves and decodes a value. Returns false on miss, decode error or Redis failure.
func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		c.logger.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.Warn("redis cache entry undecodable", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return value, true
}

// Set encodes and stores a value with the configured TTL.
func (c *Redis[T]) Set(key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("redis cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a value.
func (c *Redis[T]) Delete(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.logger.Warn("redis cache delete failed", zap.String("key", key), zap.Error(err))
	}
}
