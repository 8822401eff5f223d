package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a JSON-encoded TTL cache in Redis. While Redis is unreachable
// it serves from an in-memory fallback so callers never block on it.
type Redis[T any] struct {
	client    *redis.Client
	prefix    string
	ttl       time.Duration
	timeout   time.Duration
	fallback  *InMemory[T]
	available atomic.Bool
	logger    *zap.Logger
}

// NewRedis creates a cache whose keys are namespaced with prefix.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	c := &Redis[T]{
		client:   client,
		prefix:   prefix,
		ttl:      ttl,
		timeout:  500 * time.Millisecond,
		fallback: New[T](ttl),
		logger:   logger,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable at startup, using in-memory cache", zap.Error(err))
	} else {
		c.available.Store(true)
	}
	return c
}

func (c *Redis[T]) key(k string) string {
	return c.prefix + ":" + k
}

// Get reads key from Redis, or from the fallback while Redis is down.
func (c *Redis[T]) Get(key string) (T, bool) {
	var zero T
	if !c.available.Load() {
		c.probe()
		return c.fallback.Get(key)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		c.markDown(err)
		return c.fallback.Get(key)
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("redis: dropping undecodable entry", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Set writes key to Redis and to the fallback.
func (c *Redis[T]) Set(key string, value T) {
	c.fallback.Set(key, value)
	if !c.available.Load() {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("redis: value not encodable", zap.String("key", key), zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		c.markDown(err)
	}
}

// Delete removes key from Redis and from the fallback.
func (c *Redis[T]) Delete(key string) {
	c.fallback.Delete(key)
	if !c.available.Load() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.markDown(err)
	}
}

// Available reports whether the last Redis call succeeded.
func (c *Redis[T]) Available() bool {
	return c.available.Load()
}

func (c *Redis[T]) markDown(err error) {
	if c.available.Swap(false) {
		c.logger.Warn("redis unavailable, switching to in-memory cache", zap.Error(err))
	}
}

// probe re-enables Redis once a ping succeeds again.
func (c *Redis[T]) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err == nil {
		if !c.available.Swap(true) {
			c.logger.Info("redis reachable again")
		}
	}
}
