// Package cache wraps the Redis client used for answer caching and feedback
// rate-limit counters. The wrapper exposes only the four primitives the
// services need (GET, SET-with-TTL, INCR, EXPIRE) so that tests can swap in
// a fake behind the consumer-side interfaces.
//
// Redis is an optional collaborator: when no address is configured, New
// returns nil and the services run with caching and rate limiting disabled
// instead of failing requests.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/studyshare/go-assist-backend/internal/config"
)

// Client is a thin, context-aware wrapper around go-redis.
type Client struct {
	rdb *redis.Client
}

// New builds a Client from configuration. It returns nil when no Redis
// address is configured; callers treat a nil Client as "cache disabled".
// Connectivity is not verified here: Redis being unreachable at runtime is
// handled per-operation (fail open) rather than at startup.
func New(cfg config.RedisConfig) *Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{rdb: rdb}
}

// Get returns the string value stored under key. The second return value is
// false when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key with the given expiry.
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Incr increments the integer stored under key and returns the new value.
// Missing keys are created at 1, per Redis INCR semantics.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	return c.rdb.Incr(ctx, key).Result()
}

// Expire sets the time-to-live of key.
func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error { return c.rdb.Close() }
