package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions configures a RedisCache.
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	Retry       RetryPolicy
}

// RedisCache stores entries in Redis. It is meant for the HTTP server,
// where several instances share one cache.
type RedisCache struct {
	client *redis.Client
	retry  RetryPolicy
}

// NewRedisCache creates a Redis-backed cache. It does not connect; call
// Ping to check the server is reachable.
func NewRedisCache(opts RedisOptions) *RedisCache {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.Retry.Attempts <= 0 {
		opts.Retry = DefaultRetryPolicy
	}
	client := redis.NewClient(&redis.Options{
		Addr:        opts.Addr,
		Password:    opts.Password,
		DB:          opts.DB,
		DialTimeout: opts.DialTimeout,
		MaxRetries:  -1, // retries are handled by RetryPolicy
	})
	return &RedisCache{client: client, retry: opts.Retry}
}

// Ping checks that the Redis server answers.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.retry.Do(ctx, func() error {
		return classify("ping", c.client.Ping(ctx).Err())
	})
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := c.retry.Do(ctx, func() error {
		v, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			return classify("get", err)
		}
		data = v
		return nil
	})
	if errors.Is(err, ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value in Redis.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.retry.Do(ctx, func() error {
		return classify("set", c.client.Set(ctx, key, data, ttl).Err())
	})
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.retry.Do(ctx, func() error {
		return classify("del", c.client.Del(ctx, key).Err())
	})
}

// Close closes the underlying connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// classify maps a go-redis error onto the cache sentinels. Connection
// failures become retryable ErrNetwork errors.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, io.EOF) {
		return Retryable(fmt.Errorf("%w: redis %s: %w", ErrNetwork, op, err))
	}
	return fmt.Errorf("redis %s: %w", op, err)
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
