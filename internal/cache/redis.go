package cache

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"steam-shelf/internal/redis"
)

// staleFactor keeps the physical Redis TTL longer than the logical one so
// GetStale can still serve an expired entry after an upstream failure.
const staleFactor = 4

// RedisCache implements Cache on the shared Redis connection. The logical
// expiry is stored alongside the value; the physical key outlives it.
type RedisCache struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (c *RedisCache) key(k string) string {
	return c.prefix + ":" + k
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	expiresAt, err := c.client.GetInt(ctx, c.key(key)+":exp")
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	if c.now().Unix() >= expiresAt {
		return nil, ErrCacheMiss
	}
	return c.fetch(ctx, key)
}

func (c *RedisCache) GetStale(ctx context.Context, key string) ([]byte, error) {
	return c.fetch(ctx, key)
}

func (c *RedisCache) fetch(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.key(key))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return []byte(val), nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	physical := ttl * staleFactor
	if err := c.client.Set(ctx, c.key(key), string(value), physical); err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key)+":exp", c.now().Add(ttl).Unix(), physical)
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key), c.key(key)+":exp")
}
