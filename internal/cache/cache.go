package cache

import (
	"context"
	"time"
)

// Cache is the abstraction behind the process-local friend-list cache.
// Swapping MemoryCache for RedisCache shares the cache across processes
// without touching call sites.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// GetStale retrieves a value even if it has logically expired. Used for
	// degraded reads when the upstream refresh fails.
	GetStale(ctx context.Context, key string) ([]byte, error)

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error
}

type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss Error = "cache_miss"
)
