package cache

import (
	"context"
	"time"
)

// ScopedCache wraps a Cache with a key prefix so that different API clients
// can share one backend without key collisions.
//
// Example usage:
//
//	backend, _ := cache.NewFileCache(dir)
//	crossref := cache.NewScopedCache(backend, "crossref:")
//	citations := cache.NewScopedCache(backend, "citations:")
type ScopedCache struct {
	inner  Cache
	prefix string
}

// NewScopedCache creates a cache view that prepends prefix to all keys.
// If inner is nil, a NullCache is used.
func NewScopedCache(inner Cache, prefix string) Cache {
	if inner == nil {
		inner = NewNullCache()
	}
	return &ScopedCache{
		inner:  inner,
		prefix: prefix,
	}
}

// Get retrieves a value using the prefixed key.
func (c *ScopedCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return c.inner.Get(ctx, c.prefix+key)
}

// Set stores a value using the prefixed key.
func (c *ScopedCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return c.inner.Set(ctx, c.prefix+key, data, ttl)
}

// Delete removes a value using the prefixed key.
func (c *ScopedCache) Delete(ctx context.Context, key string) error {
	return c.inner.Delete(ctx, c.prefix+key)
}

// Close closes the underlying backend.
func (c *ScopedCache) Close() error {
	return c.inner.Close()
}

// Ensure ScopedCache implements Cache.
var _ Cache = (*ScopedCache)(nil)
