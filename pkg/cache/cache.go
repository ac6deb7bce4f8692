// Package cache provides pluggable byte caches for HTTP response caching.
//
// The enrichment clients store raw API responses keyed by request identity so
// that re-runs of the conversion do not hammer the scholarly APIs. Two
// backends are provided:
//
//   - [FileCache]: persistent, file-per-entry storage for CLI usage
//   - [NullCache]: no-op backend for tests and --refresh runs
//
// Use [NewScopedCache] to give each API client its own key namespace:
//
//	crossref := cache.NewScopedCache(backend, "crossref:")
//	arxiv := cache.NewScopedCache(backend, "arxiv:")
package cache

import (
	"context"
	"time"
)

// Cache is the interface all cache backends implement.
// Implementations must be safe for sequential use; the conversion pipeline
// is single-threaded and never shares a backend across goroutines.
type Cache interface {
	// Get retrieves a value by key.
	// Returns (data, true, nil) on a hit, (nil, false, nil) on a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value under key with the given TTL.
	// A TTL of 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the backend.
	Close() error
}
