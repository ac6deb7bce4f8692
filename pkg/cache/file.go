package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileCache stores lookup-service responses on disk, one JSON entry file
// per key. Keys are hashed into two-character fan-out subdirectories so a
// full conversion run (one entry per DOI per service) never piles thousands
// of files into a single directory.
//
// Entries carry their own expiry; an expired or unreadable entry is removed
// on read and reported as a miss, so a stale response is never replayed
// into the pipeline.
type FileCache struct {
	dir string
}

// NewFileCache creates a FileCache rooted at dir, creating it if needed.
func NewFileCache(dir string) (Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir}, nil
}

// entry is the on-disk layout of one cached response.
type entry struct {
	Body    []byte    `json:"body"`
	Stored  time.Time `json:"stored"`
	Expires time.Time `json:"expires,omitempty"` // zero means never
}

func (e *entry) expired() bool {
	return !e.Expires.IsZero() && time.Now().After(e.Expires)
}

// Get retrieves a cached response. Expired and corrupt entries are deleted
// and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || e.expired() {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return e.Body, true, nil
}

// Set stores a response under key. A ttl of 0 stores it without expiry.
func (c *FileCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := entry{Body: data, Stored: time.Now()}
	if ttl > 0 {
		e.Expires = e.Stored.Add(ttl)
	}

	encoded, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

// Delete removes a cached response. Deleting a missing key is not an error.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close is a no-op; every operation leaves the directory consistent.
func (c *FileCache) Close() error {
	return nil
}

// path maps a key to <dir>/<hash[:2]>/<hash[2:]>.json. Hashing keeps
// service prefixes and raw DOIs (which contain slashes) out of file names.
func (c *FileCache) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".json")
}

var _ Cache = (*FileCache)(nil)
