// Package hashcache memoizes file digests in a Badger store so that
// unchanged files are not re-read on every run. An entry is reused only
// while the file's size and modification time match the recorded ones.
package hashcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/adrg/xdg"

	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
)

// Hasher is the digest source the cache wraps.
type Hasher interface {
	Algorithm() string
	Hash(path string, info fs.FileInfo) (string, error)
}

// Stats counts cache lookups since Open.
type Stats struct {
	Hits   int64
	Misses int64
}

// Cache is a Hasher that consults the store before hashing.
// It is safe for concurrent use.
type Cache struct {
	store  *Store
	hasher Hasher

	hits   atomic.Int64
	misses atomic.Int64
}

// DefaultDir returns $XDG_CACHE_HOME/dirindex/digests.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "dirindex", "digests")
}

// Open opens the store in dir and wraps h.
func Open(dir string, h Hasher) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	store, err := OpenStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening digest cache: %w", err)
	}
	return &Cache{store: store, hasher: h}, nil
}

// Close closes the store.
func (c *Cache) Close() error {
	return c.store.Close()
}

// Algorithm returns the wrapped hasher's algorithm.
func (c *Cache) Algorithm() string {
	return c.hasher.Algorithm()
}

// Hash returns the cached digest for path when size and mtime still
// match, and otherwise hashes the file and records the result. Hash
// errors are returned and never cached.
func (c *Cache) Hash(path string, info fs.FileInfo) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}
	if info == nil {
		if info, err = os.Stat(abs); err != nil {
			return "", err
		}
	}

	algorithm := c.hasher.Algorithm()
	size, mtime := info.Size(), info.ModTime().UnixNano()

	cached, err := c.store.Get(algorithm, abs)
	switch {
	case err == nil && cached.Size == size && cached.Mtime == mtime:
		c.hits.Add(1)
		return cached.Digest, nil
	case err != nil && !errors.Is(err, ErrNotFound):
		logging.Get("hashcache").Warn("cache read failed", "path", abs, "error", err)
	}
	c.misses.Add(1)

	digest, err := c.hasher.Hash(abs, info)
	if err != nil {
		return "", err
	}

	if err := c.store.Put(algorithm, abs, &Digest{Size: size, Mtime: mtime, Digest: digest}); err != nil {
		logging.Get("hashcache").Warn("cache write failed", "path", abs, "error", err)
	}
	return digest, nil
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Len returns the number of digests cached for the wrapped algorithm.
func (c *Cache) Len() (int, error) {
	return c.store.Count(MakeKeyPrefix(c.hasher.Algorithm()))
}

// Clear removes every cached digest, for all algorithms.
func (c *Cache) Clear() (int, error) {
	return c.store.DeletePrefix(nil)
}
