package hashcache_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
	"github.com/jamesainslie/dirindex/pkg/dirindex/hashcache"
)

// countingHasher records how often it is asked to hash.
type countingHasher struct {
	inner *hasher.Hasher
	calls int
	err   error
}

func (h *countingHasher) Algorithm() string { return h.inner.Algorithm() }

func (h *countingHasher) Hash(path string, info fs.FileInfo) (string, error) {
	h.calls++
	if h.err != nil {
		return "", h.err
	}
	return h.inner.Hash(path, info)
}

func openCache(t *testing.T, h hashcache.Hasher) *hashcache.Cache {
	t.Helper()

	c, err := hashcache.Open(filepath.Join(t.TempDir(), "digests"), h)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCacheHitAndInvalidate(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	h := &countingHasher{inner: hasher.Default()}
	c := openCache(t, h)

	first, err := c.Hash(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", first)

	second, err := c.Hash(path, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, h.calls)
	assert.Equal(t, hashcache.Stats{Hits: 1, Misses: 1}, c.Stats())

	require.NoError(t, os.WriteFile(path, []byte("hello, world"), 0o644))
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, future, future))

	third, err := c.Hash(path, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
	assert.Equal(t, 2, h.calls)

	n, err := c.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheErrorsNotCached(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	h := &countingHasher{inner: hasher.Default(), err: errors.New("denied")}
	c := openCache(t, h)

	_, err := c.Hash(path, nil)
	require.Error(t, err)

	h.err = nil
	_, err = c.Hash(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, h.calls)
}

func TestCacheMissingFile(t *testing.T) {
	t.Parallel()

	c := openCache(t, hasher.Default())
	_, err := c.Hash(filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCacheKeyedByAlgorithm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	store := filepath.Join(dir, "digests")
	sha, err := hashcache.Open(store, hasher.Default())
	require.NoError(t, err)
	shaDigest, err := sha.Hash(path, nil)
	require.NoError(t, err)
	require.NoError(t, sha.Close())

	x, err := hasher.New(hasher.XXH3)
	require.NoError(t, err)
	xc, err := hashcache.Open(store, x)
	require.NoError(t, err)
	defer xc.Close()

	xDigest, err := xc.Hash(path, nil)
	require.NoError(t, err)
	assert.NotEqual(t, shaDigest, xDigest)
	assert.Equal(t, hashcache.Stats{Misses: 1}, xc.Stats())

	removed, err := xc.Clear()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}

func TestKeys(t *testing.T) {
	t.Parallel()

	key := hashcache.MakeKey("sha256", "/repo/a.txt")
	algorithm, path := hashcache.ParseKey(key)
	assert.Equal(t, "sha256", algorithm)
	assert.Equal(t, "/repo/a.txt", path)
	assert.Equal(t, []byte("sha256\x00"), hashcache.MakeKeyPrefix("sha256"))

	algorithm, path = hashcache.ParseKey([]byte("bare"))
	assert.Equal(t, "bare", algorithm)
	assert.Empty(t, path)
}
