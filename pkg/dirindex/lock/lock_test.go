//go:build unix

package lock_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirindex/pkg/dirindex/lock"
)

func TestAcquireRelease(t *testing.T) {
	t.Parallel()

	snapshot := filepath.Join(t.TempDir(), "data", "info_static.json")

	l, err := lock.Acquire(snapshot)
	require.NoError(t, err)
	assert.Equal(t, snapshot+".lock", l.Path())
	assert.FileExists(t, l.Path())
	assert.Equal(t, os.Getpid(), lock.Holder(snapshot))

	_, err = lock.Acquire(snapshot)
	require.ErrorIs(t, err, lock.ErrLocked)
	assert.Contains(t, err.Error(), "pid")

	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
	assert.NoFileExists(t, l.Path())
	assert.Equal(t, 0, lock.Holder(snapshot))

	again, err := lock.Acquire(snapshot)
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLocksAreIndependent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a, err := lock.Acquire(filepath.Join(dir, "info_a.json"))
	require.NoError(t, err)
	defer a.Release()

	b, err := lock.Acquire(filepath.Join(dir, "info_b.json"))
	require.NoError(t, err)
	defer b.Release()
}

func TestHolderGarbage(t *testing.T) {
	t.Parallel()

	snapshot := filepath.Join(t.TempDir(), "info.json")
	require.NoError(t, os.WriteFile(lock.PathFor(snapshot), []byte("not a pid"), 0o644))
	assert.Equal(t, 0, lock.Holder(snapshot))
}
