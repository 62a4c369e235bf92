package manifest_test

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirindex/pkg/dirindex/manifest"
)

func newManifest(t *testing.T) *manifest.Manifest {
	t.Helper()

	m, err := manifest.New(filepath.Join(t.TempDir(), "manifests"))
	require.NoError(t, err)
	return m
}

func TestNewRejectsEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := manifest.New("")
	assert.Error(t, err)
}

func TestLogRun(t *testing.T) {
	t.Parallel()

	m := newManifest(t)
	entry, err := m.LogRun(manifest.OpUpdate, manifest.Entry{
		Changed:  3,
		Duration: 2 * time.Second,
		Folders: []manifest.FolderRecord{
			{Name: "static", Added: []string{"a", "b"}, Touched: 1, Size: 100},
			{Name: "assets", Removed: []string{"x"}, Replaced: []string{"y"}, Size: 50},
		},
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^update-\d{4}-\d{2}-\d{2}T\d{2}-\d{2}-\d{2}-[0-9a-f]{8}$`), entry.ID)
	assert.Equal(t, manifest.OpUpdate, entry.Operation)
	assert.Equal(t, manifest.Summary{Added: 2, Removed: 1, Replaced: 1, Touched: 1, Size: 150}, entry.Summary)
	assert.FileExists(t, filepath.Join(m.Dir(), entry.ID+".json"))

	got, err := m.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.Summary, got.Summary)
	assert.Equal(t, entry.Folders, got.Folders)
	assert.Equal(t, 3, got.Changed)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	m := newManifest(t)
	var ids []string
	for i := 0; i < 3; i++ {
		e, err := m.LogRun(manifest.OpWatch, manifest.Entry{})
		require.NoError(t, err)
		ids = append(ids, e.ID)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited, err := m.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestListMissingDir(t *testing.T) {
	t.Parallel()

	m := newManifest(t)
	entries, err := m.List(10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGet(t *testing.T) {
	t.Parallel()

	m := newManifest(t)
	e, err := m.LogRun(manifest.OpUpdate, manifest.Entry{})
	require.NoError(t, err)

	byPrefix, err := m.Get(e.ID[:len(e.ID)-4])
	require.NoError(t, err)
	assert.Equal(t, e.ID, byPrefix.ID)

	_, err = m.Get("update-1999")
	assert.ErrorIs(t, err, manifest.ErrNotFound)

	_, err = m.Get("")
	assert.Error(t, err)
}

func TestListSkipsGarbage(t *testing.T) {
	t.Parallel()

	m := newManifest(t)
	_, err := m.LogRun(manifest.OpUpdate, manifest.Entry{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "junk.json"), []byte("{"), 0o644))

	entries, err := m.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCleanup(t *testing.T) {
	t.Parallel()

	m := newManifest(t)
	old, err := m.LogRun(manifest.OpUpdate, manifest.Entry{})
	require.NoError(t, err)
	fresh, err := m.LogRun(manifest.OpUpdate, manifest.Entry{})
	require.NoError(t, err)

	past := time.Now().AddDate(0, 0, -40)
	require.NoError(t, os.Chtimes(filepath.Join(m.Dir(), old.ID+".json"), past, past))

	removed, err := m.Cleanup(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	entries, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}
