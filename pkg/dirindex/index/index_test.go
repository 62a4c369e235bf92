package index_test

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirindex/pkg/dirindex/filter"
	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
)

var (
	t0 = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Hour)
	t2 = t0.Add(2 * time.Hour)
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// fixture is a root directory with a.txt (10 bytes) and b/c.txt (5 bytes).
func fixture(t *testing.T) (root, snapshot string) {
	t.Helper()

	dir := t.TempDir()
	root = filepath.Join(dir, "static")
	writeFile(t, root, "a.txt", "0123456789")
	writeFile(t, root, "b/c.txt", "abcde")
	return root, filepath.Join(dir, "data", "info_static.json")
}

func open(t *testing.T, root, snapshot string, opts ...index.Option) *index.Index {
	t.Helper()

	opts = append([]index.Option{index.WithClock(func() time.Time { return t0 })}, opts...)
	ix, err := index.Open(root, snapshot, opts...)
	require.NoError(t, err)
	return ix
}

// run performs one read, reconcile, aggregate, save pass.
func run(t *testing.T, root, snapshot string, now time.Time, opts ...index.Option) (*index.Index, *index.Changes) {
	t.Helper()

	ix := open(t, root, snapshot, opts...)
	changes := ix.Reconcile(now)
	ix.RecomputeAggregates()
	require.NoError(t, ix.Save())
	return ix, changes
}

func mustLookup(t *testing.T, ix *index.Index, rel string) index.Entry {
	t.Helper()

	e, ok := ix.Lookup(rel)
	require.True(t, ok, "expected %q in index", rel)
	return e
}

func TestOpenFreshRoot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	root := filepath.Join(dir, "assets")
	require.NoError(t, os.Mkdir(root, 0o755))
	snapshot := filepath.Join(dir, "info_assets.json")

	ix, changes := run(t, root+"/", snapshot, t1)

	assert.True(t, changes.Empty())
	r := ix.Root()
	assert.Equal(t, "assets", r.Name)
	assert.Equal(t, "", r.RelativePath)
	assert.Equal(t, int64(0), r.Size)
	assert.Empty(t, r.Children)
	assert.True(t, r.CreatedAt.Equal(t0))

	data, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"children": {}`)
	assert.Contains(t, string(data), `"size": 0`)
	assert.NotContains(t, string(data), `"hash"`)
}

func TestReconcileBuildsTree(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	ix, changes := run(t, root, snapshot, t1)

	assert.Equal(t, []string{"a.txt", "b", "b/c.txt"}, changes.Added)
	assert.Empty(t, changes.Removed)
	assert.Empty(t, changes.Replaced)

	assert.Equal(t, int64(15), ix.Root().Size)
	b := mustLookup(t, ix, "b")
	assert.Equal(t, index.KindFolder, b.Kind())
	assert.Equal(t, int64(5), b.Info().Size)

	c := mustLookup(t, ix, "b/c.txt").(*index.File)
	assert.Equal(t, "b/c.txt", c.RelativePath)
	assert.Equal(t, int64(5), c.Size)
	assert.True(t, c.CreatedAt.Equal(t1))
	assert.True(t, c.UpdatedAt.Equal(t1))

	want, err := hasher.File(filepath.Join(root, "b", "c.txt"))
	require.NoError(t, err)
	assert.Equal(t, want, c.Hash)

	assert.True(t, ix.Root().UpdatedAt.Equal(t1))
}

func TestReconcileContentChange(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1)

	writeFile(t, root, "a.txt", strings.Repeat("x", 20))
	ix, changes := run(t, root, snapshot, t2)

	assert.Equal(t, []string{"a.txt"}, changes.Replaced)
	assert.Empty(t, changes.Added)
	assert.Empty(t, changes.Removed)

	a := mustLookup(t, ix, "a.txt").(*index.File)
	assert.Equal(t, int64(20), a.Size)
	assert.True(t, a.CreatedAt.Equal(t2))
	assert.True(t, a.UpdatedAt.Equal(t2))
	assert.Equal(t, int64(25), ix.Root().Size)

	c := mustLookup(t, ix, "b/c.txt")
	assert.True(t, c.Info().UpdatedAt.Equal(t1), "unchanged file keeps its timestamps")
	assert.True(t, mustLookup(t, ix, "b").Info().UpdatedAt.Equal(t1))
	assert.True(t, ix.Root().UpdatedAt.Equal(t2))
}

func TestTouchPath(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1)

	ix := open(t, root, snapshot)
	ix.Reconcile(t2)
	before := *mustLookup(t, ix, "b/c.txt").(*index.File)

	assert.True(t, ix.TouchPath(t2, "b/c.txt"))
	ix.RecomputeAggregates()

	c := mustLookup(t, ix, "b/c.txt").(*index.File)
	assert.True(t, c.UpdatedAt.Equal(t2))
	assert.True(t, c.CreatedAt.Equal(t1))
	assert.Equal(t, before.Size, c.Size)
	assert.Equal(t, before.Hash, c.Hash)
	assert.True(t, mustLookup(t, ix, "b").Info().UpdatedAt.Equal(t2))
	assert.True(t, ix.Root().UpdatedAt.Equal(t2))
	assert.True(t, mustLookup(t, ix, "a.txt").Info().UpdatedAt.Equal(t1))
}

func TestTouchPathMissing(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	ix, _ := run(t, root, snapshot, t1)

	tests := []string{"nope.txt", "b/nope.txt", "a.txt/inside", "x/y/z"}
	for _, rel := range tests {
		assert.False(t, ix.TouchPath(t2, rel), rel)
	}
	assert.True(t, mustLookup(t, ix, "a.txt").Info().UpdatedAt.Equal(t1))

	assert.Equal(t, 3, ix.TouchPaths(t2, "a.txt", "nope", "/b/", "b//c.txt"))
}

func TestReconcileIdempotent(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1)
	first, err := os.ReadFile(snapshot)
	require.NoError(t, err)

	_, changes := run(t, root, snapshot, t2)
	assert.True(t, changes.Empty())

	second, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestReconcileSkipsInvalidUTF8Names(t *testing.T) {
	t.Parallel()

	if runtime.GOOS != "linux" {
		t.Skip("filesystem may reject names that are not valid UTF-8")
	}

	root, snapshot := fixture(t)
	writeFile(t, root, "bad\xffname.txt", "xyz")
	writeFile(t, root, "b/also\xfe/d.txt", "d")

	ix, changes := run(t, root, snapshot, t1)
	assert.Equal(t, []string{"a.txt", "b", "b/c.txt"}, changes.Added)
	assert.Equal(t, int64(15), ix.Root().Size)
	first, err := os.ReadFile(snapshot)
	require.NoError(t, err)

	_, changes = run(t, root, snapshot, t2)
	assert.True(t, changes.Empty(), "%+v", changes)

	second, err := os.ReadFile(snapshot)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestReconcileDeletion(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	writeFile(t, root, "b/d/e.txt", "123")
	ix, _ := run(t, root, snapshot, t1)
	assert.Equal(t, int64(18), ix.Root().Size)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "b", "d")))
	ix, changes := run(t, root, snapshot, t2)

	assert.Equal(t, []string{"b/d"}, changes.Removed)
	_, ok := ix.Lookup("b/d")
	assert.False(t, ok)
	assert.Equal(t, int64(5), mustLookup(t, ix, "b").Info().Size)
	assert.Equal(t, int64(15), ix.Root().Size)

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	ix, changes = run(t, root, snapshot, t2)
	assert.Equal(t, []string{"a.txt"}, changes.Removed)
	assert.Equal(t, int64(5), ix.Root().Size)
}

func TestReconcileKindFlip(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1)

	require.NoError(t, os.Remove(filepath.Join(root, "a.txt")))
	writeFile(t, root, "a.txt/inner.txt", "zz")
	require.NoError(t, os.RemoveAll(filepath.Join(root, "b")))
	writeFile(t, root, "b", "bbb")

	ix, changes := run(t, root, snapshot, t2)

	assert.ElementsMatch(t, []string{"a.txt", "b"}, changes.Removed)
	assert.ElementsMatch(t, []string{"a.txt", "a.txt/inner.txt", "b"}, changes.Added)
	assert.Equal(t, index.KindFolder, mustLookup(t, ix, "a.txt").Kind())
	assert.Equal(t, index.KindFile, mustLookup(t, ix, "b").Kind())
	assert.Equal(t, int64(5), ix.Root().Size)
}

func TestReconcileVanishedRoot(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1)

	require.NoError(t, os.RemoveAll(root))
	ix, changes := run(t, root, snapshot, t2)

	assert.ElementsMatch(t, []string{"a.txt", "b"}, changes.Removed)
	assert.Empty(t, ix.Root().Children)
	assert.Equal(t, int64(0), ix.Root().Size)
	assert.True(t, ix.Root().UpdatedAt.Equal(t1), "shell keeps its last timestamp")
}

func TestReconcileExcluder(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	writeFile(t, root, ".git/HEAD", "ref")
	writeFile(t, root, "b/skip.tmp", "tmp")

	f, err := filter.New(filter.WithExclude("*.tmp"), filter.WithSkipHidden(true))
	require.NoError(t, err)

	ix, _ := run(t, root, snapshot, t1, index.WithExcluder(f))

	_, ok := ix.Lookup(".git")
	assert.False(t, ok)
	_, ok = ix.Lookup("b/skip.tmp")
	assert.False(t, ok)
	assert.Equal(t, int64(15), ix.Root().Size)
}

type failingHasher struct{}

func (failingHasher) Hash(string, fs.FileInfo) (string, error) {
	return "", errors.New("boom")
}

func TestReconcileHashFailureDegrades(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	ix, _ := run(t, root, snapshot, t1, index.WithHasher(failingHasher{}))

	a := mustLookup(t, ix, "a.txt").(*index.File)
	assert.Empty(t, a.Hash)
	assert.Equal(t, int64(10), a.Size)
}

func TestReconcileWithoutHashing(t *testing.T) {
	t.Parallel()

	none, err := hasher.New(hasher.None)
	require.NoError(t, err)

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1, index.WithHasher(none))

	writeFile(t, root, "a.txt", strings.Repeat("x", 20))
	ix, changes := run(t, root, snapshot, t2, index.WithHasher(none))

	assert.True(t, changes.Empty())
	a := mustLookup(t, ix, "a.txt").(*index.File)
	assert.Empty(t, a.Hash)
	assert.True(t, a.CreatedAt.Equal(t1))
}

func TestReconcileSymlinks(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "b"), filepath.Join(root, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling")))

	ix, _ := run(t, root, snapshot, t1)

	link := mustLookup(t, ix, "link.txt")
	assert.Equal(t, index.KindFile, link.Kind())
	assert.Equal(t, int64(10), link.Info().Size)
	_, ok := ix.Lookup("loop")
	assert.False(t, ok)
	_, ok = ix.Lookup("dangling")
	assert.False(t, ok)
}

func TestAggregationInvariants(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	writeFile(t, root, "b/d/e.txt", "1234567")
	writeFile(t, root, "f/g/h/i.txt", "1")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))

	ix := open(t, root, snapshot)
	ix.Reconcile(t1)
	ix.TouchPath(t2, "f/g/h/i.txt")
	ix.RecomputeAggregates()

	index.Walk(ix.Root(), func(e index.Entry) bool {
		folder, ok := e.(*index.Folder)
		if !ok {
			return true
		}
		var sum int64
		for _, child := range folder.Children {
			sum += child.Info().Size
			assert.False(t, folder.UpdatedAt.Before(child.Info().UpdatedAt), folder.RelativePath)
		}
		assert.Equal(t, sum, folder.Size, folder.RelativePath)
		assert.False(t, folder.UpdatedAt.Before(folder.CreatedAt))
		return true
	})

	assert.True(t, mustLookup(t, ix, "f").Info().UpdatedAt.Equal(t2))
	assert.Equal(t, int64(0), mustLookup(t, ix, "empty").Info().Size)
}

func TestAggregateNeverLowersUpdatedAt(t *testing.T) {
	t.Parallel()

	root := index.NewFolder("r", "", t0)
	root.UpdatedAt = t2
	root.Children["x"] = index.NewFile("x", "x", 3, "", t1)

	ix := index.New(t.TempDir(), filepath.Join(t.TempDir(), "s.json"), root)
	ix.RecomputeAggregates()

	assert.True(t, root.UpdatedAt.Equal(t2))
	assert.Equal(t, int64(3), root.Size)
}

func TestSaveFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	ix := index.New(dir, filepath.Join(blocker, "info.json"), index.NewFolder("r", "", t0))
	err := ix.Save()
	assert.ErrorIs(t, err, index.ErrPersistFailure)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	run(t, root, snapshot, t1)
	run(t, root, snapshot, t2)

	entries, err := os.ReadDir(filepath.Dir(snapshot))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "info_static.json", entries[0].Name())
}

func TestPrintTree(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	ix, _ := run(t, root, snapshot, t1)

	var buf bytes.Buffer
	require.NoError(t, ix.PrintTree(&buf))

	want := strings.Join([]string{
		"📁 static : 15 B 2024-06-15T11:00:00Z",
		"    📄 a.txt : 10 B 2024-06-15T11:00:00Z",
		"    📁 b : 5 B 2024-06-15T11:00:00Z",
		"        📄 c.txt : 5 B 2024-06-15T11:00:00Z",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestStats(t *testing.T) {
	t.Parallel()

	root, snapshot := fixture(t)
	ix, _ := run(t, root, snapshot, t1)

	stats := ix.Stats()
	assert.Equal(t, int64(2), stats.Files)
	assert.Equal(t, int64(1), stats.Folders)
	assert.Equal(t, int64(15), stats.Size)
	assert.True(t, stats.UpdatedAt.Equal(t1))
}
