// Package index maintains a persisted tree of files and folders under a
// root directory, with sizes, content digests and timestamps, and keeps it
// in step with the filesystem across runs.
//
// A run is read, reconcile, touch, aggregate, save:
//
//	ix, err := index.Open("files/static", "data/files/info_static.json")
//	if err != nil {
//	    return err
//	}
//	now := time.Now().UTC()
//	ix.Reconcile(now)
//	ix.TouchPaths(now, "css/site.css")
//	ix.RecomputeAggregates()
//	return ix.Save()
//
// An Index is not safe for concurrent use, and two runs must not share a
// snapshot path at the same time (see package lock).
package index

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// ContentHasher computes the digest stored on a file entry.
type ContentHasher interface {
	Hash(path string, info fs.FileInfo) (string, error)
}

// Excluder decides whether a root-relative path is left out of the index.
type Excluder interface {
	Excluded(rel string, isDir bool) bool
}

// Index is one root directory and its snapshot.
type Index struct {
	rootDir      string
	snapshotPath string
	root         *Folder

	hasher   ContentHasher
	excluder Excluder
	clock    func() time.Time
}

// Option configures an Index.
type Option func(*Index)

// WithHasher sets the content hasher. The default is sha256.
func WithHasher(h ContentHasher) Option {
	return func(ix *Index) {
		if h != nil {
			ix.hasher = h
		}
	}
}

// WithExcluder leaves matching paths out of the index.
func WithExcluder(e Excluder) Option {
	return func(ix *Index) {
		ix.excluder = e
	}
}

// WithClock sets the clock used to stamp a fresh root.
func WithClock(clock func() time.Time) Option {
	return func(ix *Index) {
		if clock != nil {
			ix.clock = clock
		}
	}
}

// Open loads the snapshot at snapshotPath, or starts a fresh tree named
// after rootDir when no snapshot exists. A snapshot that exists but does
// not parse is an error wrapping ErrCorruptSnapshot.
func Open(rootDir, snapshotPath string, opts ...Option) (*Index, error) {
	ix := &Index{
		rootDir:      rootDir,
		snapshotPath: snapshotPath,
		hasher:       hasher.Default(),
		clock:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(ix)
	}

	root, err := Load(snapshotPath)
	switch {
	case err == nil:
		ix.root = root
	case errors.Is(err, fs.ErrNotExist):
		name := filepath.Base(strings.TrimRight(filepath.ToSlash(rootDir), "/"))
		ix.root = NewFolder(name, "", ix.clock().UTC())
		logging.Get("index").Debug("starting fresh snapshot", "root", rootDir, "snapshot", snapshotPath)
	default:
		return nil, err
	}

	return ix, nil
}

// New wraps an in-memory tree without touching disk.
func New(rootDir, snapshotPath string, root *Folder, opts ...Option) *Index {
	ix := &Index{
		rootDir:      rootDir,
		snapshotPath: snapshotPath,
		root:         root,
		hasher:       hasher.Default(),
		clock:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Root returns the root folder.
func (ix *Index) Root() *Folder { return ix.root }

// RootDir returns the indexed directory.
func (ix *Index) RootDir() string { return ix.rootDir }

// SnapshotPath returns where Save writes.
func (ix *Index) SnapshotPath() string { return ix.snapshotPath }

// abs resolves a root-relative POSIX path on disk.
func (ix *Index) abs(rel string) string {
	if rel == "" {
		return ix.rootDir
	}
	return filepath.Join(ix.rootDir, filepath.FromSlash(rel))
}

// Lookup finds the entry at a '/'-separated root-relative path. Empty
// segments are ignored, so "" is the root.
func (ix *Index) Lookup(rel string) (Entry, bool) {
	var current Entry = ix.root
	for _, seg := range strings.Split(rel, "/") {
		if seg == "" {
			continue
		}
		folder, ok := current.(*Folder)
		if !ok {
			return nil, false
		}
		child, ok := folder.Children[seg]
		if !ok {
			return nil, false
		}
		current = child
	}
	return current, true
}

// TouchPath sets updated_at on the entry at rel to now, leaving size, hash
// and children alone. A path that is not indexed is ignored and reported
// as false.
func (ix *Index) TouchPath(now time.Time, rel string) bool {
	e, ok := ix.Lookup(rel)
	if !ok {
		return false
	}
	e.Info().UpdatedAt = now.UTC()
	return true
}

// TouchPaths touches each path and returns how many were indexed.
func (ix *Index) TouchPaths(now time.Time, paths ...string) int {
	touched := 0
	for _, p := range paths {
		if ix.TouchPath(now, p) {
			touched++
		}
	}
	return touched
}

// RecomputeAggregates sets every folder's size to the sum of its
// children and raises its updated_at to the newest of its own created_at
// and its children's updated_at. updated_at never moves backwards.
func (ix *Index) RecomputeAggregates() {
	aggregate(ix.root)
}

func aggregate(folder *Folder) {
	var size int64
	latest := folder.CreatedAt

	for _, child := range folder.Children {
		if sub, ok := child.(*Folder); ok {
			aggregate(sub)
		}
		m := child.Info()
		size += m.Size
		if m.UpdatedAt.After(latest) {
			latest = m.UpdatedAt
		}
	}

	folder.Size = size
	if latest.After(folder.UpdatedAt) {
		folder.UpdatedAt = latest
	}
}

// Save writes the canonical snapshot, creating parent directories. The
// tree goes to a temporary file in the same directory that is renamed
// over the snapshot, so readers never see a partial file. Errors wrap
// ErrPersistFailure.
func (ix *Index) Save() error {
	if err := writeSnapshot(ix.snapshotPath, ix.root); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPersistFailure, ix.snapshotPath, err)
	}
	logging.Get("index").Debug("snapshot saved", "path", ix.snapshotPath, "size", ix.root.Size)
	return nil
}

func writeSnapshot(path string, root *Folder) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := Encode(tmp, root); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encoding: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("syncing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("setting mode: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming: %w", err)
	}
	return nil
}

// PrintTree writes one line per entry, indented four spaces per level:
// icon, name, size and updated_at.
func (ix *Index) PrintTree(w io.Writer) error {
	var err error
	var visit func(e Entry, depth int)
	visit = func(e Entry, depth int) {
		if err != nil {
			return
		}
		m := e.Info()
		icon := "📄"
		if e.Kind() == KindFolder {
			icon = "📁"
		}
		_, err = fmt.Fprintf(w, "%s%s %s : %s %s\n",
			strings.Repeat("    ", depth), icon, m.Name,
			types.FormatSize(m.Size), types.FormatTime(m.UpdatedAt))

		if folder, ok := e.(*Folder); ok {
			for _, name := range folder.Names() {
				visit(folder.Children[name], depth+1)
			}
		}
	}
	visit(ix.root, 0)
	return err
}

// Stats counts the entries below the root. The root itself is not counted
// as a folder.
func (ix *Index) Stats() types.TreeStats {
	return Stats(ix.root)
}

// Stats counts the entries below root.
func Stats(root *Folder) types.TreeStats {
	stats := types.TreeStats{Size: root.Size, UpdatedAt: root.UpdatedAt}
	Walk(root, func(e Entry) bool {
		if e == Entry(root) {
			return true
		}
		switch e.Kind() {
		case KindFile:
			stats.Files++
		case KindFolder:
			stats.Folders++
		}
		return true
	})
	return stats
}
