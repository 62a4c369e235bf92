// Package verify compares a snapshot with the directory it describes
// without modifying either.
package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/charlievieth/fastwalk"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
)

// SizeDiff is a size that disagrees with what it was checked against.
type SizeDiff struct {
	Path string
	// Want is the size recorded in the snapshot.
	Want int64
	// Got is the size on disk, or the sum of the children for aggregates.
	Got int64
}

// Report lists the drift found by Check. Paths are relative to the root
// and use '/' separators. Only the topmost path of a missing or stale
// subtree is listed.
type Report struct {
	Root string
	// Checked is the number of entries seen on disk.
	Checked int

	Missing      []string
	Stale        []string
	KindMismatch []string
	SizeMismatch []SizeDiff

	// Aggregates lists folders whose size is not the sum of their children.
	Aggregates []SizeDiff
	// Timestamps lists folders older than one of their children.
	Timestamps []string
}

// Clean reports whether no drift was found.
func (r *Report) Clean() bool {
	return len(r.Missing)+len(r.Stale)+len(r.KindMismatch)+len(r.SizeMismatch)+
		len(r.Aggregates)+len(r.Timestamps) == 0
}

type diskEntry struct {
	dir  bool
	size int64
}

// Check walks root and compares it with snap. A root that does not exist
// is treated as empty. excluder may be nil.
func Check(root string, snap *index.Folder, excluder index.Excluder) (*Report, error) {
	report := &Report{Root: root}

	disk, err := walk(root, excluder)
	if err != nil {
		return nil, err
	}
	report.Checked = len(disk)

	indexed := make(map[string]index.Entry)
	index.Walk(snap, func(e index.Entry) bool {
		if e == index.Entry(snap) {
			checkAggregates(report, snap)
			return true
		}

		rel := e.Info().RelativePath
		indexed[rel] = e

		d, ok := disk[rel]
		switch {
		case !ok:
			report.Stale = append(report.Stale, rel)
			return false
		case d.dir != (e.Kind() == index.KindFolder):
			report.KindMismatch = append(report.KindMismatch, rel)
			return false
		}

		if folder, ok := e.(*index.Folder); ok {
			checkAggregates(report, folder)
		} else if d.size != e.Info().Size {
			report.SizeMismatch = append(report.SizeMismatch, SizeDiff{
				Path: rel,
				Want: e.Info().Size,
				Got:  d.size,
			})
		}
		return true
	})

	for rel := range disk {
		if _, ok := indexed[rel]; ok {
			continue
		}
		parent := path.Dir(rel)
		if parent == "." {
			report.Missing = append(report.Missing, rel)
			continue
		}
		if p, ok := indexed[parent]; ok && p.Kind() == index.KindFolder && disk[parent].dir {
			report.Missing = append(report.Missing, rel)
		}
	}

	sort.Strings(report.Missing)
	sort.Strings(report.Stale)
	sort.Strings(report.KindMismatch)
	sort.Slice(report.SizeMismatch, func(i, j int) bool {
		return report.SizeMismatch[i].Path < report.SizeMismatch[j].Path
	})
	sort.Slice(report.Aggregates, func(i, j int) bool {
		return report.Aggregates[i].Path < report.Aggregates[j].Path
	})
	sort.Strings(report.Timestamps)
	return report, nil
}

func checkAggregates(report *Report, folder *index.Folder) {
	var sum int64
	older := false
	for _, child := range folder.Children {
		sum += child.Info().Size
		if child.Info().UpdatedAt.After(folder.UpdatedAt) {
			older = true
		}
	}

	rel := folder.RelativePath
	if rel == "" {
		rel = "."
	}
	if sum != folder.Size {
		report.Aggregates = append(report.Aggregates, SizeDiff{Path: rel, Want: folder.Size, Got: sum})
	}
	if older {
		report.Timestamps = append(report.Timestamps, rel)
	}
}

// walk lists the indexable entries below root keyed by relative path,
// following the same rules as reconciliation.
func walk(root string, excluder index.Excluder) (map[string]diskEntry, error) {
	root = filepath.Clean(root)
	info, err := os.Lstat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]diskEntry{}, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	var (
		mu   sync.Mutex
		disk = make(map[string]diskEntry)
	)

	conf := fastwalk.Config{
		Follow: false,
	}

	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Unreadable entries are absent, as in reconciliation
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil || rel == "." {
			return nil //nolint:nilerr // Not below root
		}
		rel = filepath.ToSlash(rel)
		if !utf8.ValidString(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		var entry diskEntry
		switch {
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Stat(p)
			if err != nil || !target.Mode().IsRegular() {
				return nil //nolint:nilerr // Dangling links and linked dirs are not indexed
			}
			entry.size = target.Size()
		case d.IsDir():
			entry.dir = true
		case d.Type().IsRegular():
			fi, err := d.Info()
			if err != nil {
				return nil //nolint:nilerr // Vanished during the walk
			}
			entry.size = fi.Size()
		default:
			return nil
		}

		if excluder != nil && excluder.Excluded(rel, entry.dir) {
			if entry.dir {
				return filepath.SkipDir
			}
			return nil
		}

		mu.Lock()
		disk[rel] = entry
		mu.Unlock()
		return nil
	})
	if err != nil && !errors.Is(err, fastwalk.ErrSkipFiles) {
		return nil, err
	}
	return disk, nil
}
