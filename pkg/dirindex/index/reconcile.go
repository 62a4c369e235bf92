package index

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
)

// Changes lists the root-relative paths a Reconcile pass altered.
type Changes struct {
	// Added are entries created for items new on disk.
	Added []string
	// Removed are entries dropped because their item left the disk or
	// changed between file and folder. Descendants of a removed folder
	// are not listed.
	Removed []string
	// Replaced are files recreated because their content hash changed.
	Replaced []string
}

// Empty reports whether the pass changed nothing.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Replaced) == 0
}

// diskItem is one directory child as found on disk.
type diskItem struct {
	name string
	dir  bool
	info fs.FileInfo
	hash string
}

// Reconcile brings the tree in line with the filesystem. In each folder,
// recorded children that left the disk, changed kind, or whose hash
// differs are removed first; then items with no record get fresh entries
// stamped now (new folders are filled immediately); then surviving
// folders are descended into. A folder whose directory is missing or
// unreadable loses its children but keeps its own entry.
func (ix *Index) Reconcile(now time.Time) *Changes {
	changes := &Changes{}
	ix.reconcile(ix.root, now.UTC(), changes)
	return changes
}

func (ix *Index) reconcile(folder *Folder, now time.Time, changes *Changes) {
	items, err := ix.scan(folder.RelativePath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logging.Get("index").Warn("folder unreadable, clearing", "path", ix.abs(folder.RelativePath), "error", err)
		}
		for _, name := range folder.Names() {
			changes.Removed = append(changes.Removed, childPath(folder.RelativePath, name))
		}
		folder.Children = make(map[string]Entry)
		return
	}

	onDisk := make(map[string]*diskItem, len(items))
	for _, item := range items {
		onDisk[item.name] = item
	}

	replaced := make(map[string]bool)
	for _, name := range folder.Names() {
		child := folder.Children[name]
		rel := child.Info().RelativePath
		item, ok := onDisk[name]

		switch {
		case !ok, item.dir != (child.Kind() == KindFolder):
			delete(folder.Children, name)
			changes.Removed = append(changes.Removed, rel)
		case !item.dir && child.(*File).Hash != item.hash:
			delete(folder.Children, name)
			replaced[name] = true
			changes.Replaced = append(changes.Replaced, rel)
		}
	}

	fresh := make(map[string]bool)
	for _, item := range items {
		if _, ok := folder.Children[item.name]; ok {
			continue
		}
		rel := childPath(folder.RelativePath, item.name)
		fresh[item.name] = true
		if !replaced[item.name] {
			changes.Added = append(changes.Added, rel)
		}

		if item.dir {
			sub := NewFolder(item.name, rel, now)
			folder.Children[item.name] = sub
			ix.reconcile(sub, now, changes)
			continue
		}
		folder.Children[item.name] = NewFile(item.name, rel, item.info.Size(), item.hash, now)
	}

	for _, name := range folder.Names() {
		if fresh[name] {
			continue
		}
		if sub, ok := folder.Children[name].(*Folder); ok {
			ix.reconcile(sub, now, changes)
		}
	}
}

// scan lists the indexable children of the folder at rel, sorted by name.
// Regular files and symlinks to regular files are files; directories are
// folders. Symlinked directories and special files are skipped, as are
// names that are not valid UTF-8, which the snapshot cannot store.
func (ix *Index) scan(rel string) ([]*diskItem, error) {
	dir := ix.abs(rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	items := make([]*diskItem, 0, len(entries))
	for _, de := range entries {
		name := de.Name()
		full := filepath.Join(dir, name)
		if !utf8.ValidString(name) {
			logging.Get("index").Warn("skipping name that is not valid UTF-8", "path", full)
			continue
		}

		var info fs.FileInfo
		switch {
		case de.Type()&fs.ModeSymlink != 0:
			info, err = os.Stat(full)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		case de.IsDir(), de.Type().IsRegular():
			info, err = de.Info()
			if err != nil {
				// vanished between ReadDir and Info
				continue
			}
		default:
			continue
		}

		item := &diskItem{name: name, dir: info.IsDir(), info: info}
		if ix.excluder != nil && ix.excluder.Excluded(childPath(rel, name), item.dir) {
			continue
		}
		if !item.dir {
			item.hash = ix.hashFile(full, info)
		}
		items = append(items, item)
	}
	return items, nil
}

// hashFile returns the digest of a file, or "" when it cannot be read.
func (ix *Index) hashFile(path string, info fs.FileInfo) string {
	digest, err := ix.hasher.Hash(path, info)
	if err != nil {
		logging.Get("index").Warn("hash failed", "path", path, "error", err)
		return ""
	}
	return digest
}
