package index

import (
	"path"
	"sort"
	"time"
)

// Kind distinguishes files from folders.
type Kind int

const (
	KindFile Kind = iota
	KindFolder
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	default:
		return "unknown"
	}
}

// Entry is a node in the index: either a *File or a *Folder.
type Entry interface {
	Kind() Kind
	Info() *Meta
	isEntry()
}

// Meta holds the fields common to files and folders.
type Meta struct {
	Name         string
	RelativePath string
	Size         int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Info returns the entry's metadata for in-place updates.
func (m *Meta) Info() *Meta { return m }

// File is an indexed regular file.
type File struct {
	Meta
	// Hash is the lowercase hex content digest, empty when hashing failed
	// or is disabled.
	Hash string
}

// Folder is an indexed directory. Children is keyed by child name.
type Folder struct {
	Meta
	Children map[string]Entry
}

func (*File) Kind() Kind   { return KindFile }
func (*Folder) Kind() Kind { return KindFolder }

func (*File) isEntry()   {}
func (*Folder) isEntry() {}

func newMeta(name, rel string, size int64, now time.Time) Meta {
	return Meta{
		Name:         name,
		RelativePath: rel,
		Size:         size,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewFolder returns an empty folder created at now.
func NewFolder(name, rel string, now time.Time) *Folder {
	return &Folder{
		Meta:     newMeta(name, rel, 0, now),
		Children: make(map[string]Entry),
	}
}

// NewFile returns a file entry created at now.
func NewFile(name, rel string, size int64, hash string, now time.Time) *File {
	return &File{
		Meta: newMeta(name, rel, size, now),
		Hash: hash,
	}
}

// Names returns the child names in sorted order.
func (f *Folder) Names() []string {
	names := make([]string, 0, len(f.Children))
	for name := range f.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Child returns the named child, if present.
func (f *Folder) Child(name string) (Entry, bool) {
	e, ok := f.Children[name]
	return e, ok
}

// childPath joins a child name onto a root-relative folder path.
func childPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return path.Join(parent, name)
}

// Walk visits e and its descendants depth-first, folders before their
// children, siblings in name order. Returning false from fn skips the
// entry's children.
func Walk(e Entry, fn func(Entry) bool) {
	if !fn(e) {
		return
	}
	folder, ok := e.(*Folder)
	if !ok {
		return
	}
	for _, name := range folder.Names() {
		Walk(folder.Children[name], fn)
	}
}
