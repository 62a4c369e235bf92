// Package output renders snapshots for display in various formats (tree,
// plain, paths, json, yaml).
//
// Formatters are looked up by name in a registry:
//
//	formatter, err := output.Get("tree")
//	if err != nil {
//	    return err
//	}
//	var buf bytes.Buffer
//	if err := formatter.Format(&buf, result); err != nil {
//	    return err
//	}
package output

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// Result is one snapshot prepared for formatting.
type Result struct {
	// Name is the configured folder name.
	Name string

	// Root is the indexed directory.
	Root string

	// Snapshot is the snapshot file the tree was loaded from.
	Snapshot string

	// Tree is the loaded snapshot.
	Tree *index.Folder

	// Stats summarizes Tree.
	Stats types.TreeStats

	// Now is the reference time for relative ages.
	Now time.Time
}

// NewResult builds a Result for tree, computing its stats.
func NewResult(name, root, snapshot string, tree *index.Folder, now time.Time) *Result {
	return &Result{
		Name:     name,
		Root:     root,
		Snapshot: snapshot,
		Tree:     tree,
		Stats:    index.Stats(tree),
		Now:      now,
	}
}

// ErrUnknownFormat is returned by Get for a name nothing registered.
var ErrUnknownFormat = errors.New("unknown output format")

// Formatter is the interface that all output formatters must implement.
type Formatter interface {
	// Format writes the formatted output to the buffer.
	Format(w *bytes.Buffer, r *Result) error
}

// FormatterFactory is a function that creates a new Formatter instance.
type FormatterFactory func() Formatter

// Registry maps format names to formatter factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]FormatterFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]FormatterFactory)}
}

// Register adds factory under name. A later registration of the same name
// wins.
func (r *Registry) Register(name string, factory FormatterFactory) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Get returns a fresh formatter for name. Names are case-insensitive.
func (r *Registry) Get(name string) (Formatter, error) {
	r.mu.RLock()
	factory, ok := r.factories[strings.ToLower(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownFormat, name, strings.Join(r.Available(), ", "))
	}
	return factory(), nil
}

// Available returns the registered names, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	r.mu.RUnlock()

	sort.Strings(names)
	return names
}

// DefaultRegistry is the global formatter registry.
var DefaultRegistry = NewRegistry()

// Register adds a formatter factory to the default registry.
func Register(name string, factory FormatterFactory) {
	DefaultRegistry.Register(name, factory)
}

// Get returns a new formatter instance from the default registry.
func Get(name string) (Formatter, error) {
	return DefaultRegistry.Get(name)
}

// Available returns all formatter names from the default registry.
func Available() []string {
	return DefaultRegistry.Available()
}
