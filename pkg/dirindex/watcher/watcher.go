// Package watcher turns filesystem events under the indexed folders into
// debounced batches of changed paths.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"

	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
)

// DefaultDebounce is used when no debounce is configured.
const DefaultDebounce = 2 * time.Second

// FlushFunc receives one batch of changed paths, sorted. Batches never
// overlap.
type FlushFunc func(ctx context.Context, paths []string)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits after the last event
// before flushing.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore drops events for paths where fn returns true.
func WithIgnore(fn func(path string) bool) Option {
	return func(w *Watcher) {
		w.ignore = fn
	}
}

// Watcher watches directory trees recursively.
type Watcher struct {
	watcher  *fsnotify.Watcher
	paths    map[string]bool
	mu       sync.RWMutex
	closed   bool
	debounce time.Duration
	ignore   func(path string) bool
}

// New creates a Watcher.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		paths:    make(map[string]bool),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds root and every directory below it. Symlinks are not followed.
func (w *Watcher) Watch(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	info, err := os.Lstat(absRoot)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	return w.addTree(absRoot)
}

// addTree watches dir and its subdirectories. Directories that cannot be
// read or watched are skipped.
func (w *Watcher) addTree(dir string) error {
	conf := fastwalk.Config{
		Follow: false,
	}

	err := fastwalk.Walk(&conf, dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil //nolint:nilerr // Skip unreadable entries
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.addWatch(path); err != nil && path == dir {
			return err
		}
		return nil
	})
	if errors.Is(err, fastwalk.ErrSkipFiles) {
		return nil
	}
	return err
}

func (w *Watcher) addWatch(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || w.paths[path] {
		return nil
	}

	if err := w.watcher.Add(path); err != nil {
		logging.Get("watcher").Warn("failed to add watch", "path", path, "error", err)
		return err
	}

	w.paths[path] = true
	return nil
}

// drop stops watching root and everything below it.
func (w *Watcher) drop(root string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	for path := range w.paths {
		if path == root || isSubPath(path, root) {
			_ = w.watcher.Remove(path)
			delete(w.paths, path)
		}
	}
}

// Watched returns the watched directories, sorted.
func (w *Watcher) Watched() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	out := make([]string, 0, len(w.paths))
	for path := range w.paths {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Run collects events until ctx is cancelled. Once no event has arrived
// for the debounce interval the pending paths are handed to flush. Events
// that arrive while flush runs are held for the next batch. Paths still
// pending at cancellation are dropped; Run waits for a running flush.
func (w *Watcher) Run(ctx context.Context, flush FlushFunc) {
	log := logging.Get("watcher")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var (
		fire    <-chan time.Time
		running chan struct{}
	)
	arm := func() {
		timer.Reset(w.debounce)
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if running != nil {
				<-running
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.handleEvent(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			if running == nil {
				arm()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			if len(pending) == 0 {
				continue
			}
			batch := drain(pending)
			log.Debug("flushing changes", "paths", len(batch))

			running = make(chan struct{})
			go func(done chan struct{}) {
				defer close(done)
				flush(ctx, batch)
			}(running)

		case <-running:
			running = nil
			if len(pending) > 0 {
				arm()
			}
		}
	}
}

// handleEvent keeps the watch set in step with the tree and reports
// whether the event names a change worth indexing.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if w.ignored(event.Name) {
		return false
	}

	switch {
	case event.Op.Has(fsnotify.Create):
		w.handleCreate(event.Name)
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		// The new name of a rename arrives as its own Create.
		w.drop(event.Name)
	case event.Op.Has(fsnotify.Write):
	default:
		return false
	}
	return true
}

func (w *Watcher) handleCreate(path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.Mode()&fs.ModeSymlink != 0 || !info.IsDir() {
		return
	}
	if err := w.addTree(path); err != nil {
		logging.Get("watcher").Warn("failed to watch new directory", "path", path, "error", err)
	}
}

func (w *Watcher) ignored(path string) bool {
	return w.ignore != nil && w.ignore(path)
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true
	w.paths = make(map[string]bool)
	return w.watcher.Close()
}

func drain(pending map[string]struct{}) []string {
	out := make([]string, 0, len(pending))
	for path := range pending {
		out = append(out, path)
		delete(pending, path)
	}
	sort.Strings(out)
	return out
}

// isSubPath checks if path is under parent directory.
func isSubPath(path, parent string) bool {
	return len(path) > len(parent) && path[:len(parent)+1] == parent+string(filepath.Separator)
}
