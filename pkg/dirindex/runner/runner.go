// Package runner drives index runs over the configured folders: apply
// file actions, then for each folder reconcile, touch the changed paths,
// aggregate and save.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jamesainslie/dirindex/pkg/dirindex/action"
	"github.com/jamesainslie/dirindex/pkg/dirindex/changeset"
	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/lock"
	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
	"github.com/jamesainslie/dirindex/pkg/dirindex/manifest"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// Folder is one indexed directory and its snapshot.
type Folder struct {
	Name     string
	Root     string
	Snapshot string
}

// Options configures a Runner.
type Options struct {
	Folders []Folder

	// Base is the directory changed paths are relative to. Empty means
	// the working directory.
	Base string

	// Actions runs the file action processor on changed paths first.
	Actions bool

	// Hasher and Excluder are passed to every index.
	Hasher   index.ContentHasher
	Excluder index.Excluder

	// Journal, when set, records each run.
	Journal   *manifest.Manifest
	Operation manifest.OperationType

	// TreeOutput, when set, receives each folder's tree after saving.
	TreeOutput io.Writer

	// Clock stamps the run. Defaults to time.Now.
	Clock func() time.Time
}

// FolderReport is the outcome of a run for one folder.
type FolderReport struct {
	Folder
	Added    []string
	Removed  []string
	Replaced []string
	Touched  int
	Stats    types.TreeStats
	Err      error
}

// Report is the outcome of one run.
type Report struct {
	Now      time.Time
	Duration time.Duration
	// Changed are the changed paths after actions, resolved against Base.
	Changed []string
	Folders []FolderReport
	// EntryID is the manifest entry written for the run, if any.
	EntryID string
}

// Changes reports whether any folder gained, lost or replaced entries.
func (r *Report) Changes() bool {
	for _, f := range r.Folders {
		if len(f.Added)+len(f.Removed)+len(f.Replaced) > 0 {
			return true
		}
	}
	return false
}

// Runner runs index passes. Passes on one Runner must not overlap.
type Runner struct {
	opts Options
}

// New returns a Runner.
func New(opts Options) *Runner {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Base == "" {
		opts.Base = "."
	}
	if opts.Operation == "" {
		opts.Operation = manifest.OpUpdate
	}
	return &Runner{opts: opts}
}

// Folders returns the configured folders.
func (r *Runner) Folders() []Folder {
	return r.opts.Folders
}

// Run processes the changed paths and updates every folder. All folders
// share one timestamp. A folder that fails does not stop the others; the
// returned error joins every folder error. ctx is checked between folders.
func (r *Runner) Run(ctx context.Context, changed []string) (*Report, error) {
	log := logging.Get("runner")
	start := time.Now()

	paths := r.resolve(changed)
	if r.opts.Actions {
		paths = r.applyActions(paths)
	}

	report := &Report{
		Now:     r.opts.Clock().UTC(),
		Changed: paths,
	}

	var errs []error
	for _, folder := range r.opts.Folders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		fr := r.runFolder(report.Now, folder, paths)
		if fr.Err != nil {
			log.Error("folder failed", "folder", folder.Name, "error", fr.Err)
			errs = append(errs, fmt.Errorf("folder %s: %w", folder.Name, fr.Err))
		} else {
			log.Info("folder indexed",
				"folder", folder.Name,
				"added", len(fr.Added),
				"removed", len(fr.Removed),
				"replaced", len(fr.Replaced),
				"touched", fr.Touched,
				"size", types.FormatSize(fr.Stats.Size))
		}
		report.Folders = append(report.Folders, fr)
	}

	report.Duration = time.Since(start)
	r.journal(report)

	return report, errors.Join(errs...)
}

// resolve makes changed paths absolute so they compare with folder roots.
func (r *Runner) resolve(changed []string) []string {
	out := changeset.Resolve(r.opts.Base, changed)
	for i, p := range out {
		if abs, err := filepath.Abs(p); err == nil {
			out[i] = abs
		}
	}
	return out
}

func (r *Runner) applyActions(paths []string) []string {
	log := logging.Get("runner")

	out := make([]string, 0, len(paths))
	for _, p := range paths {
		res, err := action.Run(p)
		if err != nil {
			log.Warn("file action failed", "path", p, "error", err)
			if res.Path == "" {
				res.Path = p
			}
		}
		out = append(out, res.Paths()...)
	}
	return out
}

func (r *Runner) runFolder(now time.Time, folder Folder, paths []string) (fr FolderReport) {
	fr.Folder = folder

	l, err := lock.Acquire(folder.Snapshot)
	if err != nil {
		fr.Err = err
		return fr
	}
	defer func() {
		if err := l.Release(); err != nil {
			logging.Get("runner").Warn("releasing lock", "path", l.Path(), "error", err)
		}
	}()

	ix, err := index.Open(folder.Root, folder.Snapshot,
		index.WithHasher(r.opts.Hasher),
		index.WithExcluder(r.opts.Excluder),
		index.WithClock(func() time.Time { return now }),
	)
	if err != nil {
		fr.Err = err
		return fr
	}

	changes := ix.Reconcile(now)
	fr.Added, fr.Removed, fr.Replaced = changes.Added, changes.Removed, changes.Replaced

	root := folder.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	fr.Touched = ix.TouchPaths(now, changeset.Map(paths, root)...)

	ix.RecomputeAggregates()
	if err := ix.Save(); err != nil {
		fr.Err = err
		return fr
	}
	fr.Stats = ix.Stats()

	if r.opts.TreeOutput != nil {
		fmt.Fprintf(r.opts.TreeOutput, "\n%s\n🌳 Tree: %s\n", strings.Repeat("=", 10), folder.Root)
		if err := ix.PrintTree(r.opts.TreeOutput); err != nil {
			logging.Get("runner").Warn("printing tree", "folder", folder.Name, "error", err)
		}
	}
	return fr
}

func (r *Runner) journal(report *Report) {
	if r.opts.Journal == nil {
		return
	}

	entry := manifest.Entry{
		Duration: report.Duration,
		Changed:  len(report.Changed),
	}
	for _, f := range report.Folders {
		rec := manifest.FolderRecord{
			Name:     f.Name,
			Snapshot: f.Snapshot,
			Added:    f.Added,
			Removed:  f.Removed,
			Replaced: f.Replaced,
			Touched:  f.Touched,
			Size:     f.Stats.Size,
			Files:    f.Stats.Files,
		}
		if f.Err != nil {
			rec.Error = f.Err.Error()
		}
		entry.Folders = append(entry.Folders, rec)
	}

	logged, err := r.opts.Journal.LogRun(r.opts.Operation, entry)
	if err != nil {
		logging.Get("runner").Warn("writing manifest", "error", err)
		return
	}
	report.EntryID = logged.ID
}
