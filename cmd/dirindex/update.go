package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/pkg/dirindex/changeset"
	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
	"github.com/jamesainslie/dirindex/pkg/dirindex/manifest"
	"github.com/jamesainslie/dirindex/pkg/dirindex/runner"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

var updateCmd = &cobra.Command{
	Use:   "update [folder...]",
	Short: "Reconcile snapshots with the disk",
	Long: `Update every configured folder, or only the named ones.

Files listed in the changed-file list are first passed through their file
actions (names like @hash_name@logo.png), then each folder is reconciled
with the disk, the changed files are marked as updated and the snapshot
is written back. All folders share one timestamp.`,
	RunE: runUpdate,
}

var (
	updateChanges   string
	updateTree      bool
	updateNoActions bool
)

func init() {
	updateCmd.Flags().StringVarP(&updateChanges, "changes", "c", "", "changed-file list (default from config)")
	updateCmd.Flags().BoolVarP(&updateTree, "tree", "t", false, "print each folder's tree after saving")
	updateCmd.Flags().BoolVar(&updateNoActions, "no-actions", false, "do not run file actions ("+joinActions()+")")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	folders, err := selectFolders(args)
	if err != nil {
		return err
	}

	file := updateChanges
	if file == "" {
		file = cfg.Changes.File
	}
	changed, err := changeset.Load(file)
	if err != nil {
		return err
	}
	logging.Get("cli").Info("changed files loaded", "file", file, "count", len(changed))

	opts, release, err := runnerOptions(folders, manifest.OpUpdate)
	if err != nil {
		return err
	}
	defer release()

	opts.Actions = opts.Actions && !updateNoActions
	if updateTree {
		opts.TreeOutput = cmd.OutOrStdout()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAndReport(ctx, cmd.OutOrStdout(), runner.New(opts), changed)
}

// runnerOptions builds runner options from the configuration. The
// returned func releases the digest cache.
func runnerOptions(folders []runner.Folder, op manifest.OperationType) (runner.Options, func(), error) {
	excluder, err := buildExcluder()
	if err != nil {
		return runner.Options{}, nil, err
	}
	h, release, err := buildHasher()
	if err != nil {
		return runner.Options{}, nil, err
	}

	return runner.Options{
		Folders:   folders,
		Base:      cfg.Changes.Base,
		Actions:   cfg.Actions.Enabled,
		Hasher:    h,
		Excluder:  excluder,
		Journal:   openJournal(),
		Operation: op,
	}, release, nil
}

// openJournal returns the run journal, or nil when disabled or unusable.
func openJournal() *manifest.Manifest {
	if !cfg.Manifest.Enabled {
		return nil
	}
	m, err := manifest.New(cfg.ManifestDir())
	if err != nil {
		logging.Get("cli").Warn("manifest disabled", "dir", cfg.ManifestDir(), "error", err)
		return nil
	}
	return m
}

func runAndReport(ctx context.Context, w io.Writer, r *runner.Runner, changed []string) error {
	report, err := r.Run(ctx, changed)
	printReport(w, report)
	return err
}

// printReport prints one line per folder.
func printReport(w io.Writer, report *runner.Report) {
	if report == nil || getQuiet() {
		return
	}

	for _, f := range report.Folders {
		if f.Err != nil {
			fmt.Fprintf(w, "%-12s  failed: %v\n", f.Name, f.Err)
			continue
		}
		fmt.Fprintf(w, "%-12s  +%d -%d ~%d  touched %d  %s in %d files\n",
			f.Name, len(f.Added), len(f.Removed), len(f.Replaced), f.Touched,
			types.FormatSize(f.Stats.Size), f.Stats.Files)
	}
	if report.EntryID != "" {
		fmt.Fprintf(w, "Recorded as %s\n", report.EntryID)
	}
}
