package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
	"github.com/jamesainslie/dirindex/pkg/dirindex/manifest"
	"github.com/jamesainslie/dirindex/pkg/dirindex/runner"
	"github.com/jamesainslie/dirindex/pkg/dirindex/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder...]",
	Short: "Update snapshots as files change",
	Long: `Run one full update, then watch the folder roots and update again once
changes have settled for the debounce interval (watch.debounce).

Changed files are marked as updated and run through their file actions,
as in 'dirindex update'. Stop with Ctrl+C.`,
	RunE: runWatch,
}

var watchNoActions bool

func init() {
	watchCmd.Flags().Duration("debounce", 0, "quiet period before updating (default from config)")
	watchCmd.Flags().BoolVar(&watchNoActions, "no-actions", false, "do not run file actions ("+joinActions()+")")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	log := logging.Get("cli")
	out := cmd.OutOrStdout()

	folders, err := selectFolders(args)
	if err != nil {
		return err
	}

	opts, release, err := runnerOptions(folders, manifest.OpWatch)
	if err != nil {
		return err
	}
	defer release()
	opts.Actions = opts.Actions && !watchNoActions
	r := runner.New(opts)

	debounce := cfg.Watch.Debounce
	if d, _ := cmd.Flags().GetDuration("debounce"); d > 0 {
		debounce = d
	}

	w, err := watcher.New(
		watcher.WithDebounce(debounce),
		watcher.WithIgnore(snapshotIgnorer(folders)),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, f := range folders {
		if err := w.Watch(f.Root); err != nil {
			log.Warn("not watching folder", "folder", f.Name, "root", f.Root, "error", err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runAndReport(ctx, out, r, nil); err != nil {
		printError(cmd.ErrOrStderr(), "%v", err)
	}

	printInfo(out, "Watching %d folder(s), %d directories. Press Ctrl+C to stop.", len(folders), len(w.Watched()))
	w.Run(ctx, func(ctx context.Context, paths []string) {
		log.Info("changes settled", "paths", len(paths))
		if err := runAndReport(ctx, out, r, paths); err != nil {
			printError(cmd.ErrOrStderr(), "%v", err)
		}
	})
	return nil
}

// snapshotIgnorer drops events for snapshot files, their locks and their
// temporary files, so saving a snapshot inside a watched root does not
// trigger another run.
func snapshotIgnorer(folders []runner.Folder) func(string) bool {
	type snap struct{ dir, base string }
	snaps := make([]snap, 0, len(folders))
	for _, f := range folders {
		abs, err := filepath.Abs(f.Snapshot)
		if err != nil {
			continue
		}
		snaps = append(snaps, snap{dir: filepath.Dir(abs), base: filepath.Base(abs)})
	}

	return func(path string) bool {
		dir, base := filepath.Dir(path), filepath.Base(path)
		for _, s := range snaps {
			if dir == s.dir && (strings.HasPrefix(base, s.base) || strings.HasPrefix(base, "."+s.base)) {
				return true
			}
		}
		return false
	}
}
