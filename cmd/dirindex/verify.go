package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
	"github.com/jamesainslie/dirindex/pkg/dirindex/verify"
)

// errDrift is returned when a snapshot no longer matches the disk.
var errDrift = errors.New("snapshots differ from disk")

var verifyCmd = &cobra.Command{
	Use:   "verify [folder...]",
	Short: "Check snapshots against the disk",
	Long: `Compare each snapshot with its folder without changing either.

Reports entries on disk but not indexed, indexed entries no longer on disk,
file/folder swaps, file size differences and folder totals that do not add
up. Exits non-zero when anything differs; run 'dirindex update' to fix.`,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	folders, err := selectFolders(args)
	if err != nil {
		return err
	}
	excluder, err := buildExcluder()
	if err != nil {
		return err
	}

	drifted := 0
	for _, f := range folders {
		tree, err := loadSnapshot(f)
		if err != nil {
			return err
		}

		report, err := verify.Check(f.Root, tree, excluder)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", f.Name, err)
		}

		if report.Clean() {
			printInfo(out, "%-12s  ok (%d entries)", f.Name, report.Checked)
			continue
		}
		drifted++
		printDrift(out, f.Name, report)
	}

	if drifted > 0 {
		return fmt.Errorf("%w: %d folder(s)", errDrift, drifted)
	}
	return nil
}

func printDrift(w io.Writer, name string, r *verify.Report) {
	fmt.Fprintf(w, "%-12s  drift\n", name)
	for _, p := range r.Missing {
		fmt.Fprintf(w, "  + %s (not indexed)\n", p)
	}
	for _, p := range r.Stale {
		fmt.Fprintf(w, "  - %s (gone from disk)\n", p)
	}
	for _, p := range r.KindMismatch {
		fmt.Fprintf(w, "  ! %s (file/folder changed)\n", p)
	}
	for _, d := range r.SizeMismatch {
		fmt.Fprintf(w, "  ~ %s (indexed %s, disk %s)\n", d.Path, types.FormatSize(d.Want), types.FormatSize(d.Got))
	}
	for _, d := range r.Aggregates {
		fmt.Fprintf(w, "  ∑ %s (recorded %s, children %s)\n", d.Path, types.FormatSize(d.Want), types.FormatSize(d.Got))
	}
	for _, p := range r.Timestamps {
		fmt.Fprintf(w, "  ⏱ %s (older than a child)\n", p)
	}
}
