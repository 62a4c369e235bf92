package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/pkg/dirindex/config"
	"github.com/jamesainslie/dirindex/pkg/dirindex/manifest"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View run history",
	Long: `View the history of update and watch runs.

The manifest stores a record of every run: which folders were indexed,
what was added, removed or replaced, and the resulting totals.`,
	RunE: runHistory,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show details of a specific run",
	Long:  `Display detailed information about a run by its ID or a unique ID prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean up old history entries",
	Long:  `Remove history entries older than the retention period (manifest.retention_days).`,
	RunE:  runHistoryClean,
}

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "maximum number of entries to show")

	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyCleanCmd)
	rootCmd.AddCommand(historyCmd)
}

func getManifest() (*manifest.Manifest, error) {
	m, err := manifest.New(cfg.ManifestDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize manifest: %w", err)
	}
	return m, nil
}

// runHistory lists recent runs.
func runHistory(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	m, err := getManifest()
	if err != nil {
		return err
	}

	entries, err := m.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}

	if len(entries) == 0 {
		printInfo(out, "No history entries found.")
		printInfo(out, "Run 'dirindex update' to index the configured folders.")
		return nil
	}

	fmt.Fprintf(out, "\n%-36s  %-6s  %-7s  %-7s  %-8s  %-10s\n", "ID", "TYPE", "ADDED", "REMOVED", "REPLACED", "SIZE")
	fmt.Fprintln(out, strings.Repeat("-", 84))

	for _, entry := range entries {
		fmt.Fprintf(out, "%-36s  %-6s  %-7d  %-7d  %-8d  %-10s\n",
			truncateString(entry.ID, 36),
			entry.Operation,
			entry.Summary.Added,
			entry.Summary.Removed,
			entry.Summary.Replaced,
			types.FormatSize(entry.Summary.Size),
		)
	}

	fmt.Fprintln(out, strings.Repeat("-", 84))
	fmt.Fprintln(out, "Use 'dirindex history show <id>' for details on a specific entry.")
	return nil
}

// runHistoryShow displays details of a specific run.
func runHistoryShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	m, err := getManifest()
	if err != nil {
		return err
	}

	entry, err := m.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	fmt.Fprintln(out, "\nRun Details")
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "ID:         %s\n", entry.ID)
	fmt.Fprintf(out, "Timestamp:  %s\n", entry.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(out, "Operation:  %s\n", entry.Operation)
	fmt.Fprintf(out, "Duration:   %s\n", entry.Duration)
	fmt.Fprintf(out, "Changed:    %d paths\n", entry.Changed)

	const limit = 50
	for _, f := range entry.Folders {
		fmt.Fprintf(out, "\n%s (%s, %d files)\n", f.Name, types.FormatSize(f.Size), f.Files)
		fmt.Fprintln(out, strings.Repeat("-", 60))
		if f.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", f.Error)
		}
		if f.Touched > 0 {
			fmt.Fprintf(out, "  touched %d\n", f.Touched)
		}
		for _, group := range []struct {
			mark  string
			paths []string
		}{
			{"+", f.Added},
			{"-", f.Removed},
			{"~", f.Replaced},
		} {
			for i, p := range group.paths {
				if i == limit {
					fmt.Fprintf(out, "  ... and %d more\n", len(group.paths)-limit)
					break
				}
				fmt.Fprintf(out, "  %s %s\n", group.mark, p)
			}
		}
	}
	return nil
}

// runHistoryClean removes old history entries.
func runHistoryClean(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	m, err := getManifest()
	if err != nil {
		return err
	}

	retentionDays := cfg.Manifest.RetentionDays
	if retentionDays <= 0 {
		retentionDays = config.DefaultRetentionDays
	}

	printInfo(out, "Cleaning history entries older than %d days...", retentionDays)

	removed, err := m.Cleanup(retentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	printInfo(out, "Removed %d entries.", removed)
	return nil
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
