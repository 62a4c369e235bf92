package main

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/pkg/dirindex/output"
)

var showCmd = &cobra.Command{
	Use:   "show [folder...]",
	Short: "Print snapshots",
	Long: `Print the snapshot of every configured folder, or only the named ones.

Output formats:
  tree   styled tree with sizes and ages (default)
  plain  tab-separated path, size and updated_at
  paths  one file path per line
  json   the snapshot as stored
  yaml   the tree and totals as YAML`,
	RunE: runShow,
}

var showFormat string

func init() {
	showCmd.Flags().StringVarP(&showFormat, "output", "o", "tree",
		"output format ("+strings.Join(output.Available(), ", ")+")")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	formatter, err := output.Get(showFormat)
	if err != nil {
		return err
	}

	folders, err := selectFolders(args)
	if err != nil {
		return err
	}

	now := time.Now()
	var buf bytes.Buffer
	for _, f := range folders {
		tree, err := loadSnapshot(f)
		if err != nil {
			return err
		}

		result := output.NewResult(f.Name, f.Root, f.Snapshot, tree, now)
		if err := formatter.Format(&buf, result); err != nil {
			return fmt.Errorf("formatting %s: %w", f.Name, err)
		}
	}

	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}
