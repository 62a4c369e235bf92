package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/cmd/dirindex/tui"
)

var browseCmd = &cobra.Command{
	Use:   "browse [folder...]",
	Short: "Browse snapshots interactively",
	Long: `Open an interactive tree browser over the snapshots of every configured
folder, or only the named ones. Use tab to switch folders and ? for keys.`,
	RunE: runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(_ *cobra.Command, args []string) error {
	folders, err := selectFolders(args)
	if err != nil {
		return err
	}

	views := make([]tui.Folder, 0, len(folders))
	for _, f := range folders {
		tree, err := loadSnapshot(f)
		if err != nil {
			return err
		}
		views = append(views, tui.Folder{Name: f.Name, Root: f.Root, Tree: tree})
	}

	return tui.Run(views)
}
