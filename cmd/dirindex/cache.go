package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirindex/pkg/dirindex/hashcache"
	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the digest cache",
	Long: `Commands for managing the content digest cache.

With hash.cache enabled, digests are stored by path, size and modification
time so unchanged files are not hashed again. Cache data is stored in the
XDG cache directory (typically ~/.cache/dirindex/digests).`,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all cached digests",
	Long:  `Removes all cached digests. The next run hashes every file again.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		dir := cfg.CacheDir()

		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			printInfo(out, "Cache is already empty.")
			return nil
		}

		c, err := hashcache.Open(dir, hasher.Default())
		if err != nil {
			return err
		}
		defer c.Close()

		removed, err := c.Clear()
		if err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}

		printInfo(out, "Cache cleared (%d digests).", removed)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		dir := cfg.CacheDir()

		fmt.Fprintf(out, "Cache location: %s\n", dir)
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintln(out, "Cache: empty (no cache directory)")
			return nil
		}

		c, err := hashcache.Open(dir, hasher.Default())
		if err != nil {
			return err
		}
		defer c.Close()

		n, err := c.Len()
		if err != nil {
			return fmt.Errorf("failed to count digests: %w", err)
		}
		fmt.Fprintf(out, "Cached digests: %d\n", n)
		fmt.Fprintf(out, "Enabled: %t (hash.cache)\n", cfg.Hash.Cache)
		return nil
	},
}

var cachePathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show cache location",
	Long:  `Prints the path to the cache directory.`,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), cfg.CacheDir())
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cachePathCmd)
	rootCmd.AddCommand(cacheCmd)
}
