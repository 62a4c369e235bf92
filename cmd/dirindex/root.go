package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dirindex/pkg/dirindex/action"
	"github.com/jamesainslie/dirindex/pkg/dirindex/config"
	"github.com/jamesainslie/dirindex/pkg/dirindex/filter"
	"github.com/jamesainslie/dirindex/pkg/dirindex/hashcache"
	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
	"github.com/jamesainslie/dirindex/pkg/dirindex/runner"
)

var (
	cfgFile string

	// cfg is loaded once per invocation by loadConfig.
	cfg *config.Config

	rootCmd = &cobra.Command{
		Use:   "dirindex",
		Short: "Maintain JSON indexes of served directories",
		Long: `dirindex keeps a JSON snapshot of each configured folder: every file and
directory with its size, content hash and created/updated timestamps.

Each run reconciles the snapshot with the disk, marks the files listed in
the CI changed-file list as updated, re-aggregates folder sizes and writes
the snapshot back.

Examples:
  dirindex update                    # Index every configured folder
  dirindex update --changes out.json # Use a different changed-file list
  dirindex watch                     # Re-index as files change
  dirindex show static -o plain      # Print a snapshot
  dirindex verify                    # Check snapshots against the disk`,
		SilenceUsage:      true,
		PersistentPreRunE: initialize,
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = logging.Close()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./.dirindex.yaml or ~/.config/dirindex/config.yaml)")
	rootCmd.PersistentFlags().String("hash", "", "content hash algorithm ("+joinAlgorithms()+")")
	rootCmd.PersistentFlags().StringSliceP("exclude", "e", nil, "exclude patterns (can be specified multiple times)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")

	_ = viper.BindPFlag("hash.algorithm", rootCmd.PersistentFlags().Lookup("hash"))
	_ = viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initialize loads configuration and starts logging before any command.
func initialize(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	logCfg, err := cfg.Logging.Logging()
	if err != nil {
		return err
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}
	logCfg.Console = cmd.ErrOrStderr()

	if err := logging.Init(logCfg); err != nil {
		// A read-only state directory should not block indexing.
		printError(cmd.ErrOrStderr(), "logging disabled: %v", err)
	}

	logging.Get("cli").Debug("configuration loaded", "file", cfg.File, "command", cmd.CommandPath())
	return nil
}

func loadConfig() error {
	loaded, err := config.LoadViper(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg = loaded
	return nil
}

// getVerbose returns true if verbose mode is enabled.
func getVerbose() bool {
	return viper.GetBool("verbose")
}

// getQuiet returns true if quiet mode is enabled.
func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printInfo prints a message if quiet mode is not enabled.
func printInfo(w io.Writer, format string, args ...interface{}) {
	if !getQuiet() {
		fmt.Fprintf(w, format+"\n", args...)
	}
}

// printError prints an error message.
func printError(w io.Writer, format string, args ...interface{}) {
	fmt.Fprintf(w, "Error: "+format+"\n", args...)
}

func joinAlgorithms() string {
	return strings.Join(hasher.Available(), ", ")
}

func joinActions() string {
	return strings.Join(action.Available(), ", ")
}

// selectFolders resolves folder names from args against the configuration.
func selectFolders(args []string) ([]runner.Folder, error) {
	selected, err := cfg.Select(args...)
	if err != nil {
		return nil, err
	}

	folders := make([]runner.Folder, 0, len(selected))
	for _, f := range selected {
		folders = append(folders, runner.Folder{Name: f.Name, Root: f.Root, Snapshot: f.Snapshot})
	}
	return folders, nil
}

// buildExcluder compiles the configured exclude patterns.
func buildExcluder() (*filter.Filter, error) {
	return filter.New(
		filter.WithExclude(cfg.Exclude...),
		filter.WithSkipHidden(cfg.SkipHidden),
	)
}

// buildHasher returns the configured content hasher, wrapped in the
// digest cache when enabled. The returned func releases the cache.
func buildHasher() (index.ContentHasher, func(), error) {
	h, err := hasher.New(cfg.Hash.Algorithm)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Hash.Cache || h.Algorithm() == hasher.None {
		return h, func() {}, nil
	}

	c, err := hashcache.Open(cfg.CacheDir(), h)
	if err != nil {
		logging.Get("cli").Warn("digest cache unavailable, hashing every file", "dir", cfg.CacheDir(), "error", err)
		return h, func() {}, nil
	}
	return c, func() {
		stats := c.Stats()
		logging.Get("cli").Debug("digest cache", "hits", stats.Hits, "misses", stats.Misses)
		_ = c.Close()
	}, nil
}

// loadSnapshot reads a folder's snapshot, explaining how to create a
// missing one.
func loadSnapshot(f runner.Folder) (*index.Folder, error) {
	root, err := index.Load(f.Snapshot)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("no snapshot for %s at %s; run 'dirindex update %s' first", f.Name, f.Snapshot, f.Name)
	}
	return root, err
}
