package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dirindex/pkg/dirindex/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Manage dirindex configuration settings.

Configuration is loaded from the first of:
  1. --config FILE
  2. ./.dirindex.yaml
  3. $XDG_CONFIG_HOME/dirindex/config.yaml (if set)
  4. ~/.config/dirindex/config.yaml

Environment variables override file settings using the DIRINDEX_ prefix:
  DIRINDEX_HASH_ALGORITHM=xxh3
  DIRINDEX_ACTIONS_ENABLED=false
  DIRINDEX_CHANGES_FILE=changed.json`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long:  `Display the effective configuration from all sources as YAML.`,
	RunE:  runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create default configuration file",
	Long: `Create a commented default configuration file if one doesn't exist.
With --local it is written to ./.dirindex.yaml instead of the user config.`,
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show configuration file path",
	Long:  `Display the path of the configuration file in use.`,
	RunE:  runConfigPath,
}

var configInitLocal bool

func init() {
	configInitCmd.Flags().BoolVar(&configInitLocal, "local", false, "write ./"+config.LocalConfigFile)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if cfg.File != "" {
		fmt.Fprintf(out, "# Config file: %s\n", cfg.File)
	} else {
		fmt.Fprintln(out, "# Config file: (using defaults, no file found)")
	}

	var overrides []string
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "DIRINDEX_") {
			overrides = append(overrides, kv)
		}
	}
	for _, kv := range overrides {
		fmt.Fprintf(out, "# Environment: %s\n", kv)
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}
	return encoder.Close()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	path := config.LocalConfigFile
	if !configInitLocal {
		p, err := config.DefaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	wrote, err := config.WriteDefault(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	if !wrote {
		printInfo(out, "Config file already exists: %s", path)
		return nil
	}

	printInfo(out, "Created default config file: %s", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	if cfg.File != "" {
		fmt.Fprintln(out, cfg.File)
		return nil
	}

	path, err := config.DefaultConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, path)
	return nil
}
