// Package config loads dirindex configuration with viper.
package config

import (
	"time"

	"github.com/jamesainslie/dirindex/pkg/dirindex/changeset"
)

// Default configuration values.
const (
	// DefaultRootPattern places folder <name> under files/<name>.
	DefaultRootPattern = "files/%s"

	// DefaultSnapshotPattern places the snapshot of <name> at
	// data/files/info_<name>.json.
	DefaultSnapshotPattern = "data/files/info_%s.json"

	// DefaultChangesFile is the CI-produced list of changed files.
	DefaultChangesFile = changeset.DefaultPath

	// DefaultHashAlgorithm matches existing snapshots.
	DefaultHashAlgorithm = "sha256"

	// DefaultDebounce is how long watch mode waits for changes to settle.
	DefaultDebounce = 2 * time.Second

	// DefaultRetentionDays is how long run manifests are kept.
	DefaultRetentionDays = 30

	// LocalConfigFile is looked up in the working directory first.
	LocalConfigFile = ".dirindex.yaml"
)

// DefaultFolders are the indexed folders when none are configured.
var DefaultFolders = []string{"static", "assets"}
