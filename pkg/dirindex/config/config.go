package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
)

// ErrInvalidConfig is returned when a loaded configuration is unusable.
var ErrInvalidConfig = errors.New("invalid configuration")

// FolderConfig is one indexed directory and its snapshot.
type FolderConfig struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Root     string `mapstructure:"root" yaml:"root"`
	Snapshot string `mapstructure:"snapshot" yaml:"snapshot"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level" yaml:"level"`
	Path       string            `mapstructure:"path" yaml:"path"`
	Console    string            `mapstructure:"console" yaml:"console"`
	Rotation   RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components map[string]string `mapstructure:"components" yaml:"components"`
}

// Config is the dirindex configuration.
type Config struct {
	Folders []FolderConfig `mapstructure:"folders" yaml:"folders"`

	Changes struct {
		File string `mapstructure:"file" yaml:"file"`
		Base string `mapstructure:"base" yaml:"base"`
	} `mapstructure:"changes" yaml:"changes"`

	Hash struct {
		Algorithm string `mapstructure:"algorithm" yaml:"algorithm"`
		Cache     bool   `mapstructure:"cache" yaml:"cache"`
		CacheDir  string `mapstructure:"cache_dir" yaml:"cache_dir"`
	} `mapstructure:"hash" yaml:"hash"`

	Exclude    []string `mapstructure:"exclude" yaml:"exclude"`
	SkipHidden bool     `mapstructure:"skip_hidden" yaml:"skip_hidden"`

	Actions struct {
		Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	} `mapstructure:"actions" yaml:"actions"`

	Watch struct {
		Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	} `mapstructure:"watch" yaml:"watch"`

	Manifest struct {
		Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
		Path          string `mapstructure:"path" yaml:"path"`
		RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
	} `mapstructure:"manifest" yaml:"manifest"`

	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// File is the config file that was read, empty when only defaults
	// and environment applied.
	File string `mapstructure:"-" yaml:"-"`
}

// Load reads configuration. An explicit path must exist. Otherwise the
// first of ./.dirindex.yaml, $XDG_CONFIG_HOME/dirindex/config.yaml and
// ~/.config/dirindex/config.yaml is used, and a missing file means
// defaults. Environment variables prefixed DIRINDEX_ override file
// values (DIRINDEX_HASH_ALGORITHM=xxh3).
func Load(explicit string) (*Config, error) {
	return LoadViper(viper.New(), explicit)
}

// LoadViper is Load on a caller-owned viper, so flags bound to v with
// BindPFlag take precedence over file and environment values.
func LoadViper(v *viper.Viper, explicit string) (*Config, error) {
	v.SetConfigType("yaml")

	switch {
	case explicit != "":
		v.SetConfigFile(explicit)
	case fileExists(LocalConfigFile):
		v.SetConfigFile(LocalConfigFile)
	default:
		v.SetConfigName("config")
		if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
			v.AddConfigPath(filepath.Join(xdgConfigHome, "dirindex"))
		}
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, ".config", "dirindex"))
		}
	}

	v.SetEnvPrefix("DIRINDEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	_ = cfg.normalize()
	return &cfg
}

func setDefaults(v *viper.Viper) {
	folders := make([]map[string]any, 0, len(DefaultFolders))
	for _, name := range DefaultFolders {
		folders = append(folders, map[string]any{"name": name})
	}
	v.SetDefault("folders", folders)

	v.SetDefault("changes.file", DefaultChangesFile)
	v.SetDefault("changes.base", ".")
	v.SetDefault("hash.algorithm", DefaultHashAlgorithm)
	v.SetDefault("hash.cache", false)
	v.SetDefault("hash.cache_dir", "")
	v.SetDefault("exclude", []string{})
	v.SetDefault("skip_hidden", false)
	v.SetDefault("actions.enabled", true)
	v.SetDefault("watch.debounce", DefaultDebounce)
	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", "")
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.console", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{})
}

// normalize fills per-folder defaults, expands ~ and validates.
func (c *Config) normalize() error {
	seen := make(map[string]bool)
	for i := range c.Folders {
		f := &c.Folders[i]
		if f.Name == "" {
			return fmt.Errorf("%w: folder %d has no name", ErrInvalidConfig, i)
		}
		if seen[f.Name] {
			return fmt.Errorf("%w: folder %q listed twice", ErrInvalidConfig, f.Name)
		}
		seen[f.Name] = true

		if f.Root == "" {
			f.Root = fmt.Sprintf(DefaultRootPattern, f.Name)
		}
		if f.Snapshot == "" {
			f.Snapshot = fmt.Sprintf(DefaultSnapshotPattern, f.Name)
		}
		f.Root = ExpandPath(f.Root)
		f.Snapshot = ExpandPath(f.Snapshot)
	}

	if _, err := hasher.New(c.Hash.Algorithm); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if _, err := c.Logging.Logging(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	c.Hash.CacheDir = ExpandPath(c.Hash.CacheDir)
	c.Manifest.Path = ExpandPath(c.Manifest.Path)
	c.Logging.Path = ExpandPath(c.Logging.Path)
	return nil
}

// Folder returns the named folder.
func (c *Config) Folder(name string) (FolderConfig, bool) {
	for _, f := range c.Folders {
		if f.Name == name {
			return f, true
		}
	}
	return FolderConfig{}, false
}

// Select returns the named folders, or all of them when names is empty.
func (c *Config) Select(names ...string) ([]FolderConfig, error) {
	if len(names) == 0 {
		return c.Folders, nil
	}
	out := make([]FolderConfig, 0, len(names))
	for _, name := range names {
		f, ok := c.Folder(name)
		if !ok {
			return nil, fmt.Errorf("unknown folder %q", name)
		}
		out = append(out, f)
	}
	return out, nil
}

// ManifestDir returns the configured manifest directory or the default.
func (c *Config) ManifestDir() string {
	if c.Manifest.Path != "" {
		return c.Manifest.Path
	}
	return filepath.Join(DataDir(), "manifests")
}

// CacheDir returns the configured digest cache directory or the default.
func (c *Config) CacheDir() string {
	if c.Hash.CacheDir != "" {
		return c.Hash.CacheDir
	}
	return filepath.Join(CacheDir(), "digests")
}

// Logging converts the logging section for logging.Init.
func (l LoggingConfig) Logging() (logging.Config, error) {
	if _, err := logging.ParseLevel(l.Level); err != nil {
		return logging.Config{}, fmt.Errorf("logging.level: %w", err)
	}
	if l.Console != "" {
		if _, err := logging.ParseLevel(l.Console); err != nil {
			return logging.Config{}, fmt.Errorf("logging.console: %w", err)
		}
	}
	for comp, lvl := range l.Components {
		if _, err := logging.ParseLevel(lvl); err != nil {
			return logging.Config{}, fmt.Errorf("logging.components.%s: %w", comp, err)
		}
	}

	rotation := logging.RotationConfig{
		MaxAge:     l.Rotation.MaxAge,
		MaxBackups: l.Rotation.MaxBackups,
		Daily:      l.Rotation.Daily,
	}
	if l.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(l.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = int64(size)
	}

	return logging.Config{
		Level:        l.Level,
		Path:         l.Path,
		Rotation:     rotation,
		Components:   l.Components,
		ConsoleLevel: l.Console,
	}, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/dirindex, or ~/.config/dirindex
// when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "dirindex"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "dirindex"), nil
}

// DefaultConfigPath returns the user config file path.
func DefaultConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a commented default config to path unless a file
// is already there. It reports whether it wrote one.
func WriteDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("checking config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(defaultFile()), 0o644); err != nil {
		return false, fmt.Errorf("writing default config: %w", err)
	}
	return true, nil
}

func defaultFile() string {
	var folders strings.Builder
	for _, name := range DefaultFolders {
		fmt.Fprintf(&folders, "  - name: %s\n    root: %s\n    snapshot: %s\n",
			name, fmt.Sprintf(DefaultRootPattern, name), fmt.Sprintf(DefaultSnapshotPattern, name))
	}

	return fmt.Sprintf(`# dirindex configuration

# Indexed folders. root defaults to files/<name>, snapshot to
# data/files/info_<name>.json.
folders:
%s
# Changed-file list written by CI; paths are relative to base.
changes:
  file: %s
  base: "."

# Content hash: sha256, xxh3, sha3-256, blake2b or none.
hash:
  algorithm: %s
  # Reuse digests of files whose size and mtime are unchanged.
  cache: false
  cache_dir: ""

# Glob patterns left out of the index. A trailing / matches directories only.
exclude: []
skip_hidden: false

# Run @action@name file actions on changed files before indexing.
actions:
  enabled: true

watch:
  debounce: %s

manifest:
  enabled: true
  path: ""
  retention_days: %d

logging:
  level: info
  # Empty means $XDG_STATE_HOME/dirindex/dirindex.log
  path: ""
  # Console log level; empty disables console logging.
  console: ""
  rotation:
    max_size: 10MB
    max_age: 30
    max_backups: 5
    daily: true
  components: {}
`, folders.String(), DefaultChangesFile, DefaultHashAlgorithm, DefaultDebounce, DefaultRetentionDays)
}

// ExpandPath replaces a leading ~ with the user's home directory. The
// path is returned unchanged when the home directory is unknown.
func ExpandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[1:])
}

// DataDir returns $XDG_DATA_HOME/dirindex.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "dirindex")
}

// StateDir returns $XDG_STATE_HOME/dirindex.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "dirindex")
}

// CacheDir returns $XDG_CACHE_HOME/dirindex.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, "dirindex")
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
