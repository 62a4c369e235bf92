// Package logging provides component loggers for dirindex, backed by
// charmbracelet/log, with a rotating log file and optional console output.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("runner")
//	logger.Info("snapshot saved", "folder", "static")
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levels = [...]struct {
	name  string
	charm log.Level
}{
	LevelDebug: {"debug", log.DebugLevel},
	LevelInfo:  {"info", log.InfoLevel},
	LevelWarn:  {"warn", log.WarnLevel},
	LevelError: {"error", log.ErrorLevel},
}

func (l Level) valid() bool {
	return l >= LevelDebug && l <= LevelError
}

// String returns the string representation of the level.
func (l Level) String() string {
	if !l.valid() {
		return "unknown"
	}
	return levels[l].name
}

func (l Level) charm() log.Level {
	if !l.valid() {
		return log.InfoLevel
	}
	return levels[l].charm
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a level name. "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(s)
	if name == "warning" {
		name = "warn"
	}
	for l, def := range levels {
		if def.name == name {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their log levels.
	Components map[string]string

	// ConsoleLevel enables console output at the given level. Empty
	// disables console output.
	ConsoleLevel string

	// Console is where console output goes. Nil means os.Stderr.
	Console io.Writer
}

// Logger is a component logger. Each record is written to every sink:
// the log file and, when enabled, the console.
type Logger struct {
	component string
	sinks     []*log.Logger
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) { l.emit(LevelDebug, msg, args) }

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) { l.emit(LevelInfo, msg, args) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) { l.emit(LevelWarn, msg, args) }

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) { l.emit(LevelError, msg, args) }

func (l *Logger) emit(level Level, msg string, args []interface{}) {
	for _, sink := range l.sinks {
		sink.Log(level.charm(), msg, args...)
	}
}

// With returns a logger that adds the key/value pairs to every record.
func (l *Logger) With(args ...interface{}) *Logger {
	child := &Logger{component: l.component, sinks: make([]*log.Logger, len(l.sinks))}
	for i, sink := range l.sinks {
		child.sinks[i] = sink.With(args...)
	}
	return child
}

// settings is the parsed form of Config.
type settings struct {
	level      Level
	components map[string]Level
	console    io.Writer
	consoleLvl Level
}

func parse(cfg Config) (settings, error) {
	var s settings

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return s, fmt.Errorf("parsing log level: %w", err)
	}
	s.level = level

	s.components = make(map[string]Level, len(cfg.Components))
	for comp, name := range cfg.Components {
		lvl, err := ParseLevel(name)
		if err != nil {
			return s, fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		s.components[comp] = lvl
	}

	if cfg.ConsoleLevel != "" {
		lvl, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return s, fmt.Errorf("parsing console level: %w", err)
		}
		s.consoleLvl = lvl
		s.console = cfg.Console
		if s.console == nil {
			s.console = os.Stderr
		}
	}
	return s, nil
}

// levelFor returns the file and console levels of a component. A
// component override never makes the console noisier than configured.
func (s settings) levelFor(component string) (file, console Level) {
	file, console = s.level, s.consoleLvl
	if lvl, ok := s.components[component]; ok {
		file = lvl
		if lvl > console {
			console = lvl
		}
	}
	return file, console
}

var global = struct {
	mu       sync.RWMutex
	writer   *RotatingWriter
	settings settings
	loggers  map[string]*Logger
}{
	loggers: make(map[string]*Logger),
}

// Init opens the log file and applies cfg. It may be called again to
// reconfigure; existing component loggers are rebuilt. Loggers obtained
// before the first Init are silent.
func Init(cfg Config) error {
	s, err := parse(cfg)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.writer != nil {
		if err := global.writer.Close(); err != nil {
			return fmt.Errorf("closing existing writer: %w", err)
		}
		global.writer = nil
	}

	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}
	global.writer = writer
	global.settings = s

	for component := range global.loggers {
		global.loggers[component] = build(component)
	}
	return nil
}

// Get returns the logger for a component, creating it on first use.
func Get(component string) *Logger {
	global.mu.RLock()
	logger, ok := global.loggers[component]
	global.mu.RUnlock()
	if ok {
		return logger
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if logger, ok := global.loggers[component]; ok {
		return logger
	}
	logger = build(component)
	global.loggers[component] = logger
	return logger
}

// build must be called with global.mu held.
func build(component string) *Logger {
	logger := &Logger{component: component}
	if global.writer == nil {
		return logger
	}

	fileLvl, consoleLvl := global.settings.levelFor(component)
	logger.sinks = append(logger.sinks, log.NewWithOptions(global.writer, log.Options{
		Level:           fileLvl.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          component,
	}))

	if global.settings.console != nil {
		logger.sinks = append(logger.sinks, log.NewWithOptions(global.settings.console, log.Options{
			Level:           consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		}))
	}
	return logger
}

// Close flushes and closes the log file. Loggers obtained afterwards are
// silent until Init is called again.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if global.writer == nil {
		return nil
	}

	err := global.writer.Close()
	global.writer = nil
	global.settings = settings{}
	global.loggers = make(map[string]*Logger)
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/dirindex/dirindex.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "dirindex", "dirindex.log")
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
