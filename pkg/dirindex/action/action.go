// Package action runs the filename actions encoded in uploaded file names.
//
// A name of the form "@action args@...@finalName" asks for the file to be
// renamed to finalName and then passed through each action in order:
//
//	@hash_name@logo.png   ->  logo_H1a2b3c4d_.png
//
// Names without an '@' are left alone.
package action

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/jamesainslie/dirindex/pkg/dirindex/hasher"
	"github.com/jamesainslie/dirindex/pkg/dirindex/logging"
)

// Separator splits actions from each other and from the final name.
const Separator = "@"

// Result is where a file ended up after its actions ran.
type Result struct {
	// Path is the file's final location.
	Path string
	// Extra lists other paths an action created or changed.
	Extra []string
}

// Paths returns Path followed by Extra.
func (r Result) Paths() []string {
	return append([]string{r.Path}, r.Extra...)
}

// Func applies one action to the file at path. args are the
// whitespace-separated words after the action name.
type Func func(path string, args []string) (Result, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Func)
)

// Register adds an action. Registering a name twice replaces it.
func Register(name string, fn Func) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = fn
}

// Get returns the named action.
func Get(name string) (Func, bool) {
	mu.RLock()
	defer mu.RUnlock()
	fn, ok := registry[name]
	return fn, ok
}

// Available returns the registered action names, sorted.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register("empty", Empty)
	Register("hash_name", HashName)
}

// Parse splits a file name into its final name and action list. Each
// action is its name followed by arguments; blank actions come back empty.
func Parse(name string) (string, [][]string) {
	parts := strings.Split(name, Separator)
	if len(parts) < 2 {
		return name, nil
	}

	final := parts[len(parts)-1]
	actions := make([][]string, 0, len(parts)-1)
	for _, part := range parts[:len(parts)-1] {
		actions = append(actions, strings.Fields(part))
	}
	return final, actions
}

// Run renames the file at path to its final name and applies its actions.
// A path whose name carries no actions, or that does not exist, is
// returned unchanged. Unknown actions are skipped.
func Run(path string) (Result, error) {
	final, actions := Parse(filepath.Base(path))
	if len(actions) == 0 {
		return Result{Path: path}, nil
	}

	log := logging.Get("action")

	if _, err := os.Lstat(path); errors.Is(err, fs.ErrNotExist) {
		log.Debug("skipping missing file", "path", path)
		return Result{Path: path}, nil
	}

	if final == "" {
		return Result{}, fmt.Errorf("action name %q has no final file name", filepath.Base(path))
	}

	current, err := rename(path, final)
	if err != nil {
		return Result{}, err
	}
	result := Result{Path: current}

	for _, act := range actions {
		if len(act) == 0 {
			continue
		}
		fn, ok := Get(act[0])
		if !ok {
			log.Warn("unknown action, skipping", "action", act[0], "path", current)
			fn = Empty
		}
		res, err := fn(result.Path, act[1:])
		if err != nil {
			return result, fmt.Errorf("action %s on %s: %w", act[0], result.Path, err)
		}
		if res.Path != "" {
			result.Path = res.Path
		}
		result.Extra = append(result.Extra, res.Extra...)
	}

	log.Info("actions applied", "from", path, "to", result.Path)
	return result, nil
}

// Empty leaves the file where it is.
func Empty(path string, _ []string) (Result, error) {
	return Result{Path: path}, nil
}

var hashTag = regexp.MustCompile(`_H[0-9a-zA-Z]{8}_`)

// HashName renames name.ext to name_H<8 hex digits of sha256>_.ext,
// replacing any tag a previous run left in the name.
func HashName(path string, _ []string) (Result, error) {
	digest, err := hasher.File(path)
	if err != nil {
		return Result{}, err
	}

	stem, ext := splitExt(filepath.Base(path))
	stem = hashTag.ReplaceAllString(stem, "")

	renamed, err := rename(path, fmt.Sprintf("%s_H%s_%s", stem, digest[:8], ext))
	if err != nil {
		return Result{}, err
	}
	return Result{Path: renamed}, nil
}

// splitExt splits off the last extension, treating leading dots as part
// of the stem so ".env" has no extension.
func splitExt(name string) (stem, ext string) {
	trimmed := strings.TrimLeft(name, ".")
	ext = filepath.Ext(trimmed)
	return strings.TrimSuffix(name, ext), ext
}

// rename moves path to a sibling called name and returns the new path.
func rename(path, name string) (string, error) {
	target := filepath.Join(filepath.Dir(path), name)
	if target == path {
		return path, nil
	}
	if err := os.Rename(path, target); err != nil {
		return "", fmt.Errorf("renaming %s: %w", path, err)
	}
	return target, nil
}
