// Package changeset maps a flat list of changed file paths, as produced by
// a CI change-detection step, onto paths relative to each indexed root.
package changeset

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPath is where the CI workflow writes its changed-file list.
const DefaultPath = ".github/outputs/all_changed_files.json"

// Load reads a JSON array of changed paths. A missing file means nothing
// changed and is not an error.
func Load(file string) ([]string, error) {
	data, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading change list: %w", err)
	}

	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("parsing change list %s: %w", file, err)
	}
	return paths, nil
}

// Resolve joins relative paths onto base. Absolute paths are cleaned and
// kept. The result uses the host separator.
func Resolve(base string, paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// Map keeps the paths that lie strictly below rootPrefix and returns them
// relative to it, '/'-separated, sorted and without duplicates. Paths
// outside the root, and the root itself, are dropped.
func Map(paths []string, rootPrefix string) []string {
	prefix := normalize(rootPrefix)
	if prefix != "/" {
		prefix += "/"
	}

	seen := make(map[string]bool)
	var out []string
	for _, p := range paths {
		np := normalize(p)
		if prefix == "./" {
			if np == "." || strings.HasPrefix(np, "../") || path.IsAbs(np) {
				continue
			}
			np = "./" + np
		}
		rel, ok := strings.CutPrefix(np, prefix)
		if !ok || rel == "" || seen[rel] {
			continue
		}
		seen[rel] = true
		out = append(out, rel)
	}

	sort.Strings(out)
	return out
}

func normalize(p string) string {
	return path.Clean(filepath.ToSlash(p))
}
