// Package filter decides which paths under an indexed root are left out of
// the index. Patterns use gobwas/glob syntax with '/' as the separator.
package filter

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned when an exclude pattern does not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Filter excludes entries by glob pattern. A pattern without a '/' is
// matched against the base name; one with a '/' against the root-relative
// path. A trailing '/' restricts the pattern to directories.
//
// The zero value excludes nothing.
type Filter struct {
	patterns   []pattern
	skipHidden bool
}

type pattern struct {
	source  string
	g       glob.Glob
	dirOnly bool
	anchor  bool
}

// Option configures a Filter.
type Option func(*filterConfig)

type filterConfig struct {
	exclude    []string
	skipHidden bool
}

// WithExclude adds exclude patterns.
func WithExclude(patterns ...string) Option {
	return func(c *filterConfig) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithSkipHidden excludes names starting with a dot.
func WithSkipHidden(skip bool) Option {
	return func(c *filterConfig) {
		c.skipHidden = skip
	}
}

// New compiles the configured patterns. Empty patterns are ignored.
func New(opts ...Option) (*Filter, error) {
	var cfg filterConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &Filter{skipHidden: cfg.skipHidden}
	for _, src := range cfg.exclude {
		p, err := compile(src)
		if err != nil {
			return nil, err
		}
		if p.g != nil {
			f.patterns = append(f.patterns, p)
		}
	}
	return f, nil
}

func compile(src string) (pattern, error) {
	p := pattern{source: src}
	expr := strings.TrimSpace(src)
	if strings.HasSuffix(expr, "/") {
		p.dirOnly = true
		expr = strings.TrimRight(expr, "/")
	}
	expr = strings.TrimPrefix(expr, "/")
	if expr == "" {
		return p, nil
	}
	p.anchor = strings.Contains(expr, "/")

	g, err := glob.Compile(expr, '/')
	if err != nil {
		return p, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, src, err)
	}
	p.g = g
	return p, nil
}

// Excluded reports whether the entry at the root-relative POSIX path rel
// should be left out. A nil Filter excludes nothing.
func (f *Filter) Excluded(rel string, isDir bool) bool {
	if f == nil || rel == "" {
		return false
	}

	name := path.Base(rel)
	if f.skipHidden && strings.HasPrefix(name, ".") {
		return true
	}

	for _, p := range f.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		subject := name
		if p.anchor {
			subject = rel
		}
		if p.g.Match(subject) {
			return true
		}
	}
	return false
}

// Patterns returns the source patterns in the order they were given.
func (f *Filter) Patterns() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.patterns))
	for _, p := range f.patterns {
		out = append(out, p.source)
	}
	return out
}
