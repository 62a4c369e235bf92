package changeset_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/dirindex/pkg/dirindex/changeset"
)

func TestMap(t *testing.T) {
	t.Parallel()

	changed := []string{
		"files/static/css/site.css",
		"files/static/a.txt",
		"files/assets/logo.png",
		"files/staticky/x.txt",
		"README.md",
		"files/static/a.txt",
		"./files/static//img/../b.txt",
		"files/static/",
	}

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"trailing slash", "files/static/", []string{"a.txt", "b.txt", "css/site.css"}},
		{"no trailing slash", "files/static", []string{"a.txt", "b.txt", "css/site.css"}},
		{"other root", "files/assets", []string{"logo.png"}},
		{"unrelated root", "docs", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, changeset.Map(changed, tt.prefix))
		})
	}
}

func TestMapAbsolute(t *testing.T) {
	t.Parallel()

	changed := []string{"/repo/files/static/a.txt", "/elsewhere/a.txt"}
	assert.Equal(t, []string{"a.txt"}, changeset.Map(changed, "/repo/files/static"))
	assert.Equal(t, []string{"elsewhere/a.txt", "repo/files/static/a.txt"}, changeset.Map(changed, "/"))
}

func TestMapDotRoot(t *testing.T) {
	t.Parallel()

	changed := []string{"a.txt", "sub/b.txt", "../outside.txt", "/abs.txt", "."}
	assert.Equal(t, []string{"a.txt", "sub/b.txt"}, changeset.Map(changed, "."))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	base := filepath.Join("work", "repo")
	abs := filepath.Join(string(filepath.Separator), "abs", "x.txt")

	got := changeset.Resolve(base, []string{"files/static/a.txt", abs, "", "files/../b.txt"})
	assert.Equal(t, []string{
		filepath.Join("work", "repo", "files", "static", "a.txt"),
		abs,
		filepath.Join("work", "repo", "b.txt"),
	}, got)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		got, err := changeset.Load(filepath.Join(dir, "missing.json"))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("array", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "changes.json")
		require.NoError(t, os.WriteFile(path, []byte(`["files/static/a.txt","files/assets/b.png"]`), 0o644))

		got, err := changeset.Load(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"files/static/a.txt", "files/assets/b.png"}, got)
	})

	t.Run("malformed", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0o644))

		_, err := changeset.Load(path)
		assert.Error(t, err)
	})
}
