package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
)

var (
	created = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	updated = created.Add(time.Hour)
	now     = updated.Add(2 * time.Hour)
)

// sample is static/{a.txt (10 B), b/{c.txt (5 B)}, empty/}.
func sample() *Result {
	root := index.NewFolder("static", "", created)
	root.Size = 15
	root.UpdatedAt = updated

	a := index.NewFile("a.txt", "a.txt", 10, "aaaa", created)
	b := index.NewFolder("b", "b", created)
	b.Size = 5
	b.UpdatedAt = updated
	c := index.NewFile("c.txt", "b/c.txt", 5, "cccc", created)
	c.UpdatedAt = updated
	b.Children["c.txt"] = c

	root.Children["a.txt"] = a
	root.Children["b"] = b
	root.Children["empty"] = index.NewFolder("empty", "empty", created)

	return NewResult("static", "files/static", "data/files/info_static.json", root, now)
}

func format(t *testing.T, name string, r *Result) string {
	t.Helper()

	f, err := Get(name)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.Format(&buf, r))
	return buf.String()
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{"json", "paths", "plain", "tree", "yaml"}, Available())

	_, err := Get("xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
	assert.Contains(t, err.Error(), "json, paths, plain, tree, yaml")

	f, err := Get("JSON")
	require.NoError(t, err)
	assert.IsType(t, &JSONFormatter{}, f)

	r := NewRegistry()
	r.Register("x", func() Formatter { return &PathsFormatter{} })
	f, err = r.Get("x")
	require.NoError(t, err)
	assert.IsType(t, &PathsFormatter{}, f)
	assert.Equal(t, []string{"x"}, r.Available())
}

func TestNewResultStats(t *testing.T) {
	r := sample()
	assert.Equal(t, int64(2), r.Stats.Files)
	assert.Equal(t, int64(2), r.Stats.Folders)
	assert.Equal(t, int64(15), r.Stats.Size)
	assert.True(t, r.Stats.UpdatedAt.Equal(updated))
}

func TestPlainFormatter(t *testing.T) {
	got := format(t, "plain", sample())

	assert.Equal(t, strings.Join([]string{
		"a.txt\t10\t2024-06-15T10:00:00Z",
		"b/\t5\t2024-06-15T11:00:00Z",
		"b/c.txt\t5\t2024-06-15T11:00:00Z",
		"empty/\t0\t2024-06-15T10:00:00Z",
		"",
	}, "\n"), got)
}

func TestPathsFormatter(t *testing.T) {
	assert.Equal(t, "a.txt\nb/c.txt\n", format(t, "paths", sample()))
}

func TestJSONFormatterMatchesSnapshot(t *testing.T) {
	r := sample()
	want, err := index.Marshal(r.Tree)
	require.NoError(t, err)

	assert.Equal(t, string(want), format(t, "json", r))
}

func TestYAMLFormatter(t *testing.T) {
	got := format(t, "yaml", sample())

	var parsed yamlOutput
	require.NoError(t, yaml.Unmarshal([]byte(got), &parsed))

	assert.Equal(t, "static", parsed.Meta.Name)
	assert.Equal(t, int64(15), parsed.Meta.TotalSize)
	assert.Equal(t, "15 B", parsed.Meta.SizeHuman)
	assert.Equal(t, "folder", parsed.Tree.Type)
	require.Len(t, parsed.Tree.Children, 3)
	assert.Equal(t, "a.txt", parsed.Tree.Children[0].Name)
	assert.Equal(t, "aaaa", parsed.Tree.Children[0].Hash)
	assert.Equal(t, "b/c.txt", parsed.Tree.Children[1].Children[0].Path)
	assert.Empty(t, parsed.Tree.Children[2].Children)
}

func TestTreeFormatter(t *testing.T) {
	got := format(t, "tree", sample())

	for _, want := range []string{
		"static",
		"files/static",
		"├── ",
		"└── ",
		"a.txt",
		"b/",
		"c.txt",
		"10 B",
		"2 hours ago",
		"Files:",
		"Total:",
	} {
		assert.Contains(t, got, want)
	}
	assert.Less(t, strings.Index(got, "a.txt"), strings.Index(got, "c.txt"))
}

func TestTreeFormatterEmpty(t *testing.T) {
	r := NewResult("assets", "", "", index.NewFolder("assets", "", created), now)
	got := format(t, "tree", r)
	assert.Contains(t, got, "(empty)")
}
