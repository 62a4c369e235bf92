package output

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// yamlOutput represents the full YAML output structure.
type yamlOutput struct {
	Meta yamlMeta  `yaml:"meta"`
	Tree yamlEntry `yaml:"tree"`
}

// yamlMeta describes where the tree came from.
type yamlMeta struct {
	Name      string `yaml:"name"`
	Root      string `yaml:"root,omitempty"`
	Snapshot  string `yaml:"snapshot,omitempty"`
	Files     int64  `yaml:"files"`
	Folders   int64  `yaml:"folders"`
	TotalSize int64  `yaml:"total_size"`
	SizeHuman string `yaml:"size_human"`
	UpdatedAt string `yaml:"updated_at"`
}

// yamlEntry is one node. Children are listed in name order.
type yamlEntry struct {
	Name      string      `yaml:"name"`
	Type      string      `yaml:"type"`
	Path      string      `yaml:"path,omitempty"`
	Size      int64       `yaml:"size"`
	Hash      string      `yaml:"hash,omitempty"`
	CreatedAt string      `yaml:"created_at"`
	UpdatedAt string      `yaml:"updated_at"`
	Children  []yamlEntry `yaml:"children,omitempty"`
}

// YAMLFormatter formats the tree and its totals as YAML.
type YAMLFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	output := yamlOutput{
		Meta: yamlMeta{
			Name:      r.Name,
			Root:      r.Root,
			Snapshot:  r.Snapshot,
			Files:     r.Stats.Files,
			Folders:   r.Stats.Folders,
			TotalSize: r.Stats.Size,
			SizeHuman: types.FormatSize(r.Stats.Size),
			UpdatedAt: types.FormatTime(r.Stats.UpdatedAt),
		},
		Tree: buildYAMLEntry(r.Tree),
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(output); err != nil {
		return err
	}
	return encoder.Close()
}

func buildYAMLEntry(e index.Entry) yamlEntry {
	info := e.Info()
	out := yamlEntry{
		Name:      info.Name,
		Type:      e.Kind().String(),
		Path:      info.RelativePath,
		Size:      info.Size,
		CreatedAt: types.FormatTime(info.CreatedAt),
		UpdatedAt: types.FormatTime(info.UpdatedAt),
	}

	switch v := e.(type) {
	case *index.File:
		out.Hash = v.Hash
	case *index.Folder:
		for _, name := range v.Names() {
			out.Children = append(out.Children, buildYAMLEntry(v.Children[name]))
		}
	}
	return out
}

func init() {
	Register("yaml", func() Formatter {
		return &YAMLFormatter{}
	})
}

// Ensure YAMLFormatter implements Formatter.
var _ Formatter = (*YAMLFormatter)(nil)
