package output

import (
	"bytes"
	"fmt"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// PlainFormatter writes one tab-separated line per entry: relative path,
// size in bytes and updated_at. Folder paths end in '/'. No colors or
// styling are applied.
type PlainFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PlainFormatter) Format(w *bytes.Buffer, r *Result) error {
	index.Walk(r.Tree, func(e index.Entry) bool {
		if e == index.Entry(r.Tree) {
			return true
		}
		info := e.Info()
		p := info.RelativePath
		if e.Kind() == index.KindFolder {
			p += "/"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\n", p, info.Size, types.FormatTime(info.UpdatedAt))
		return true
	})
	return nil
}

// PathsFormatter writes the relative path of every file, one per line,
// for piping to other tools.
type PathsFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *PathsFormatter) Format(w *bytes.Buffer, r *Result) error {
	index.Walk(r.Tree, func(e index.Entry) bool {
		if e.Kind() == index.KindFile {
			w.WriteString(e.Info().RelativePath)
			w.WriteByte('\n')
		}
		return true
	})
	return nil
}

func init() {
	Register("plain", func() Formatter {
		return &PlainFormatter{}
	})
	Register("paths", func() Formatter {
		return &PathsFormatter{}
	})
}

// Ensure the formatters implement Formatter.
var (
	_ Formatter = (*PlainFormatter)(nil)
	_ Formatter = (*PathsFormatter)(nil)
)
