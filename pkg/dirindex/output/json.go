package output

import (
	"bytes"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
)

// JSONFormatter writes the snapshot exactly as it is stored on disk.
type JSONFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *JSONFormatter) Format(w *bytes.Buffer, r *Result) error {
	return index.Encode(w, r.Tree)
}

func init() {
	Register("json", func() Formatter {
		return &JSONFormatter{}
	})
}

// Ensure JSONFormatter implements Formatter.
var _ Formatter = (*JSONFormatter)(nil)
