package output

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// Tree connectors.
const (
	branchMid  = "├── "
	branchLast = "└── "
	indentMid  = "│   "
	indentLast = "    "
)

// TreeFormatter renders the snapshot as a styled tree with sizes and
// ages, framed by a header and a totals footer.
type TreeFormatter struct{}

// Format writes the formatted output to the buffer.
func (f *TreeFormatter) Format(w *bytes.Buffer, r *Result) error {
	w.WriteString(f.formatHeader(r))
	w.WriteString("\n")

	w.WriteString(f.formatEntry(r.Tree, r))
	w.WriteString("\n")
	if len(r.Tree.Children) == 0 {
		w.WriteString(MutedStyle.Render("  (empty)"))
		w.WriteString("\n")
	}
	f.writeChildren(w, r.Tree, "", r)

	w.WriteString(f.formatFooter(r))
	w.WriteString("\n")
	return nil
}

func (f *TreeFormatter) formatHeader(r *Result) string {
	lines := []string{TitleStyle.Render(r.Name)}
	if r.Root != "" {
		lines = append(lines, LabelStyle.Render("Root:")+" "+ValueStyle.Render(r.Root))
	}
	if r.Snapshot != "" {
		lines = append(lines, LabelStyle.Render("Snapshot:")+" "+ValueStyle.Render(r.Snapshot))
	}
	lines = append(lines, LabelStyle.Render("Updated:")+" "+
		ValueStyle.Render(types.FormatTime(r.Stats.UpdatedAt))+" "+
		MutedStyle.Render("("+types.FormatAge(r.Stats.UpdatedAt, r.Now)+")"))
	return HeaderBox.Render(strings.Join(lines, "\n"))
}

func (f *TreeFormatter) writeChildren(w *bytes.Buffer, folder *index.Folder, prefix string, r *Result) {
	names := folder.Names()
	for i, name := range names {
		child := folder.Children[name]
		last := i == len(names)-1

		branch, indent := branchMid, indentMid
		if last {
			branch, indent = branchLast, indentLast
		}

		w.WriteString(BranchStyle.Render(prefix + branch))
		w.WriteString(f.formatEntry(child, r))
		w.WriteString("\n")

		if sub, ok := child.(*index.Folder); ok {
			f.writeChildren(w, sub, prefix+indent, r)
		}
	}
}

func (f *TreeFormatter) formatEntry(e index.Entry, r *Result) string {
	info := e.Info()

	name := FileStyle.Render(info.Name)
	if e.Kind() == index.KindFolder {
		name = FolderStyle.Render(info.Name + "/")
	}
	return fmt.Sprintf("%s  %s  %s", name,
		SizeStyle.Render(types.FormatSize(info.Size)),
		MutedStyle.Render(types.FormatAge(info.UpdatedAt, r.Now)))
}

func (f *TreeFormatter) formatFooter(r *Result) string {
	parts := []string{
		LabelStyle.Render("Files:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.Stats.Files)),
		LabelStyle.Render("Folders:") + " " + ValueStyle.Render(fmt.Sprintf("%d", r.Stats.Folders)),
		LabelStyle.Render("Total:") + " " + SizeStyle.Render(types.FormatSize(r.Stats.Size)),
		MutedStyle.Render("Use -o plain for unformatted output"),
	}
	return FooterBox.Render(strings.Join(parts, "  "))
}

func init() {
	Register("tree", func() Formatter {
		return &TreeFormatter{}
	})
}

// Ensure TreeFormatter implements Formatter.
var _ Formatter = (*TreeFormatter)(nil)
