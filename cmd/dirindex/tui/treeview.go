package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// Tree view icons.
const (
	iconExpanded  = "▼" // Black down-pointing triangle
	iconCollapsed = "▶" // Black right-pointing triangle
	iconFile      = "•" // Bullet
)

// TreeView displays a snapshot tree with expand/collapse and scrolling.
type TreeView struct {
	root   *Node
	flat   []*Node
	cursor int
	offset int
	now    time.Time
}

// NewTreeView creates a TreeView over root. now anchors relative ages.
func NewTreeView(root *Node, now time.Time) *TreeView {
	tv := &TreeView{root: root, now: now}
	tv.refresh()
	return tv
}

// refresh rebuilds the flat list from the current tree state.
func (tv *TreeView) refresh() {
	if tv.root == nil {
		tv.flat = nil
		return
	}
	tv.flat = tv.root.Flatten()

	if tv.cursor >= len(tv.flat) {
		tv.cursor = len(tv.flat) - 1
	}
	if tv.cursor < 0 {
		tv.cursor = 0
	}
}

// MoveUp moves the cursor up one position.
func (tv *TreeView) MoveUp() {
	if tv.cursor > 0 {
		tv.cursor--
	}
}

// MoveDown moves the cursor down one position.
func (tv *TreeView) MoveDown() {
	if tv.cursor < len(tv.flat)-1 {
		tv.cursor++
	}
}

// Top moves the cursor to the root.
func (tv *TreeView) Top() {
	tv.cursor = 0
}

// Bottom moves the cursor to the last visible node.
func (tv *TreeView) Bottom() {
	if len(tv.flat) > 0 {
		tv.cursor = len(tv.flat) - 1
	}
}

// Toggle expands or collapses the directory under the cursor.
func (tv *TreeView) Toggle() {
	node := tv.Selected()
	if node == nil || !node.IsDir {
		return
	}
	node.Toggle()
	tv.refresh()
}

// Expand opens the directory under the cursor.
func (tv *TreeView) Expand() {
	node := tv.Selected()
	if node == nil || !node.IsDir || node.Expanded {
		return
	}
	node.Expanded = true
	tv.refresh()
}

// Collapse closes the directory under the cursor, or moves to the parent
// of a file or closed directory.
func (tv *TreeView) Collapse() {
	node := tv.Selected()
	if node == nil {
		return
	}
	if node.IsDir && node.Expanded && node.Parent != nil {
		node.Expanded = false
		tv.refresh()
		return
	}
	if node.Parent != nil {
		tv.moveTo(node.Parent)
	}
}

// ExpandAll opens every directory.
func (tv *TreeView) ExpandAll() {
	if tv.root == nil {
		return
	}
	tv.root.ExpandAll()
	tv.refresh()
}

// CollapseAll closes every directory below the root.
func (tv *TreeView) CollapseAll() {
	if tv.root == nil {
		return
	}
	tv.root.CollapseAll()
	tv.cursor = 0
	tv.refresh()
}

func (tv *TreeView) moveTo(target *Node) {
	for i, n := range tv.flat {
		if n == target {
			tv.cursor = i
			return
		}
	}
}

// Selected returns the node under the cursor.
func (tv *TreeView) Selected() *Node {
	if len(tv.flat) == 0 || tv.cursor < 0 || tv.cursor >= len(tv.flat) {
		return nil
	}
	return tv.flat[tv.cursor]
}

// View renders the tree view within the given dimensions.
func (tv *TreeView) View(width, height int) string {
	if len(tv.flat) == 0 {
		return center(mutedTextStyle.Render("Nothing indexed"), width) + "\n"
	}

	visibleRows := height
	if visibleRows < 1 {
		visibleRows = 1
	}
	tv.ensureVisible(visibleRows)

	var b strings.Builder
	end := tv.offset + visibleRows
	if end > len(tv.flat) {
		end = len(tv.flat)
	}
	for i := tv.offset; i < end; i++ {
		b.WriteString(tv.renderNode(tv.flat[i], width, i == tv.cursor))
		b.WriteString("\n")
	}
	for i := end - tv.offset; i < visibleRows; i++ {
		b.WriteString("\n")
	}
	return b.String()
}

// ensureVisible adjusts offset to keep the cursor on screen.
func (tv *TreeView) ensureVisible(visible int) {
	if tv.cursor < tv.offset {
		tv.offset = tv.cursor
	} else if tv.cursor >= tv.offset+visible {
		tv.offset = tv.cursor - visible + 1
	}
	if tv.offset < 0 {
		tv.offset = 0
	}
}

// renderNode renders a single row: indent, icon, name, then size and age
// right-aligned.
func (tv *TreeView) renderNode(node *Node, width int, isCursor bool) string {
	indent := strings.Repeat("  ", node.Depth())

	icon := iconFile
	if node.IsDir {
		icon = iconCollapsed
		if node.Expanded {
			icon = iconExpanded
		}
	}

	name := node.Name
	if node.IsDir {
		name += "/"
	}
	meta := types.FormatSize(node.Size) + "  " + types.FormatAge(node.UpdatedAt, tv.now)

	left := indent + icon + " " + name
	padding := width - lipgloss.Width(left) - lipgloss.Width(meta) - 1
	if padding < 1 {
		padding = 1
	}

	if isCursor {
		return treeRowHighlightStyle.Width(width).Render(left + strings.Repeat(" ", padding) + meta)
	}

	styledName := name
	if node.IsDir {
		styledName = folderNameStyle.Render(name)
	}
	row := indent + mutedTextStyle.Render(icon) + " " + styledName +
		strings.Repeat(" ", padding) + sizeTextStyle.Render(meta)
	return treeRowNormalStyle.Width(width).Render(row)
}
