package tui

import (
	"sort"
	"time"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
)

// Node is a snapshot entry with display state.
type Node struct {
	Name      string
	Path      string
	IsDir     bool
	Size      int64
	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time

	Children []*Node
	Parent   *Node

	Expanded bool
}

// FromIndex converts a snapshot tree. The root starts expanded. Children
// are sorted by size descending, then by name.
func FromIndex(root *index.Folder) *Node {
	if root == nil {
		return nil
	}
	n := fromEntry(root, nil)
	n.Expanded = true
	return n
}

func fromEntry(e index.Entry, parent *Node) *Node {
	info := e.Info()
	n := &Node{
		Name:      info.Name,
		Path:      info.RelativePath,
		Size:      info.Size,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
		Parent:    parent,
	}

	switch v := e.(type) {
	case *index.File:
		n.Hash = v.Hash
	case *index.Folder:
		n.IsDir = true
		for _, name := range v.Names() {
			n.Children = append(n.Children, fromEntry(v.Children[name], n))
		}
		sort.SliceStable(n.Children, func(i, j int) bool {
			return n.Children[i].Size > n.Children[j].Size
		})
	}
	return n
}

// Depth returns the depth of this node from the root (root = 0).
func (n *Node) Depth() int {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth
}

// Flatten returns the visible nodes in display order. Collapsed
// directories hide their children.
func (n *Node) Flatten() []*Node {
	result := []*Node{n}
	if n.IsDir && n.Expanded {
		for _, child := range n.Children {
			result = append(result, child.Flatten()...)
		}
	}
	return result
}

// Toggle expands or collapses a directory node.
func (n *Node) Toggle() {
	if n.IsDir {
		n.Expanded = !n.Expanded
	}
}

// ExpandAll expands this node and all descendants.
func (n *Node) ExpandAll() {
	if n.IsDir {
		n.Expanded = true
		for _, child := range n.Children {
			child.ExpandAll()
		}
	}
}

// CollapseAll collapses every descendant, leaving n itself expanded.
func (n *Node) CollapseAll() {
	for _, child := range n.Children {
		child.Expanded = false
		child.CollapseAll()
	}
}
