package tui

import (
	"strings"
	"testing"
)

func TestTreeViewNavigation(t *testing.T) {
	tv := NewTreeView(FromIndex(testIndex()), testNow)

	if tv.Selected().Name != "site" {
		t.Fatalf("cursor should start on the root")
	}

	tv.MoveUp()
	if tv.Selected().Name != "site" {
		t.Errorf("MoveUp at top should stay put")
	}

	tv.MoveDown()
	if tv.Selected().Name != "big" {
		t.Errorf("Selected() = %s, want big", tv.Selected().Name)
	}

	tv.Toggle()
	tv.MoveDown()
	if tv.Selected().Name != "x.bin" {
		t.Errorf("after expanding big, Selected() = %s, want x.bin", tv.Selected().Name)
	}

	tv.Bottom()
	if tv.Selected().Name != "z.txt" {
		t.Errorf("Bottom() selected %s", tv.Selected().Name)
	}
	tv.MoveDown()
	if tv.Selected().Name != "z.txt" {
		t.Errorf("MoveDown at bottom should stay put")
	}

	tv.Top()
	if tv.Selected().Name != "site" {
		t.Errorf("Top() selected %s", tv.Selected().Name)
	}
}

func TestTreeViewCollapse(t *testing.T) {
	tv := NewTreeView(FromIndex(testIndex()), testNow)
	tv.ExpandAll()

	// site, big, x.bin
	tv.MoveDown()
	tv.MoveDown()
	if tv.Selected().Name != "x.bin" {
		t.Fatalf("setup: Selected() = %s", tv.Selected().Name)
	}

	tv.Collapse()
	if tv.Selected().Name != "big" {
		t.Errorf("Collapse on a file should move to its parent, got %s", tv.Selected().Name)
	}

	tv.Collapse()
	if tv.Selected().Expanded {
		t.Errorf("Collapse on an open folder should close it")
	}
	if got := len(tv.flat); got != 4 {
		t.Errorf("visible rows = %d, want 4", got)
	}

	tv.Expand()
	if !tv.Selected().Expanded {
		t.Errorf("Expand should open the folder")
	}
}

func TestTreeViewCollapseAllResetsCursor(t *testing.T) {
	tv := NewTreeView(FromIndex(testIndex()), testNow)
	tv.ExpandAll()
	tv.Bottom()

	tv.CollapseAll()
	if tv.Selected().Name != "site" {
		t.Errorf("Selected() = %s, want site", tv.Selected().Name)
	}
}

func TestTreeViewRender(t *testing.T) {
	tv := NewTreeView(FromIndex(testIndex()), testNow)

	out := tv.View(80, 10)
	for _, want := range []string{iconExpanded + " site/", iconCollapsed + " big/", "a.txt", "300 B", "1 hour ago"} {
		if !strings.Contains(out, want) {
			t.Errorf("View() missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 10 {
		t.Errorf("View() rendered %d lines, want 10", lines)
	}
}

func TestTreeViewScrolls(t *testing.T) {
	tv := NewTreeView(FromIndex(testIndex()), testNow)
	tv.ExpandAll()
	tv.Bottom()

	out := tv.View(80, 2)
	if strings.Contains(out, "site/") {
		t.Errorf("root should have scrolled out of view:\n%s", out)
	}
	if !strings.Contains(out, "z.txt") {
		t.Errorf("cursor row should be visible:\n%s", out)
	}
}

func TestTreeViewEmpty(t *testing.T) {
	tv := NewTreeView(nil, testNow)

	if tv.Selected() != nil {
		t.Errorf("Selected() on empty view should be nil")
	}
	tv.MoveDown()
	tv.Toggle()
	tv.Collapse()
	tv.ExpandAll()

	if out := tv.View(40, 5); !strings.Contains(out, "Nothing indexed") {
		t.Errorf("View() = %q", out)
	}
}
