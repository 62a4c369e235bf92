package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/dirindex/pkg/dirindex/index"
	"github.com/jamesainslie/dirindex/pkg/dirindex/types"
)

// Folder is one snapshot to browse.
type Folder struct {
	Name string
	Root string
	Tree *index.Folder
}

type folderView struct {
	Folder
	tree  *TreeView
	stats types.TreeStats
}

// Model is the Bubble Tea model for the snapshot browser.
type Model struct {
	folders []folderView
	active  int
	help    help.Model
	now     time.Time

	// Window dimensions
	width  int
	height int
}

// NewModel creates a browser over folders. now anchors relative ages.
func NewModel(folders []Folder, now time.Time) Model {
	views := make([]folderView, 0, len(folders))
	for _, f := range folders {
		views = append(views, folderView{
			Folder: f,
			tree:   NewTreeView(FromIndex(f.Tree), now),
			stats:  index.Stats(f.Tree),
		})
	}

	return Model{
		folders: views,
		help:    help.New(),
		now:     now,
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, keys.NextFolder):
		if len(m.folders) > 0 {
			m.active = (m.active + 1) % len(m.folders)
		}
		return m, nil
	case key.Matches(msg, keys.PrevFolder):
		if len(m.folders) > 0 {
			m.active = (m.active + len(m.folders) - 1) % len(m.folders)
		}
		return m, nil
	}

	tv := m.tree()
	if tv == nil {
		return m, nil
	}

	switch {
	case key.Matches(msg, keys.Up):
		tv.MoveUp()
	case key.Matches(msg, keys.Down):
		tv.MoveDown()
	case key.Matches(msg, keys.Top):
		tv.Top()
	case key.Matches(msg, keys.Bottom):
		tv.Bottom()
	case key.Matches(msg, keys.Toggle):
		tv.Toggle()
	case key.Matches(msg, keys.Collapse):
		tv.Collapse()
	case key.Matches(msg, keys.ExpandAll):
		tv.ExpandAll()
	case key.Matches(msg, keys.CollapseAll):
		tv.CollapseAll()
	}
	return m, nil
}

func (m Model) tree() *TreeView {
	if len(m.folders) == 0 {
		return nil
	}
	return m.folders[m.active].tree
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")

	if len(m.folders) == 0 {
		b.WriteString(center(mutedTextStyle.Render("No folders configured"), m.width))
		b.WriteString("\n")
		b.WriteString(m.help.View(keys))
		return b.String()
	}

	footer := m.renderDetail() + "\n" + m.help.View(keys)
	treeHeight := m.height - 3 - lipgloss.Height(footer)
	b.WriteString(m.tree().View(m.width, treeHeight))
	b.WriteString(dividerStyle.Render(strings.Repeat("─", m.width)))
	b.WriteString("\n")
	b.WriteString(footer)
	return b.String()
}

func (m Model) renderTabs() string {
	tabs := []string{titleStyle.Render("dirindex")}
	for i, f := range m.folders {
		if i == m.active {
			tabs = append(tabs, activeTabStyle.Render(f.Name))
		} else {
			tabs = append(tabs, tabStyle.Render(f.Name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// renderDetail describes the folder and the entry under the cursor.
func (m Model) renderDetail() string {
	f := m.folders[m.active]
	summary := mutedTextStyle.Render(fmt.Sprintf("%s  %s in %d files, %d folders",
		f.Root, types.FormatSize(f.stats.Size), f.stats.Files, f.stats.Folders))

	node := f.tree.Selected()
	if node == nil {
		return summary
	}

	path := node.Path
	if path == "" {
		path = "."
	}
	lines := []string{
		summary,
		detailLabelStyle.Render("path") + path,
		detailLabelStyle.Render("updated") + types.FormatTime(node.UpdatedAt) +
			mutedTextStyle.Render(" ("+types.FormatAge(node.UpdatedAt, m.now)+")"),
		detailLabelStyle.Render("created") + types.FormatTime(node.CreatedAt),
	}
	if !node.IsDir {
		hash := node.Hash
		if hash == "" {
			hash = mutedTextStyle.Render("none")
		}
		lines = append(lines, detailLabelStyle.Render("hash")+hash)
	}
	return strings.Join(lines, "\n")
}

// Run starts the browser and blocks until the user quits.
func Run(folders []Folder) error {
	p := tea.NewProgram(NewModel(folders, time.Now()), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
