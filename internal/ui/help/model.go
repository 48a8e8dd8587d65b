// Package help renders a full-screen key reference with optional notes.
package help

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/threadboard/internal/theme"
)

// Model is the help overlay for one view's key map.
type Model struct {
	title  string
	keys   help.KeyMap
	notes  []string
	help   help.Model
	width  int
	height int
}

// New creates a help overlay. Notes are printed below the key table,
// one per line.
func New(title string, keys help.KeyMap, notes ...string) Model {
	h := help.New()
	h.ShowAll = true
	return Model{title: title, keys: keys, notes: notes, help: h}
}

// View renders the overlay.
func (m Model) View() string {
	parts := []string{
		lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.ColorWhite).
			MarginBottom(1).
			Render(m.title),
		m.help.View(m.keys),
	}
	if len(m.notes) > 0 {
		parts = append(parts, "", theme.MutedStyle.Render(strings.Join(m.notes, "\n")))
	}

	return theme.PanelStyle.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// SetSize updates the overlay dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-4, 0)
}
