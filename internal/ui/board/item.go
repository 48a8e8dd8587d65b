package board

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/theme"
)

// CardItem wraps a model.Card so it can be used in a bubbles/list.
type CardItem struct {
	Card model.Card
}

// FilterValue returns the string used for fuzzy filtering.
func (i CardItem) FilterValue() string { return i.Card.Title }

// ItemDelegate renders one card per line.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(tea.Msg, *list.Model) tea.Cmd {
	return nil
}

// Render draws a single card line.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ci, ok := item.(CardItem)
	if !ok {
		return
	}
	count := theme.MutedStyle.Render(fmt.Sprintf("(%d)", ci.Card.EntryCount))
	when := theme.MutedStyle.Render(relativeTime(ci.Card.LastActivity(), time.Now()))
	line := fmt.Sprintf("%s %s  %s", ci.Card.Title, count, when)

	if index == m.Index() {
		line = theme.SelectedItemStyle.Render(line)
	} else {
		line = theme.ListItemStyle.Render(line)
	}
	fmt.Fprint(w, line)
}

// relativeTime returns a human-friendly relative time string.
func relativeTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	case d < 365*24*time.Hour:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	default:
		return t.Format("Jan 2006")
	}
}
