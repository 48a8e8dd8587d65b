package board

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/threadboard/internal/keys"
	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/testutil"
)

func newTestBrowser(t *testing.T) (Model, *model.Card) {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	board, cols := testutil.NewTestBoard(t, s, "Council")

	card := &model.Card{ColumnID: cols[0].ID, Title: "Budget"}
	entry := &model.Entry{
		FromAddr:  "alice@example.com",
		Subject:   "Budget Q3",
		MessageID: "<m1@example.com>",
		Date:      time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Body:      "Numbers attached.",
		Summary:   "+1",
	}
	require.NoError(t, s.CreateCardWithEntry(ctx, card, entry))

	tag := &model.Tag{Name: "vote", Color: "#dc3545"}
	require.NoError(t, s.CreateTag(ctx, tag))
	require.NoError(t, s.SetEntryTags(ctx, entry.ID, []string{tag.ID}))

	waiting := &model.Card{ColumnID: cols[1].ID, Title: "Hiring"}
	require.NoError(t, s.CreateCard(ctx, waiting))

	m := New(s, board.ID, keys.DefaultKeyMap())
	next, _ := m.Update(m.Init()())
	return next.(Model), card
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestBrowserShowsColumns(t *testing.T) {
	m, _ := newTestBrowser(t)
	require.NoError(t, m.err)

	view := m.View()
	assert.Contains(t, view, "Council")
	assert.Contains(t, view, "Todo 1")
	assert.Contains(t, view, "Waiting 1")
	assert.Contains(t, view, "Budget")
	assert.NotContains(t, view, "Hiring")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 1, m.active)
	assert.Contains(t, m.View(), "Hiring")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, m.active)
}

func TestBrowserOpensCard(t *testing.T) {
	m, card := newTestBrowser(t)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	loaded, ok := msg.(CardLoadedMsg)
	require.True(t, ok)
	require.NoError(t, loaded.Err)
	assert.Equal(t, card.ID, loaded.Card.ID)
	require.Len(t, loaded.Card.Entries, 1)
	require.Len(t, loaded.Card.Entries[0].Tags, 1)

	m, _ = update(t, m, msg)
	assert.Equal(t, viewCard, m.view)
	view := m.View()
	assert.Contains(t, view, "alice@example.com")
	assert.Contains(t, view, "» +1")
	assert.Contains(t, view, "#vote")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, viewColumns, m.view)
}

func TestBrowserHelpAndQuit(t *testing.T) {
	m, _ := newTestBrowser(t)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	assert.Equal(t, viewHelp, m.view)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")
	assert.Contains(t, m.View(), "number of entries")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "", relativeTime(time.Time{}, now))
	assert.Equal(t, "just now", relativeTime(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", relativeTime(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", relativeTime(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d ago", relativeTime(now.Add(-48*time.Hour), now))
	assert.Equal(t, "2w ago", relativeTime(now.Add(-15*24*time.Hour), now))
	assert.Equal(t, "Jun 2023", relativeTime(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), now))
}
