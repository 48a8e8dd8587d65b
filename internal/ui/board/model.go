// Package board is a read-only browser for a board's columns, cards and
// entries.
package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/threadboard/internal/keys"
	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
	"github.com/nhle/threadboard/internal/theme"
	"github.com/nhle/threadboard/internal/ui"
	helpview "github.com/nhle/threadboard/internal/ui/help"
)

// LoadedMsg carries a board snapshot.
type LoadedMsg struct {
	Board   *model.Board
	Columns []model.Column
	Cards   map[string][]model.Card
	Err     error
}

// CardLoadedMsg carries a card with its entries.
type CardLoadedMsg struct {
	Card *model.Card
	Err  error
}

type viewState int

const (
	viewColumns viewState = iota
	viewCard
	viewHelp
)

// Model is the board browser.
type Model struct {
	store   store.Store
	boardID string
	keys    *keys.KeyMap
	layout  ui.Layout

	board   *model.Board
	columns []model.Column
	cards   map[string][]model.Card
	active  int

	view     viewState
	list     list.Model
	viewport viewport.Model
	helpView helpview.Model
	card     *model.Card
	err      error
}

// New creates a browser for boardID.
func New(s store.Store, boardID string, k *keys.KeyMap) Model {
	layout := ui.NewLayout(80, 24)
	l := list.New(nil, ItemDelegate{}, layout.Width, layout.ContentHeight()-2)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	hv := helpview.New("Keyboard Shortcuts", k,
		"(n) after a card title is its number of entries.",
		"Times show the card's last update.")
	hv.SetSize(layout.Width, layout.ContentHeight())

	return Model{
		store:    s,
		boardID:  boardID,
		keys:     k,
		layout:   layout,
		list:     l,
		viewport: viewport.New(layout.Width, layout.ContentHeight()),
		helpView: hv,
	}
}

// Init loads the board.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	s, id := m.store, m.boardID
	return func() tea.Msg {
		ctx := context.Background()
		board, err := s.GetBoardByID(ctx, id)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		cols, err := s.GetColumns(ctx, id)
		if err != nil {
			return LoadedMsg{Err: err}
		}
		cards := make(map[string][]model.Card, len(cols))
		for _, c := range cols {
			cs, err := s.GetCardsByColumn(ctx, c.ID)
			if err != nil {
				return LoadedMsg{Err: err}
			}
			cards[c.ID] = cs
		}
		return LoadedMsg{Board: board, Columns: cols, Cards: cards}
	}
}

func (m Model) loadCard(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx := context.Background()
		card, err := s.GetCardByID(ctx, id)
		if err != nil {
			return CardLoadedMsg{Err: err}
		}
		for i := range card.Entries {
			tags, err := s.GetTagsForEntry(ctx, card.Entries[i].ID)
			if err != nil {
				return CardLoadedMsg{Err: err}
			}
			card.Entries[i].Tags = tags
		}
		return CardLoadedMsg{Card: card}
	}
}

// Update handles messages for the board browser.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case LoadedMsg:
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.board, m.columns, m.cards = msg.Board, msg.Columns, msg.Cards
		m.active = min(m.active, max(len(m.columns)-1, 0))
		return m, m.showColumn()

	case CardLoadedMsg:
		m.err = msg.Err
		if msg.Err != nil {
			return m, nil
		}
		m.card = msg.Card
		m.view = viewCard
		m.viewport.SetContent(m.renderCard())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.view == viewHelp {
			m.view = viewColumns
		} else {
			m.view = viewHelp
		}
		return m, nil
	}

	switch m.view {
	case viewHelp:
		if key.Matches(msg, m.keys.Back) {
			m.view = viewColumns
		}
		return m, nil

	case viewCard:
		if key.Matches(msg, m.keys.Back) {
			m.view = viewColumns
			m.card = nil
			return m, nil
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Left):
		if m.active > 0 {
			m.active--
			return m, m.showColumn()
		}
		return m, nil
	case key.Matches(msg, m.keys.Right):
		if m.active < len(m.columns)-1 {
			m.active++
			return m, m.showColumn()
		}
		return m, nil
	case key.Matches(msg, m.keys.Refresh):
		return m, m.load()
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(CardItem)
		if !ok {
			return m, nil
		}
		return m, m.loadCard(item.Card.ID)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) showColumn() tea.Cmd {
	if len(m.columns) == 0 {
		return m.list.SetItems(nil)
	}
	cards := m.cards[m.columns[m.active].ID]
	items := make([]list.Item, len(cards))
	for i, c := range cards {
		items[i] = CardItem{Card: c}
	}
	m.list.Select(0)
	return m.list.SetItems(items)
}

func (m *Model) setSize(width, height int) {
	m.layout = ui.NewLayout(width, height)
	h := m.layout.ContentHeight()
	m.list.SetSize(width, max(h-2, 1))
	m.viewport.Width = width
	m.viewport.Height = h
	m.helpView.SetSize(width, h)
}

// View renders the browser.
func (m Model) View() string {
	title := "threadboard"
	if m.board != nil {
		title += " · " + m.board.Name
	}
	status := ""
	if m.view == viewColumns && len(m.columns) > 0 {
		status = fmt.Sprintf("%d cards", len(m.list.Items()))
	}
	header := m.layout.RenderHeader(title, status)
	bar := m.layout.RenderStatusBar("←/→ columns · enter open · esc back · ? help · q quit")

	var content string
	switch {
	case m.err != nil:
		content = theme.ErrorStyle.Render("error: " + m.err.Error())
	case m.view == viewHelp:
		content = m.helpView.View()
	case m.view == viewCard:
		content = m.viewport.View()
	default:
		content = lipgloss.JoinVertical(lipgloss.Left, m.renderTabs(), "", m.renderList())
	}
	return m.layout.Frame(header, content, bar)
}

func (m Model) renderTabs() string {
	tabs := make([]string, len(m.columns))
	for i, c := range m.columns {
		label := fmt.Sprintf("%s %d", c.Name, len(m.cards[c.ID]))
		if i == m.active {
			tabs[i] = theme.ActiveTabStyle.Render(label)
		} else {
			tabs[i] = theme.TabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderList() string {
	if len(m.list.Items()) == 0 {
		return lipgloss.NewStyle().
			Width(m.layout.Width).
			Align(lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No cards in this column.")
	}
	return m.list.View()
}

// renderCard builds the card detail shown in the viewport.
func (m Model) renderCard() string {
	c := m.card
	if c == nil {
		return ""
	}

	var sections []string
	sections = append(sections, lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(c.Title))

	meta := theme.MutedStyle
	if c.StartDate != nil {
		sections = append(sections, meta.Render("Started:  "+c.StartDate.Local().Format("2006-01-02 15:04")))
	}
	if c.LastUpdateDate != nil {
		sections = append(sections, meta.Render("Updated:  "+c.LastUpdateDate.Local().Format("2006-01-02 15:04")))
	}
	if c.Description != "" {
		sections = append(sections, "", c.Description)
	}

	separator := lipgloss.NewStyle().Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(min(m.layout.Width-4, 80), 1)))

	author := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
	for _, e := range c.Entries {
		sections = append(sections, "", separator, "")
		header := author.Render(e.FromAddr)
		if !e.Date.IsZero() {
			header += "  " + meta.Render(e.Date.Local().Format("2006-01-02 15:04"))
		}
		sections = append(sections, header, e.Subject)
		if e.Summary != "" {
			sections = append(sections, theme.HelpStyle.Render("» "+e.Summary))
		}
		if len(e.Tags) > 0 {
			var tags []string
			for _, t := range e.Tags {
				tags = append(tags, theme.TagStyle(t.Color).Render("#"+t.Name))
			}
			sections = append(sections, strings.Join(tags, " "))
		}
		if body := strings.TrimSpace(e.Body); body != "" {
			sections = append(sections, "", body)
		}
	}
	if len(c.Entries) == 0 {
		sections = append(sections, "", theme.HelpStyle.Render("No entries"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
