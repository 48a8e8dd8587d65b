// Package review is the full-screen review loop: it stages one message
// at a time and waits for a key before moving on.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/threadboard/internal/keys"
	"github.com/nhle/threadboard/internal/review"
	"github.com/nhle/threadboard/internal/theme"
	"github.com/nhle/threadboard/internal/ui"
)

// StepMsg carries the result of one Advance together with the walker's
// position and counters read on the same goroutine, so the view never
// touches the walker while a step runs.
type StepMsg struct {
	Step    review.Step
	Err     error
	Index   int
	Summary review.Summary
}

// Model drives a review.Walker from key presses.
type Model struct {
	walker   *review.Walker
	ctx      context.Context
	cancel   context.CancelFunc
	keys     *keys.ReviewKeyMap
	help     help.Model
	progress progress.Model
	layout   ui.Layout

	step     review.Step
	stepErr  *review.StepError
	err      error
	busy     bool
	stopping bool
	skipped  []review.Skip

	total   int
	index   int
	summary review.Summary
}

// New creates a review model. The walker must already be scanned.
func New(ctx context.Context, w *review.Walker, k *keys.ReviewKeyMap) Model {
	ctx, cancel := context.WithCancel(ctx)
	return Model{
		walker:   w,
		ctx:      ctx,
		cancel:   cancel,
		keys:     k,
		help:     help.New(),
		progress: progress.New(progress.WithDefaultGradient()),
		layout:   ui.NewLayout(80, 24),
		busy:     true,
		total:    w.Total(),
		index:    w.Index(),
		summary:  w.Summary(),
	}
}

// Init stages the first message.
func (m Model) Init() tea.Cmd {
	return m.advanceCmd()
}

func (m *Model) advance() tea.Cmd {
	m.busy = true
	m.stepErr = nil
	return m.advanceCmd()
}

func (m Model) advanceCmd() tea.Cmd {
	w, ctx := m.walker, m.ctx
	return func() tea.Msg {
		st, err := w.Advance(ctx)
		return StepMsg{Step: st, Err: err, Index: w.Index(), Summary: w.Summary()}
	}
}

// Update handles messages for the review view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.help.Width = msg.Width
		m.progress.Width = max(msg.Width-4, 10)
		return m, nil

	case StepMsg:
		return m.handleStep(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleStep(msg StepMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.index = msg.Index
	m.summary = msg.Summary
	if msg.Err != nil {
		var se *review.StepError
		if !errors.As(msg.Err, &se) {
			m.err = msg.Err
			m.walker.Abort()
			return m, tea.Quit
		}
		m.stepErr = se
		if m.stopping {
			m.walker.Abort()
			return m, tea.Quit
		}
		return m, nil
	}

	m.step = msg.Step
	m.skipped = append(m.skipped, msg.Step.Skipped...)
	switch msg.Step.State {
	case review.StateDone, review.StateAborted:
		return m, tea.Quit
	}
	if m.stopping {
		m.walker.Abort()
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.busy {
			m.stopping = true
			m.cancel()
			return m, nil
		}
		m.walker.Abort()
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Retry):
		if m.stepErr != nil {
			return m, m.advance()
		}

	case key.Matches(msg, m.keys.Next):
		if m.stepErr != nil {
			return m, m.advance()
		}
		if m.step.State == review.StateStaged {
			if err := m.walker.Confirm(); err != nil {
				m.err = err
				return m, tea.Quit
			}
			return m, m.advance()
		}
	}
	return m, nil
}

// Err returns the error that ended the session, if any.
func (m Model) Err() error {
	return m.err
}

// View renders the review view.
func (m Model) View() string {
	pos := min(m.index+1, m.total)
	header := m.layout.RenderHeader("threadboard review", fmt.Sprintf("%d/%d", pos, m.total))
	status := m.layout.RenderStatusBar(m.help.View(m.keys))
	return m.layout.Frame(header, m.renderContent(), status)
}

func (m Model) renderContent() string {
	var sections []string

	percent := 0.0
	if m.total > 0 {
		percent = float64(m.index) / float64(m.total)
	}
	sections = append(sections, m.progress.ViewAs(percent), "")

	switch {
	case m.stepErr != nil:
		sections = append(sections,
			theme.ReviewStateStyle("error").Render("error"),
			theme.ErrorStyle.Render(m.stepErr.Error()),
			theme.HelpStyle.Render("press enter or r to retry, q to stop"),
		)
	case m.busy:
		sections = append(sections, theme.MutedStyle.Render("working..."))
	case m.step.State == review.StateStaged:
		sections = append(sections,
			theme.ReviewStateStyle("staged").Render("staged to clipboard"),
			lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(review.Describe(m.step.Message)),
		)
		if m.step.Message.MessageID != "" {
			sections = append(sections, theme.MutedStyle.Render(m.step.Message.MessageID))
		}
		for _, note := range review.Notes(m.step.Prepared) {
			sections = append(sections, theme.MutedStyle.Render("  "+note))
		}
	}

	sum := m.summary
	sections = append(sections, "", theme.MutedStyle.Render(fmt.Sprintf(
		"staged %d · already imported %d · no Message-ID %d",
		sum.Staged, sum.AlreadyImported, sum.NoMessageID)))

	if names := noIDNames(m.skipped); len(names) > 0 {
		sections = append(sections, theme.MutedStyle.Render("skipped without Message-ID: "+strings.Join(names, ", ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func noIDNames(skipped []review.Skip) []string {
	var names []string
	for _, s := range skipped {
		if s.Reason == review.SkipNoMessageID {
			names = append(names, s.Message.Name())
		}
	}
	const limit = 5
	if len(names) > limit {
		names = append([]string{"…"}, names[len(names)-limit:]...)
	}
	return names
}
