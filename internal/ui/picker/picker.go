// Package picker asks which card an incoming email belongs to.
package picker

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/nhle/threadboard/internal/ingest"
	"github.com/nhle/threadboard/internal/match"
	"github.com/nhle/threadboard/internal/model"
)

// ErrCancelled is returned by Run when the user aborts the form.
var ErrCancelled = errors.New("cancelled")

// newCardValue is the select value of the "create new card" option. Card
// IDs are UUIDs and never collide with it.
const newCardValue = "+new"

// Options are the choices offered to the user.
type Options struct {
	Subject    string
	Candidates []match.Candidate
	Columns    []model.Column
	Tags       []model.Tag
}

// formBindings holds form field values on the heap so that huh's Value()
// pointers stay valid.
type formBindings struct {
	target   string
	title    string
	columnID string
	summary  string
	tags     []string
}

// Picker is a huh form that turns the user's answers into an
// ingest.Request.
type Picker struct {
	opts Options
	fb   *formBindings
	form *huh.Form
}

// New builds the form. The best candidate is preselected; with no
// candidates the form starts on "create new card".
func New(opts Options) *Picker {
	p := &Picker{opts: opts, fb: &formBindings{target: newCardValue, title: opts.Subject}}
	if len(opts.Candidates) > 0 {
		p.fb.target = opts.Candidates[0].Card.ID
	}
	if len(opts.Columns) > 0 {
		p.fb.columnID = opts.Columns[0].ID
	}
	p.form = p.buildForm()
	return p
}

// Form exposes the underlying form, e.g. to embed it in a Bubble Tea
// program.
func (p *Picker) Form() *huh.Form {
	return p.form
}

// Run shows the form on the controlling terminal, so the message itself
// may arrive on stdin, and returns the resulting request.
func (p *Picker) Run() (ingest.Request, error) {
	form := p.form.WithProgramOptions(tea.WithInputTTY())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ingest.Request{}, ErrCancelled
		}
		return ingest.Request{}, fmt.Errorf("running picker: %w", err)
	}
	return p.Request(), nil
}

// Request converts the current answers. Board and Raw are left for the
// caller.
func (p *Picker) Request() ingest.Request {
	req := ingest.Request{
		Summary: strings.TrimSpace(p.fb.summary),
		Tags:    p.fb.tags,
	}
	if p.fb.target == newCardValue {
		req.NewCard = &ingest.NewCard{
			ColumnID: p.fb.columnID,
			Title:    strings.TrimSpace(p.fb.title),
		}
		return req
	}
	req.CardID = p.fb.target
	return req
}

func (p *Picker) hideNewCard() bool {
	return p.fb.target != newCardValue
}

func (p *Picker) buildForm() *huh.Form {
	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("File under").
				Description(p.opts.Subject).
				Options(p.targetOptions()...).
				Value(&p.fb.target),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Card title").
				Placeholder(ingest.NoSubjectTitle).
				Value(&p.fb.title),
			huh.NewSelect[string]().
				Title("Column").
				Options(columnOptions(p.opts.Columns)...).
				Value(&p.fb.columnID),
		).WithHideFunc(p.hideNewCard),
	}

	details := []huh.Field{
		huh.NewInput().
			Title("Summary").
			Placeholder("Optional, e.g. +1").
			Value(&p.fb.summary),
	}
	if len(p.opts.Tags) > 0 {
		opts := make([]huh.Option[string], len(p.opts.Tags))
		for i, t := range p.opts.Tags {
			opts[i] = huh.NewOption(t.Name, t.Name)
		}
		details = append(details, huh.NewMultiSelect[string]().
			Title("Tags").
			Options(opts...).
			Value(&p.fb.tags))
	}
	groups = append(groups, huh.NewGroup(details...))

	return huh.NewForm(groups...)
}

func (p *Picker) targetOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(p.opts.Candidates)+1)
	for _, c := range p.opts.Candidates {
		opts = append(opts, huh.NewOption(CandidateLabel(c), c.Card.ID))
	}
	return append(opts, huh.NewOption("+ Create new card", newCardValue))
}

func columnOptions(columns []model.Column) []huh.Option[string] {
	opts := make([]huh.Option[string], len(columns))
	for i, c := range columns {
		opts[i] = huh.NewOption(c.Name, c.ID)
	}
	return opts
}

// CandidateLabel renders a candidate with its score and the signals
// that contributed to it.
func CandidateLabel(c match.Candidate) string {
	var reasons []string
	if c.Signals.Reply > 0 {
		reasons = append(reasons, "reply")
	}
	if c.Signals.Subject > 0 {
		reasons = append(reasons, fmt.Sprintf("subject %.0f", c.Signals.Subject))
	}
	if c.Signals.Participants > 0 {
		reasons = append(reasons, fmt.Sprintf("people %.0f", c.Signals.Participants))
	}
	label := fmt.Sprintf("%s  [%.1f", c.Card.Title, c.Score)
	if len(reasons) > 0 {
		label += ": " + strings.Join(reasons, ", ")
	}
	return label + "]"
}
