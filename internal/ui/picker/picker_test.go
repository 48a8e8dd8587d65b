package picker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/threadboard/internal/match"
	"github.com/nhle/threadboard/internal/model"
)

func testOptions() Options {
	return Options{
		Subject: "Re: Budget Q3",
		Candidates: []match.Candidate{
			{
				Card:    model.Card{ID: "card-1", Title: "Budget"},
				Score:   1105.2,
				Signals: match.Signals{Reply: 1000, Subject: 100, Recency: 5.2},
			},
			{
				Card:    model.Card{ID: "card-2", Title: "Hiring"},
				Score:   10,
				Signals: match.Signals{Participants: 10},
			},
		},
		Columns: []model.Column{{ID: "col-todo", Name: "Todo"}, {ID: "col-wait", Name: "Waiting"}},
		Tags:    []model.Tag{{Name: "vote"}},
	}
}

func TestPickerDefaultsToBestCandidate(t *testing.T) {
	p := New(testOptions())
	require.NotNil(t, p.Form())

	req := p.Request()
	assert.Equal(t, "card-1", req.CardID)
	assert.Nil(t, req.NewCard)
	assert.True(t, p.hideNewCard())
}

func TestPickerNewCard(t *testing.T) {
	p := New(testOptions())
	p.fb.target = newCardValue
	p.fb.columnID = "col-wait"
	p.fb.title = "  Budget follow-up "
	p.fb.summary = " +1 "
	p.fb.tags = []string{"vote"}

	req := p.Request()
	assert.Empty(t, req.CardID)
	require.NotNil(t, req.NewCard)
	assert.Equal(t, "col-wait", req.NewCard.ColumnID)
	assert.Equal(t, "Budget follow-up", req.NewCard.Title)
	assert.Equal(t, "+1", req.Summary)
	assert.Equal(t, []string{"vote"}, req.Tags)
	assert.False(t, p.hideNewCard())
}

func TestPickerWithoutCandidates(t *testing.T) {
	opts := testOptions()
	opts.Candidates = nil
	p := New(opts)

	req := p.Request()
	require.NotNil(t, req.NewCard)
	assert.Equal(t, "col-todo", req.NewCard.ColumnID)
	assert.Equal(t, "Re: Budget Q3", req.NewCard.Title)
}

func TestCandidateLabel(t *testing.T) {
	opts := testOptions()
	assert.Equal(t, "Budget  [1105.2: reply, subject 100]", CandidateLabel(opts.Candidates[0]))
	assert.Equal(t, "Hiring  [10.0: people 10]", CandidateLabel(opts.Candidates[1]))
	assert.Equal(t, "Quiet  [0.0]", CandidateLabel(match.Candidate{Card: model.Card{Title: "Quiet"}}))
}
