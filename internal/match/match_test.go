package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/threadboard/internal/mailparse"
	"github.com/nhle/threadboard/internal/model"
)

var now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = now
	return opts
}

func card(id, title string, daysAgo int, entries ...model.Entry) model.Card {
	last := now.AddDate(0, 0, -daysAgo)
	c := model.Card{
		ID:        id,
		Title:     title,
		CreatedAt: now.AddDate(0, -6, 0),
		Entries:   entries,
	}
	if len(entries) > 0 {
		c.LastUpdateDate = &last
	}
	return c
}

func entry(msgID, from, subject string, daysAgo int) model.Entry {
	return model.Entry{
		MessageID: msgID,
		FromAddr:  from,
		Subject:   subject,
		Date:      now.AddDate(0, 0, -daysAgo),
	}
}

func ids(cands []Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Card.ID
	}
	return out
}

func TestRankReplyLinkDominates(t *testing.T) {
	cards := []model.Card{
		card("a", "Old thread", 90, entry("<root@x>", "zed@x", "Something else", 90)),
		card("b", "Budget Q3", 0, entry("<b1@x>", "alice@x", "Budget Q3", 0)),
	}
	rec := mailparse.Record{
		FromAddr:  "alice@x",
		Subject:   "Re: Budget Q3",
		MessageID: "<new@x>",
		InReplyTo: "<root@x>",
	}

	got := Rank(rec, cards, nil, testOptions())
	require.Len(t, got, 2)
	assert.Equal(t, []string{"a", "b"}, ids(got))
	assert.Equal(t, 1000.0, got[0].Signals.Reply)
	assert.Zero(t, got[1].Signals.Reply)
}

func TestRankReferencesAndOwnMessageID(t *testing.T) {
	cards := []model.Card{
		card("a", "x", 1, entry("<m1@x>", "a@x", "x", 1)),
		card("b", "y", 1, entry("<m2@x>", "a@x", "y", 1)),
	}

	rec := mailparse.Record{References: []string{"<unknown@x>", "<m2@x>"}}
	assert.Equal(t, "b", Rank(rec, cards, nil, testOptions())[0].Card.ID)

	again := mailparse.Record{MessageID: "<m1@x>"}
	assert.Equal(t, "a", Rank(again, cards, nil, testOptions())[0].Card.ID)
}

func TestRankSubjectSignal(t *testing.T) {
	cards := []model.Card{
		card("partial", "", 0, entry("<p@x>", "x@x", "Budget Q3 travel", 0)),
		card("exact", "", 10, entry("<e@x>", "x@x", "RE: budget q3", 10)),
		card("none", "", 0, entry("<n@x>", "x@x", "Parking", 0)),
		card("title", "Budget Q3", 20),
	}
	rec := mailparse.Record{Subject: "Re: Re: Budget Q3 "}

	got := Rank(rec, cards, nil, testOptions())
	byID := map[string]Candidate{}
	for _, c := range got {
		byID[c.Card.ID] = c
	}

	assert.Equal(t, 100.0, byID["exact"].Signals.Subject)
	assert.Equal(t, 100.0, byID["title"].Signals.Subject)
	assert.InDelta(t, 2.0/3.0*50, byID["partial"].Signals.Subject, 1e-9)
	assert.Zero(t, byID["none"].Signals.Subject)

	// Exact match outranks the more recent partial match.
	assert.Equal(t, "exact", got[0].Card.ID)
	assert.Equal(t, "none", got[len(got)-1].Card.ID)
}

func TestRankSubjectUsesLatestEntry(t *testing.T) {
	c := card("a", "Budget", 0,
		entry("<1@x>", "x@x", "Budget", 5),
		entry("<2@x>", "x@x", "Renamed thread", 1),
	)
	got := Rank(mailparse.Record{Subject: "Renamed thread"}, []model.Card{c}, nil, testOptions())
	assert.Equal(t, 100.0, got[0].Signals.Subject)
}

func TestRankParticipantsThroughAliases(t *testing.T) {
	aliases := model.NewAliasMap([]model.Correspondent{{
		Email:   "alice@example.com",
		Aliases: model.StringList{"alice@home.example"},
	}})
	withAlias := card("alias", "t", 3, entry("<1@x>", "Alice <alice@home.example>", "x", 3))
	stranger := card("stranger", "t", 3, entry("<2@x>", "mallory@x", "x", 3))
	rec := mailparse.Record{FromAddr: "alice@example.com"}

	got := Rank(rec, []model.Card{stranger, withAlias}, aliases, testOptions())
	assert.Equal(t, "alias", got[0].Card.ID)
	assert.Equal(t, 10.0, got[0].Signals.Participants)
	assert.Zero(t, got[1].Signals.Participants)

	// Without the alias map the two addresses are different people.
	got = Rank(rec, []model.Card{withAlias}, nil, testOptions())
	assert.Zero(t, got[0].Signals.Participants)
}

func TestRankParticipantCap(t *testing.T) {
	e := entry("<1@x>", "a@x", "x", 1)
	e.Recipients = model.StringList{"b@x", "c@x", "d@x", "e@x", "f@x", "g@x"}
	rec := mailparse.Record{FromAddr: "a@x", Recipients: []string{"b@x", "c@x", "d@x", "e@x", "f@x", "g@x"}}

	got := Rank(rec, []model.Card{card("c", "t", 1, e)}, nil, testOptions())
	assert.Equal(t, 50.0, got[0].Signals.Participants)
}

func TestRankRecencyBreaksTiesOnly(t *testing.T) {
	fresh := card("fresh", "", 0, entry("<1@x>", "x@x", "Parking", 0))
	stale := card("stale", "", 60, entry("<2@x>", "x@x", "Budget Q3", 60))
	rec := mailparse.Record{Subject: "Budget Q3"}

	got := Rank(rec, []model.Card{fresh, stale}, nil, testOptions())
	assert.Equal(t, "stale", got[0].Card.ID)
	assert.InDelta(t, 5.0, got[1].Signals.Recency, 1e-9)
	assert.InDelta(t, 1.25, got[0].Signals.Recency, 1e-9)

	// Same subject everywhere: the recent card wins.
	fresh.Entries[0].Subject = "Budget Q3"
	got = Rank(rec, []model.Card{stale, fresh}, nil, testOptions())
	assert.Equal(t, "fresh", got[0].Card.ID)
}

func TestRankDeterministicTieBreak(t *testing.T) {
	older := model.Card{ID: "z", Title: "t", CreatedAt: now.AddDate(0, -2, 0)}
	newer := model.Card{ID: "a", Title: "t", CreatedAt: now.AddDate(0, -1, 0)}
	twinA := model.Card{ID: "m", Title: "t", CreatedAt: now.AddDate(0, -3, 0)}
	twinB := model.Card{ID: "n", Title: "t", CreatedAt: now.AddDate(0, -3, 0)}

	opts := testOptions()
	opts.RecencyWeight = 0
	cards := []model.Card{newer, twinB, older, twinA}

	first := Rank(mailparse.Record{}, cards, nil, opts)
	// Equal scores: most recent activity first. Without entries, activity
	// is the creation time.
	assert.Equal(t, []string{"a", "z", "m", "n"}, ids(first))
	for i := 0; i < 5; i++ {
		assert.Equal(t, ids(first), ids(Rank(mailparse.Record{}, cards, nil, opts)))
	}
}

func TestRankTopK(t *testing.T) {
	var cards []model.Card
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		cards = append(cards, card(id, id, 1))
	}
	assert.Len(t, Rank(mailparse.Record{}, cards, nil, testOptions()), 5)

	opts := testOptions()
	opts.TopK = 0
	assert.Len(t, Rank(mailparse.Record{}, cards, nil, opts), 7)

	assert.Empty(t, Rank(mailparse.Record{}, nil, nil, testOptions()))
}
