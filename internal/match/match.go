// Package match ranks a board's cards as candidate threads for a parsed
// email. Ranking is advisory: it never assigns a record to a card.
package match

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/nhle/threadboard/internal/crossref"
	"github.com/nhle/threadboard/internal/mailparse"
	"github.com/nhle/threadboard/internal/model"
)

// Options holds the signal weights and shortlist size.
type Options struct {
	// TopK truncates the result. Zero or less returns every card.
	TopK int

	ReplyWeight       float64
	SubjectWeight     float64
	ParticipantWeight float64
	ParticipantCap    int
	RecencyWeight     float64
	RecencyHalfLife   time.Duration

	// Now is the reference time for the recency bonus.
	Now time.Time
}

// OptionsFromConfig converts the matcher section of the app config.
func OptionsFromConfig(cfg model.MatcherConfig) Options {
	return Options{
		TopK:              cfg.TopK,
		ReplyWeight:       cfg.ReplyWeight,
		SubjectWeight:     cfg.SubjectWeight,
		ParticipantWeight: cfg.ParticipantWeight,
		ParticipantCap:    cfg.ParticipantCap,
		RecencyWeight:     cfg.RecencyWeight,
		RecencyHalfLife:   time.Duration(cfg.RecencyHalfLifeDays * float64(24*time.Hour)),
		Now:               time.Now(),
	}
}

// DefaultOptions returns the weights of the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(model.DefaultAppConfig().Matcher)
}

// Signals breaks a candidate's score down by source.
type Signals struct {
	Reply        float64
	Subject      float64
	Participants float64
	Recency      float64
}

// Total is the candidate score.
func (s Signals) Total() float64 {
	return s.Reply + s.Subject + s.Participants + s.Recency
}

// Candidate is a card with its match score.
type Candidate struct {
	Card    model.Card
	Score   float64
	Signals Signals
}

// Rank scores every card against rec and returns them best first. Ties
// go to the card with the most recent activity, then the older card,
// then the lower ID, so equal inputs always produce the same order.
func Rank(rec mailparse.Record, cards []model.Card, aliases model.AliasMap, opts Options) []Candidate {
	refs := rec.ThreadRefs()
	if rec.MessageID != "" {
		refs = append(refs, rec.MessageID)
	}
	subject := mailparse.NormalizeSubject(rec.Subject)
	people := recordParticipants(rec, aliases)

	out := make([]Candidate, 0, len(cards))
	for _, card := range cards {
		sig := Signals{
			Reply:        replySignal(refs, card, opts),
			Subject:      subjectSignal(subject, card, opts),
			Participants: participantSignal(people, card, aliases, opts),
			Recency:      recencySignal(card, opts),
		}
		out = append(out, Candidate{Card: card, Score: sig.Total(), Signals: sig})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if la, lb := a.Card.LastActivity(), b.Card.LastActivity(); !la.Equal(lb) {
			return la.After(lb)
		}
		if !a.Card.CreatedAt.Equal(b.Card.CreatedAt) {
			return a.Card.CreatedAt.Before(b.Card.CreatedAt)
		}
		return a.Card.ID < b.Card.ID
	})

	if opts.TopK > 0 && len(out) > opts.TopK {
		out = out[:opts.TopK]
	}
	return out
}

// replySignal gives the full reply weight when any of refs names an
// entry on the card.
func replySignal(refs []string, card model.Card, opts Options) float64 {
	if len(refs) == 0 {
		return 0
	}
	known := make(map[string]bool, len(card.Entries))
	for _, e := range card.Entries {
		if e.MessageID != "" {
			known[e.MessageID] = true
		}
	}
	if len(crossref.MatchRefs(refs, known)) > 0 {
		return opts.ReplyWeight
	}
	return 0
}

// subjectSignal compares against the card's latest entry, or its title
// when it has none. Only exact equality earns the full weight; token
// overlap earns at most half of it.
func subjectSignal(subject string, card model.Card, opts Options) float64 {
	if subject == "" {
		return 0
	}
	other := card.Title
	if latest := card.LatestEntry(); latest != nil {
		other = latest.Subject
	}
	other = mailparse.NormalizeSubject(other)
	if other == "" {
		return 0
	}
	if subject == other {
		return opts.SubjectWeight
	}
	return jaccard(strings.Fields(subject), strings.Fields(other)) * opts.SubjectWeight / 2
}

func jaccard(a, b []string) float64 {
	setA := make(map[string]bool, len(a))
	for _, w := range a {
		setA[w] = true
	}
	setB := make(map[string]bool, len(b))
	for _, w := range b {
		setB[w] = true
	}
	inter := 0
	for w := range setA {
		if setB[w] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func recordParticipants(rec mailparse.Record, aliases model.AliasMap) map[string]bool {
	people := make(map[string]bool)
	if p := aliases.Resolve(rec.FromAddr); p != "" {
		people[p] = true
	}
	for _, r := range rec.Recipients {
		if p := aliases.Resolve(r); p != "" {
			people[p] = true
		}
	}
	return people
}

// participantSignal counts the record's participants that also appear
// on the card, up to the configured cap.
func participantSignal(people map[string]bool, card model.Card, aliases model.AliasMap, opts Options) float64 {
	if len(people) == 0 {
		return 0
	}
	seen := make(map[string]bool)
	for _, e := range card.Entries {
		seen[aliases.Resolve(e.FromAddr)] = true
		for _, r := range e.Recipients {
			seen[aliases.Resolve(r)] = true
		}
	}
	overlap := 0
	for p := range people {
		if seen[p] {
			overlap++
		}
	}
	if opts.ParticipantCap > 0 && overlap > opts.ParticipantCap {
		overlap = opts.ParticipantCap
	}
	return float64(overlap) * opts.ParticipantWeight
}

// recencySignal decays the recency weight by half every half-life.
func recencySignal(card model.Card, opts Options) float64 {
	if opts.RecencyWeight == 0 || opts.RecencyHalfLife <= 0 {
		return 0
	}
	age := opts.Now.Sub(card.LastActivity())
	if age < 0 {
		age = 0
	}
	return opts.RecencyWeight * math.Pow(0.5, float64(age)/float64(opts.RecencyHalfLife))
}
