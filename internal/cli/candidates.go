package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/ingest"
	"github.com/nhle/threadboard/internal/match"
	"github.com/nhle/threadboard/internal/store"
)

type candidateJSON struct {
	CardID       string  `json:"card_id"`
	Title        string  `json:"title"`
	Score        float64 `json:"score"`
	Reply        float64 `json:"reply"`
	Subject      float64 `json:"subject"`
	Participants float64 `json:"participants"`
	Recency      float64 `json:"recency"`
}

func newCandidatesCmd(opts *Options) *cobra.Command {
	var (
		input   inputFlags
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Rank the cards an email could belong to",
		Long: `Parse an email and list the board's cards ranked by how likely the
email continues their discussion. Nothing is stored.

Examples:
  threadboard candidates --clipboard
  threadboard candidates -f message.eml --limit 3
`,
		Args: cobra.NoArgs,
	}
	input.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of candidates (default matcher.top_k)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output JSON")

	cmd.RunE = withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
		ctx := cmd.Context()
		raw, err := input.read(cmd)
		if err != nil {
			return err
		}

		svc := ingest.NewService(app.Store, app.Config, app.Logger)
		short, err := svc.Candidates(ctx, "", raw)
		if err != nil {
			return err
		}
		cands := short.Candidates
		if limit > 0 && len(cands) > limit {
			cands = cands[:limit]
		}

		if jsonOut {
			out := make([]candidateJSON, len(cands))
			for i, c := range cands {
				out[i] = candidateJSON{
					CardID: c.Card.ID, Title: c.Card.Title, Score: c.Score,
					Reply: c.Signals.Reply, Subject: c.Signals.Subject,
					Participants: c.Signals.Participants, Recency: c.Signals.Recency,
				}
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		rec := short.Record
		fmt.Fprintf(w, "Subject:    %s\n", orDash(rec.Subject))
		fmt.Fprintf(w, "From:       %s\n", orDash(rec.FromAddr))
		fmt.Fprintf(w, "Message-ID: %s\n", orDash(rec.MessageID))

		if rec.HasMessageID() {
			existing, err := app.Store.FindEntryByMessageID(ctx, short.Board.ID, rec.MessageID)
			switch {
			case err == nil:
				fmt.Fprintf(w, "Already imported on card %s\n", existing.CardID)
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		if len(cands) == 0 {
			fmt.Fprintln(w, "No candidate cards; ingest with --new to start one.")
			return nil
		}
		t := newTable("#", "Score", "Card", "Why", "ID")
		for i, c := range cands {
			t.Row(fmt.Sprint(i+1), fmt.Sprintf("%.1f", c.Score), c.Card.Title, reasons(c.Signals), c.Card.ID)
		}
		printTable(w, t)
		return nil
	})
	return cmd
}

func reasons(s match.Signals) string {
	var parts []string
	if s.Reply > 0 {
		parts = append(parts, "reply")
	}
	if s.Subject > 0 {
		parts = append(parts, fmt.Sprintf("subject %.0f", s.Subject))
	}
	if s.Participants > 0 {
		parts = append(parts, fmt.Sprintf("people %.0f", s.Participants))
	}
	if s.Recency > 0 {
		parts = append(parts, fmt.Sprintf("recent %.1f", s.Recency))
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
