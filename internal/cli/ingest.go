package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/ingest"
	"github.com/nhle/threadboard/internal/ui/picker"
)

func newIngestCmd(opts *Options) *cobra.Command {
	var (
		input   inputFlags
		cardID  string
		newCard bool
		column  string
		title   string
		summary string
		tags    []string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "File an email on a card",
		Long: `Parse an email and store it as an entry on a card. Without --card or
--new an interactive picker shows the ranked candidates.

A message whose Message-ID is already on the board is never stored twice;
the command reports the card that holds it.

Examples:
  threadboard ingest --clipboard
  threadboard ingest -f reply.eml --card 3f2c...
  threadboard ingest -f vote.eml --new --column Voting --summary "+1" --tag vote
`,
		Args: cobra.NoArgs,
	}
	input.register(cmd)
	cmd.Flags().StringVar(&cardID, "card", "", "add to this card")
	cmd.Flags().BoolVar(&newCard, "new", false, "start a new card")
	cmd.Flags().StringVar(&column, "column", "", "column ID or name for --new (default: first column)")
	cmd.Flags().StringVar(&title, "title", "", "title for --new (default: the subject)")
	cmd.Flags().StringVarP(&summary, "summary", "s", "", "short annotation, e.g. +1")
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag the entry (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("card", "new")

	cmd.RunE = withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
		ctx := cmd.Context()
		if !newCard && (column != "" || title != "") {
			return fmt.Errorf("--column and --title need --new")
		}

		raw, err := input.read(cmd)
		if err != nil {
			return err
		}
		svc := ingest.NewService(app.Store, app.Config, app.Logger)

		req := ingest.Request{Raw: raw, Summary: summary, Tags: tags}
		switch {
		case cardID != "":
			req.CardID = cardID
		case newCard:
			req.NewCard = &ingest.NewCard{ColumnID: column, Title: title}
		default:
			picked, err := pick(cmd, app, svc, raw)
			if err != nil {
				return err
			}
			req.CardID, req.NewCard = picked.CardID, picked.NewCard
			if req.Summary == "" {
				req.Summary = picked.Summary
			}
			if len(req.Tags) == 0 {
				req.Tags = picked.Tags
			}
		}

		res, err := svc.Ingest(ctx, req)
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), res)
		return nil
	})
	return cmd
}

// pick runs the interactive card picker.
func pick(cmd *cobra.Command, app *App, svc *ingest.Service, raw string) (ingest.Request, error) {
	ctx := cmd.Context()
	short, err := svc.Candidates(ctx, "", raw)
	if err != nil {
		return ingest.Request{}, err
	}
	columns, err := app.Store.GetColumns(ctx, short.Board.ID)
	if err != nil {
		return ingest.Request{}, err
	}
	tags, err := app.Store.GetTags(ctx)
	if err != nil {
		return ingest.Request{}, err
	}

	req, err := picker.New(picker.Options{
		Subject:    short.Record.Subject,
		Candidates: short.Candidates,
		Columns:    columns,
		Tags:       tags,
	}).Run()
	if errors.Is(err, picker.ErrCancelled) {
		return ingest.Request{}, fmt.Errorf("nothing stored: %w", err)
	}
	return req, err
}

func printResult(out, errOut io.Writer, res *ingest.Result) {
	if res.Unprotected {
		fmt.Fprintln(errOut, "Warning: the message has no Message-ID; importing it again will not be detected.")
	}
	switch res.Outcome {
	case ingest.OutcomeConflict:
		fmt.Fprintf(out, "Already imported: entry %s on card %q (%s). Nothing stored.\n",
			res.Entry.ID, res.Card.Title, res.Card.ID)
	default:
		fmt.Fprintf(out, "Added entry %s to card %q (%s), %d entries.\n",
			res.Entry.ID, res.Card.Title, res.Card.ID, len(res.Card.Entries))
	}
}
