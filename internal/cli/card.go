package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/model"
)

func newCardCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Show, move, edit and delete cards",
	}
	cmd.AddCommand(
		newCardShowCmd(opts),
		newCardMoveCmd(opts),
		newCardEditCmd(opts),
		newCardDeleteCmd(opts),
	)
	return cmd
}

// card loads a card by ID and checks that it is on the configured board.
func (a *App) card(cmd *cobra.Command, id string) (*model.Card, []model.Column, error) {
	_, columns, err := a.boardColumns(cmd)
	if err != nil {
		return nil, nil, err
	}
	card, err := a.Store.GetCardByID(cmd.Context(), id)
	if err != nil {
		return nil, nil, fmt.Errorf("card %s: %w", id, err)
	}
	if findColumn(columns, card.ColumnID) == nil {
		return nil, nil, fmt.Errorf("card %s is not on board %s", id, a.Config.Board)
	}
	return card, columns, nil
}

type cardJSON struct {
	model.Card
	Column string `json:"column"`
}

func newCardShowCmd(opts *Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show CARD",
		Short: "Show a card and its entries",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
		ctx := cmd.Context()
		card, columns, err := app.card(cmd, args[0])
		if err != nil {
			return err
		}
		entries, err := app.Store.GetEntriesForCard(ctx, card.ID)
		if err != nil {
			return err
		}
		for i := range entries {
			tags, err := app.Store.GetTagsForEntry(ctx, entries[i].ID)
			if err != nil {
				return err
			}
			entries[i].Tags = tags
		}
		card.Entries = entries
		card.EntryCount = len(entries)
		column := findColumn(columns, card.ColumnID).Name

		w := cmd.OutOrStdout()
		if asJSON {
			return printJSON(w, cardJSON{Card: *card, Column: column})
		}

		fmt.Fprintf(w, "%s\n", card.Title)
		fmt.Fprintf(w, "Column:  %s\n", column)
		fmt.Fprintf(w, "Started: %s   Last update: %s\n", formatDate(card.StartDate), formatDate(card.LastUpdateDate))
		if card.Description != "" {
			fmt.Fprintf(w, "\n%s\n", card.Description)
		}
		if len(entries) == 0 {
			return nil
		}
		t := newTable("Date", "From", "Summary", "Tags", "ID")
		for _, e := range entries {
			names := make([]string, len(e.Tags))
			for i, tag := range e.Tags {
				names[i] = "#" + tag.Name
			}
			summary := e.Summary
			if summary == "" {
				summary = e.Subject
			}
			date := e.Date
			t.Row(formatDate(&date), e.FromAddr, summary, strings.Join(names, " "), e.ID)
		}
		fmt.Fprintln(w)
		printTable(w, t)
		return nil
	})
	return cmd
}

func newCardMoveCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "move CARD COLUMN",
		Short: "Move a card to another column",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			card, columns, err := app.card(cmd, args[0])
			if err != nil {
				return err
			}
			col, err := mustColumn(columns, args[1])
			if err != nil {
				return err
			}
			if err := app.Store.MoveCard(cmd.Context(), card.ID, col.ID); err != nil {
				return err
			}
			app.Logger.Info("card moved", logging.Card(card.ID), "column", col.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %q to %s\n", card.Title, col.Name)
			return nil
		}),
	}
}

func newCardEditCmd(opts *Options) *cobra.Command {
	var title, description string
	cmd := &cobra.Command{
		Use:   "edit CARD",
		Short: "Change a card's title or description",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
		if !cmd.Flags().Changed("title") && !cmd.Flags().Changed("description") {
			return fmt.Errorf("nothing to change: pass --title or --description")
		}
		card, _, err := app.card(cmd, args[0])
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("title") {
			card.Title = strings.TrimSpace(title)
		}
		if cmd.Flags().Changed("description") {
			card.Description = description
		}
		if err := app.Store.UpdateCard(cmd.Context(), *card); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated card %s\n", card.ID)
		return nil
	})
	return cmd
}

func newCardDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete CARD",
		Short: "Delete a card and its entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			card, _, err := app.card(cmd, args[0])
			if err != nil {
				return err
			}
			if err := app.Store.DeleteCard(cmd.Context(), card.ID); err != nil {
				return err
			}
			app.Logger.Info("card deleted", logging.Card(card.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted card %q\n", card.Title)
			return nil
		}),
	}
}
