package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/model"
)

func newBoardCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "List, show and delete boards",
	}
	cmd.AddCommand(newBoardListCmd(opts), newBoardShowCmd(opts), newBoardDeleteCmd(opts))
	return cmd
}

func newBoardListCmd(opts *Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List boards",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
		boards, err := app.Store.GetBoards(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), boards)
		}
		if len(boards) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No boards. Run threadboard setup.")
			return nil
		}
		t := newTable("", "Slug", "Name", "Created")
		for _, b := range boards {
			current := ""
			if b.Slug == app.Config.Board {
				current = "*"
			}
			t.Row(current, b.Slug, b.Name, formatDate(&b.CreatedAt))
		}
		printTable(cmd.OutOrStdout(), t)
		return nil
	})
	return cmd
}

type boardJSON struct {
	model.Board
	Columns []columnJSON `json:"columns"`
}

type columnJSON struct {
	model.Column
	Cards []model.Card `json:"cards"`
}

func newBoardShowCmd(opts *Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the board's columns and cards",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON, including entries")
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
		ctx := cmd.Context()
		board, err := app.board(ctx)
		if err != nil {
			return err
		}
		columns, err := app.Store.GetColumns(ctx, board.ID)
		if err != nil {
			return err
		}
		cards, err := app.Store.GetCardsWithEntries(ctx, board.ID)
		if err != nil {
			return err
		}

		byColumn := make(map[string][]model.Card)
		for _, c := range cards {
			c.EntryCount = len(c.Entries)
			byColumn[c.ColumnID] = append(byColumn[c.ColumnID], c)
		}

		if asJSON {
			out := boardJSON{Board: *board}
			for _, col := range columns {
				cs := byColumn[col.ID]
				if cs == nil {
					cs = []model.Card{}
				}
				out.Columns = append(out.Columns, columnJSON{Column: col, Cards: cs})
			}
			return printJSON(cmd.OutOrStdout(), out)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s (%s)\n", board.Name, board.Slug)
		t := newTable("Column", "Card", "Entries", "Last update", "ID")
		for _, col := range columns {
			cs := byColumn[col.ID]
			if len(cs) == 0 {
				t.Row(col.Name, "-", "", "", "")
				continue
			}
			for i, c := range cs {
				name := ""
				if i == 0 {
					name = col.Name
				}
				t.Row(name, c.Title, strconv.Itoa(c.EntryCount), formatDate(c.LastUpdateDate), c.ID)
			}
		}
		printTable(w, t)
		return nil
	})
	return cmd
}

func newBoardDeleteCmd(opts *Options) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete SLUG",
		Short: "Delete a board with all its columns, cards and entries",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm the deletion")
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
		ctx := cmd.Context()
		board, err := app.Store.GetBoardBySlug(ctx, args[0])
		if err != nil {
			return fmt.Errorf("board %q: %w", args[0], err)
		}
		if !yes {
			return fmt.Errorf("deleting board %q removes every card and entry on it; pass --yes to confirm", board.Slug)
		}
		if err := app.Store.DeleteBoard(ctx, board.ID); err != nil {
			return err
		}
		app.Logger.Info("board deleted", logging.Board(board.Slug))
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted board %s\n", board.Slug)
		return nil
	})
	return cmd
}
