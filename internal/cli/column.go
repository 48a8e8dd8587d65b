package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/model"
)

func newColumnCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "column",
		Short: "Manage the board's columns",
		Long: `Manage the board's columns. Columns are referred to by name
(case-insensitive) or ID.`,
	}
	cmd.AddCommand(
		newColumnListCmd(opts),
		newColumnAddCmd(opts),
		newColumnRenameCmd(opts),
		newColumnSwapCmd(opts),
		newColumnDeleteCmd(opts),
	)
	return cmd
}

// boardColumns loads the configured board and its columns.
func (a *App) boardColumns(cmd *cobra.Command) (*model.Board, []model.Column, error) {
	board, err := a.board(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	columns, err := a.Store.GetColumns(cmd.Context(), board.ID)
	if err != nil {
		return nil, nil, err
	}
	return board, columns, nil
}

func mustColumn(columns []model.Column, ref string) (*model.Column, error) {
	col := findColumn(columns, ref)
	if col == nil {
		return nil, fmt.Errorf("no column %q on this board", ref)
	}
	return col, nil
}

func newColumnListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List columns in board order",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
			_, columns, err := app.boardColumns(cmd)
			if err != nil {
				return err
			}
			t := newTable("#", "Name", "ID")
			for _, c := range columns {
				t.Row(strconv.Itoa(c.Position), c.Name, c.ID)
			}
			printTable(cmd.OutOrStdout(), t)
			return nil
		}),
	}
}

func newColumnAddCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "add NAME",
		Short: "Append a column to the board",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			board, columns, err := app.boardColumns(cmd)
			if err != nil {
				return err
			}
			if findColumn(columns, args[0]) != nil {
				return fmt.Errorf("column %q already exists", args[0])
			}
			col := &model.Column{BoardID: board.ID, Name: args[0]}
			if err := app.Store.CreateColumn(cmd.Context(), col); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added column %s\n", col.Name)
			return nil
		}),
	}
}

func newColumnRenameCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "rename COLUMN NAME",
		Short: "Rename a column",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			_, columns, err := app.boardColumns(cmd)
			if err != nil {
				return err
			}
			col, err := mustColumn(columns, args[0])
			if err != nil {
				return err
			}
			if err := app.Store.RenameColumn(cmd.Context(), col.ID, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed column %s to %s\n", col.Name, args[1])
			return nil
		}),
	}
}

func newColumnSwapCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "swap COLUMN COLUMN",
		Short: "Swap the positions of two columns",
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			_, columns, err := app.boardColumns(cmd)
			if err != nil {
				return err
			}
			first, err := mustColumn(columns, args[0])
			if err != nil {
				return err
			}
			second, err := mustColumn(columns, args[1])
			if err != nil {
				return err
			}
			if err := app.Store.SwapColumns(cmd.Context(), first.ID, second.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Swapped %s and %s\n", first.Name, second.Name)
			return nil
		}),
	}
}

func newColumnDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete COLUMN",
		Short: "Delete an empty column",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			_, columns, err := app.boardColumns(cmd)
			if err != nil {
				return err
			}
			col, err := mustColumn(columns, args[0])
			if err != nil {
				return err
			}
			cards, err := app.Store.GetCardsByColumn(cmd.Context(), col.ID)
			if err != nil {
				return err
			}
			if len(cards) > 0 {
				return fmt.Errorf("column %s still holds %d card(s); move them first", col.Name, len(cards))
			}
			if err := app.Store.DeleteColumn(cmd.Context(), col.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted column %s\n", col.Name)
			return nil
		}),
	}
}
