package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
)

func newSetupCmd(opts *Options) *cobra.Command {
	var boardName string
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create the board with its default columns and tags",
		Long: `Create a board with the columns Todo, Waiting, Voting, Decided and
Archived and the tags vote and question. Running setup again only adds
what is missing. When no config file exists yet, one is written.

Examples:
  threadboard setup
  threadboard setup --board-name "Council 2025"
`,
		Args: cobra.NoArgs,
	}
	cmd.Flags().StringVar(&boardName, "board-name", "", "display name of the board (default: the board slug)")

	cmd.RunE = withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()

		slug := app.Config.Board
		name := strings.TrimSpace(boardName)
		if name != "" && opts.Board == "" {
			slug = model.Slugify(name)
		}
		if name == "" {
			name = slug
		}
		if slug == "" {
			return fmt.Errorf("board name %q has no letters or digits", boardName)
		}

		board, err := app.Store.GetBoardBySlug(ctx, slug)
		switch {
		case errors.Is(err, store.ErrNotFound):
			board = &model.Board{Name: name, Slug: slug}
			if err := app.Store.CreateBoard(ctx, board); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created board %q (%s)\n", board.Name, board.Slug)
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "Board %q (%s) already exists\n", board.Name, board.Slug)
		}

		columns, err := app.Store.GetColumns(ctx, board.ID)
		if err != nil {
			return err
		}
		for _, colName := range model.DefaultColumns {
			if findColumn(columns, colName) != nil {
				continue
			}
			col := &model.Column{BoardID: board.ID, Name: colName}
			if err := app.Store.CreateColumn(ctx, col); err != nil {
				return err
			}
			fmt.Fprintf(out, "  + column %s\n", colName)
		}

		for _, tag := range model.DefaultTags {
			_, err := app.Store.GetTagByName(ctx, tag.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			t := tag
			if err := app.Store.CreateTag(ctx, &t); err != nil {
				return err
			}
			fmt.Fprintf(out, "  + tag %s\n", t.Name)
		}

		if _, err := os.Stat(app.ConfigPath); errors.Is(err, os.ErrNotExist) {
			cfg := *app.Config
			cfg.Board = board.Slug
			if err := model.SaveConfig(app.ConfigPath, &cfg); err != nil {
				return err
			}
			fmt.Fprintf(out, "Wrote %s\n", app.ConfigPath)
		} else if board.Slug != app.Config.Board {
			fmt.Fprintf(out, "Use --board %s or set board: %s in %s\n", board.Slug, board.Slug, app.ConfigPath)
		}

		app.Logger.Info("setup complete", logging.Board(board.Slug))
		return nil
	})
	return cmd
}

// findColumn matches a column by ID or case-insensitive name.
func findColumn(columns []model.Column, ref string) *model.Column {
	for i := range columns {
		if columns[i].ID == ref || strings.EqualFold(columns[i].Name, ref) {
			return &columns[i]
		}
	}
	return nil
}
