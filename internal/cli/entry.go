package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
)

func newEntryCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Annotate imported entries",
		Long: `Annotate imported entries. An entry's message is never changed after
import; only its summary and tags can be edited.`,
	}
	cmd.AddCommand(newEntrySummaryCmd(opts), newEntryTagCmd(opts))
	return cmd
}

// entry loads an entry by ID and checks that it is on the configured board.
func (a *App) entry(cmd *cobra.Command, id string) (*model.Entry, error) {
	board, err := a.board(cmd.Context())
	if err != nil {
		return nil, err
	}
	e, err := a.Store.GetEntryByID(cmd.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", id, err)
	}
	if e.BoardID != board.ID {
		return nil, fmt.Errorf("entry %s is not on board %s", id, board.Slug)
	}
	return e, nil
}

func newEntrySummaryCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary ENTRY TEXT",
		Short: `Set an entry's summary, e.g. "+1" or "asks for the minutes"`,
		Args:  cobra.ExactArgs(2),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			e, err := app.entry(cmd, args[0])
			if err != nil {
				return err
			}
			summary := strings.TrimSpace(args[1])
			if err := app.Store.UpdateEntrySummary(cmd.Context(), e.ID, summary); err != nil {
				return err
			}
			e.Summary = summary
			fmt.Fprintln(cmd.OutOrStdout(), e.Label())
			return nil
		}),
	}
}

func newEntryTagCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "tag ENTRY [TAG...]",
		Short: "Replace an entry's tags; no tags clears them",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			ctx := cmd.Context()
			e, err := app.entry(cmd, args[0])
			if err != nil {
				return err
			}
			var ids []string
			for _, name := range args[1:] {
				name = strings.TrimPrefix(strings.TrimSpace(name), "#")
				tag, err := app.Store.GetTagByName(ctx, name)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("tag %q does not exist (see threadboard tag list)", name)
				}
				if err != nil {
					return err
				}
				ids = append(ids, tag.ID)
			}
			if err := app.Store.SetEntryTags(ctx, e.ID, ids); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Entry %s has %d tag(s)\n", e.ID, len(ids))
			return nil
		}),
	}
}
