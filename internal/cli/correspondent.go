package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/model"
)

func newCorrespondentCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "correspondent",
		Aliases: []string{"people"},
		Short:   "Manage the board's correspondents and their address aliases",
		Long: `Manage the board's correspondents. A correspondent's aliases are other
addresses the same person writes from; candidate matching counts them as
one participant.`,
	}
	cmd.AddCommand(newCorrespondentListCmd(opts), newCorrespondentAddCmd(opts))
	return cmd
}

func newCorrespondentListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List correspondents",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
			board, err := app.board(cmd.Context())
			if err != nil {
				return err
			}
			people, err := app.Store.GetCorrespondents(cmd.Context(), board.ID)
			if err != nil {
				return err
			}
			t := newTable("Email", "Name", "Aliases")
			for _, p := range people {
				t.Row(p.Email, orDash(p.Name), strings.Join(p.Aliases, ", "))
			}
			printTable(cmd.OutOrStdout(), t)
			return nil
		}),
	}
}

func newCorrespondentAddCmd(opts *Options) *cobra.Command {
	var (
		name    string
		aliases []string
	)
	cmd := &cobra.Command{
		Use:   "add EMAIL",
		Short: "Add a correspondent, or replace the name and aliases of an existing one",
		Example: `  threadboard correspondent add anna@example.org --name "Anna K" \
      --alias anna.k@work.example --alias anna@old.example`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringArrayVar(&aliases, "alias", nil, "another address of the same person (repeatable)")
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
		board, err := app.board(cmd.Context())
		if err != nil {
			return err
		}
		c := &model.Correspondent{
			BoardID: board.ID,
			Email:   args[0],
			Name:    strings.TrimSpace(name),
			Aliases: aliases,
		}
		if err := app.Store.UpsertCorrespondent(cmd.Context(), c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s", c)
		if len(c.Aliases) > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (aliases: %s)", strings.Join(c.Aliases, ", "))
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	})
	return cmd
}
