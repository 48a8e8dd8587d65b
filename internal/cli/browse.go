package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/keys"
	boardview "github.com/nhle/threadboard/internal/ui/board"
)

func newBrowseCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse the board in a full-screen view",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
		board, err := app.board(cmd.Context())
		if err != nil {
			return err
		}
		m := boardview.New(app.Store, board.ID, keys.DefaultKeyMap())
		_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
		return err
	})
	return cmd
}
