package cli

import (
	"errors"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nhle/threadboard/internal/credential"
	"github.com/nhle/threadboard/internal/keys"
	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/review"
	reviewview "github.com/nhle/threadboard/internal/ui/review"
)

func newReviewCmd(opts *Options) *cobra.Command {
	var (
		plain     bool
		order     orderFlag
		noDecrypt bool
	)
	cmd := &cobra.Command{
		Use:   "review DIR",
		Short: "Stage a folder of emails to the clipboard, one at a time",
		Long: `Walk the message files of DIR (a Maildir folder's cur/ and new/ are
both read) and copy each message that is not on the board yet to the
clipboard, waiting for Enter before moving on. Messages already imported
are skipped, so a stopped review can simply be started again.

Nothing is written to the board: ingest the staged text with
"threadboard ingest --clipboard" in another terminal.

Examples:
  threadboard review ~/Mail/council/cur
  threadboard review ~/Mail/council --order name --plain
`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line-based prompts instead of the full-screen view")
	cmd.Flags().Var(&order, "order", `file order, "date" or "name" (default review.order)`)
	cmd.Flags().BoolVar(&noDecrypt, "no-decrypt", false, "do not decrypt PGP blocks")

	cmd.RunE = withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
		ctx := cmd.Context()
		board, err := app.board(ctx)
		if err != nil {
			return err
		}

		ropts := review.OptionsFromConfig(app.Config.Review, board.ID)
		ropts.Logger = app.Logger
		if order != "" {
			ropts.Order = string(order)
		}
		if app.Config.Review.DecryptPGP && !noDecrypt {
			ropts.Decrypter = gpgDecrypter(app.Config.Review, app.Logger)
		}

		w := review.NewWalker(args[0], app.Store, review.NewClipboard(app.Config.Review.ClipboardCommand), ropts)
		if err := w.Scan(); err != nil {
			if errors.Is(err, review.ErrNoMessages) {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return err
		}

		out := cmd.OutOrStdout()
		var sum review.Summary
		if plain || !isTerminal(cmd.InOrStdin()) {
			sum, err = review.Run(ctx, w, review.NewPlainPrompter(cmd.InOrStdin(), out))
		} else {
			m := reviewview.New(ctx, w, keys.DefaultReviewKeyMap())
			var final tea.Model
			final, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			if err == nil {
				err = final.(reviewview.Model).Err()
			}
			sum = w.Summary()
		}

		fmt.Fprintln(out, sum.String())
		app.Logger.Info("review finished",
			logging.File(args[0]),
			slog.Int("staged", sum.Staged),
			slog.Int("remaining", sum.Remaining()))
		return err
	})
	return cmd
}

// gpgDecrypter builds the decrypter, taking the passphrase from the
// keyring when one is stored there.
func gpgDecrypter(cfg model.ReviewConfig, logger *slog.Logger) *review.GPGDecrypter {
	d := &review.GPGDecrypter{Binary: cfg.GPGBinary}

	creds, err := openKeyring()
	if err != nil {
		logger.Warn("keyring unavailable; gpg will ask for the passphrase itself", logging.Err(err))
		return d
	}
	pass, ok, err := creds.Lookup(credential.GPGPassphrase)
	if err != nil {
		logger.Warn("reading gpg passphrase failed", logging.Err(err))
		return d
	}
	if ok {
		d.Passphrase = pass
	}
	return d
}

// orderFlag accepts only the review orders the walker knows.
type orderFlag string

var _ pflag.Value = (*orderFlag)(nil)

func (o *orderFlag) String() string { return string(*o) }

func (o *orderFlag) Set(v string) error {
	switch v {
	case review.OrderDate, review.OrderName:
		*o = orderFlag(v)
		return nil
	}
	return fmt.Errorf("must be %q or %q", review.OrderDate, review.OrderName)
}

func (o *orderFlag) Type() string { return "order" }
