// Package cli implements the threadboard command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/credential"
	"github.com/nhle/threadboard/internal/ingest"
	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/store"
)

// Options are the global flags.
type Options struct {
	ConfigPath string
	DBPath     string
	Board      string
}

// configPath returns the --config value or the default location.
func (o *Options) configPath() string {
	if o.ConfigPath != "" {
		return model.ExpandHome(o.ConfigPath)
	}
	return model.DefaultConfigPath()
}

// Replaceable in tests.
var (
	openKeyring   = credential.Open
	readClipboard = clipboard.ReadAll
)

// App holds what a command needs once configuration is loaded.
type App struct {
	Config     *model.AppConfig
	ConfigPath string
	Store      *store.SQLiteStore
	Logger     *slog.Logger

	logCloser io.Closer
}

// openApp loads configuration, applies flag overrides and opens the
// log file and database.
func openApp(opts *Options) (*App, error) {
	path := opts.configPath()
	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if opts.DBPath != "" {
		cfg.Database.Path = model.ExpandHome(opts.DBPath)
	}
	if opts.Board != "" {
		cfg.Board = opts.Board
	}

	logger, closer, err := logging.Init(cfg.Log)
	if err != nil {
		return nil, err
	}

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("opening database %s: %w", cfg.Database.Path, err)
	}

	return &App{
		Config:     cfg,
		ConfigPath: path,
		Store:      st,
		Logger:     logger,
		logCloser:  closer,
	}, nil
}

// Close releases the database and log file.
func (a *App) Close() error {
	return errors.Join(a.Store.Close(), a.logCloser.Close())
}

// board loads the configured board.
func (a *App) board(ctx context.Context) (*model.Board, error) {
	b, err := a.Store.GetBoardBySlug(ctx, a.Config.Board)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("board %q does not exist (run threadboard setup)", a.Config.Board)
	}
	if err != nil {
		return nil, &ingest.RetryableError{Op: "loading board", Err: err}
	}
	return b, nil
}

// withApp wraps a RunE body with openApp and Close.
func withApp(opts *Options, run func(cmd *cobra.Command, args []string, app *App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := openApp(opts)
		if err != nil {
			return err
		}
		defer app.Close()
		return run(cmd, args, app)
	}
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &Options{}
	root := &cobra.Command{
		Use:   "threadboard",
		Short: "A kanban board for email discussions",
		Long: `threadboard keeps email threads on a single-user kanban board.

Paste or pipe a message to "ingest" to file it on a card, or walk a
Maildir folder with "review" to stage every message that is not on the
board yet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.config/threadboard/config.yaml)")
	flags.StringVar(&opts.DBPath, "db", "", "database file (overrides database.path)")
	flags.StringVar(&opts.Board, "board", "", "board slug (overrides board)")

	root.AddCommand(
		newSetupCmd(opts),
		newCandidatesCmd(opts),
		newIngestCmd(opts),
		newReviewCmd(opts),
		newBrowseCmd(opts),
		newBoardCmd(opts),
		newColumnCmd(opts),
		newCardCmd(opts),
		newEntryCmd(opts),
		newTagCmd(opts),
		newCorrespondentCmd(opts),
		newCredentialCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit status.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitCode(err)
}
