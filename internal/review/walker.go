// Package review walks a directory of message files and stages each one
// that is not yet on the board to the clipboard, pausing for the user
// between messages. The walk never writes to storage: resuming a session
// simply skips what has been imported since.
package review

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nhle/threadboard/internal/logging"
	"github.com/nhle/threadboard/internal/mailparse"
	"github.com/nhle/threadboard/internal/model"
)

// ErrNoMessages is returned by Scan when the directory holds no files.
var ErrNoMessages = errors.New("no message files found")

// ExistenceChecker answers whether a board already holds a message. An
// error means the answer is unknown.
type ExistenceChecker interface {
	MessageIDExists(ctx context.Context, boardID, messageID string) (bool, error)
}

// State is the walker's position in its state machine.
type State int

const (
	StateScanning State = iota
	StateAtMessage
	StateSkipped
	StateStaged
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateScanning:
		return "scanning"
	case StateAtMessage:
		return "at message"
	case StateSkipped:
		return "skipped"
	case StateStaged:
		return "staged"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// SkipReason says why a message was passed over without pausing.
type SkipReason int

const (
	SkipImported SkipReason = iota
	SkipNoMessageID
	// SkipMissing marks a file that disappeared after the scan and could
	// not be found under a new name.
	SkipMissing
)

// Message identifies one message file.
type Message struct {
	Path      string
	MessageID string
	Subject   string
	Date      time.Time
}

// Name is the file's base name.
func (m Message) Name() string {
	return filepath.Base(m.Path)
}

// Skip records a message passed over during an Advance.
type Skip struct {
	Index   int
	Message Message
	Reason  SkipReason
}

// Step is what Advance reports.
type Step struct {
	State   State
	Index   int
	Total   int
	Message Message

	// Skipped lists the messages passed over on the way to this step.
	Skipped []Skip

	// Prepared describes the staged text when State is StateStaged.
	Prepared Prepared
}

// StepError reports a step that failed. The walker stays on the same
// message, so calling Advance again retries it.
type StepError struct {
	Index int
	File  string
	Op    string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, filepath.Base(e.File), e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Options configures a Walker.
type Options struct {
	BoardID string

	// Order is OrderDate or OrderName.
	Order string

	// MaxMessageBytes triggers attachment stripping. Zero disables it.
	MaxMessageBytes int

	// StageWithoutID stages messages lacking a Message-ID instead of
	// skipping them.
	StageWithoutID bool

	// ClipboardTimeout bounds each clipboard write.
	ClipboardTimeout time.Duration

	// Decrypter, when set, decrypts armored PGP blocks before staging.
	Decrypter Decrypter

	Logger *slog.Logger
}

// OptionsFromConfig converts the review section of the app config.
func OptionsFromConfig(cfg model.ReviewConfig, boardID string) Options {
	return Options{
		BoardID:          boardID,
		Order:            cfg.Order,
		MaxMessageBytes:  cfg.MaxMessageBytes,
		StageWithoutID:   cfg.StageWithoutID,
		ClipboardTimeout: time.Duration(cfg.ClipboardTimeoutSec) * time.Second,
	}
}

// Summary counts what a session did.
type Summary struct {
	Files           int
	Staged          int
	AlreadyImported int
	NoMessageID     int
}

// Total is the number of files that can be imported.
func (s Summary) Total() int {
	return s.Files - s.NoMessageID
}

// Imported counts messages already on the board plus those staged now.
func (s Summary) Imported() int {
	return s.AlreadyImported + s.Staged
}

// Remaining is the number of importable messages not yet seen.
func (s Summary) Remaining() int {
	return s.Total() - s.Imported()
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

// SessionPercent is the share of importable messages staged this session.
func (s Summary) SessionPercent() float64 {
	return percent(s.Staged, s.Total())
}

// TotalPercent is the share of importable messages imported overall.
func (s Summary) TotalPercent() float64 {
	return percent(s.Imported(), s.Total())
}

func (s Summary) String() string {
	out := fmt.Sprintf("Session: %d emails staged (%.0f%%)\n", s.Staged, s.SessionPercent())
	out += fmt.Sprintf("Total:   %d/%d emails imported (%.0f%%), %d remaining",
		s.Imported(), s.Total(), s.TotalPercent(), s.Remaining())
	if s.NoMessageID > 0 {
		out += fmt.Sprintf("\nSkipped: %d without Message-ID", s.NoMessageID)
	}
	return out
}

// Walker is the review state machine. It is not safe for concurrent use.
type Walker struct {
	dir       string
	checker   ExistenceChecker
	clipboard Clipboard
	opts      Options
	logger    *slog.Logger

	files   []string
	pos     int
	state   State
	current Message
	summary Summary
}

// NewWalker creates a walker over dir. Call Scan before Advance.
func NewWalker(dir string, checker ExistenceChecker, clip Clipboard, opts Options) *Walker {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	if opts.Order == "" {
		opts.Order = OrderDate
	}
	return &Walker{
		dir:       dir,
		checker:   checker,
		clipboard: clip,
		opts:      opts,
		logger:    logging.WithOperation(logger, "review"),
		state:     StateScanning,
	}
}

// Scan computes the ordered file list. It returns ErrNoMessages, with
// the walker done, when there is nothing to review.
func (w *Walker) Scan() error {
	files, err := ListMessages(w.dir, w.opts.Order)
	if err != nil {
		return err
	}
	w.files = files
	w.pos = 0
	w.summary = Summary{Files: len(files)}
	w.logger.Info("scanned directory", logging.File(w.dir), slog.Int("files", len(files)))
	if len(files) == 0 {
		w.state = StateDone
		return ErrNoMessages
	}
	w.state = StateAtMessage
	return nil
}

// State returns the current state.
func (w *Walker) State() State {
	return w.state
}

// Index is the position of the current message.
func (w *Walker) Index() int {
	return w.pos
}

// Total is the number of files found by Scan.
func (w *Walker) Total() int {
	return len(w.files)
}

// Summary returns the session counters.
func (w *Walker) Summary() Summary {
	return w.summary
}

// Advance moves to the next message that needs the user, skipping
// messages already on the board, and stages it. It returns a Step in
// StateStaged, StateDone or StateAborted. A *StepError leaves the walker
// on the failing message.
func (w *Walker) Advance(ctx context.Context) (Step, error) {
	switch w.state {
	case StateScanning:
		return Step{}, fmt.Errorf("review: Scan must be called before Advance")
	case StateStaged:
		return Step{}, fmt.Errorf("review: message %d is staged; Confirm it first", w.pos)
	case StateDone, StateAborted:
		return w.step(nil), nil
	}

	var skipped []Skip
	for w.pos < len(w.files) {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return w.step(skipped), nil
		}

		path := w.files[w.pos]
		msg, err := readMessageHeader(path)
		if errors.Is(err, fs.ErrNotExist) {
			if moved, ok := Relocate(path); ok {
				w.logger.Info("message file was renamed",
					logging.File(filepath.Base(path)), slog.String("now", filepath.Base(moved)))
				w.files[w.pos] = moved
				path = moved
				msg, err = readMessageHeader(path)
			}
		}
		if errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("message file disappeared; skipping", logging.File(filepath.Base(path)))
			w.summary.Files--
			skipped = append(skipped, Skip{Index: w.pos, Message: Message{Path: path}, Reason: SkipMissing})
			w.pos++
			continue
		}
		if err != nil {
			return Step{}, w.fail("reading", path, err)
		}
		w.current = msg
		log := w.logger.With(logging.File(msg.Name()), logging.MessageID(msg.MessageID))

		if msg.MessageID == "" && !w.opts.StageWithoutID {
			log.Warn("skipping message without Message-ID")
			w.summary.NoMessageID++
			skipped = append(skipped, Skip{Index: w.pos, Message: msg, Reason: SkipNoMessageID})
			w.pos++
			continue
		}

		if msg.MessageID != "" {
			exists, err := w.checker.MessageIDExists(ctx, w.opts.BoardID, msg.MessageID)
			if err != nil {
				log.Error("existence check failed", logging.Err(err))
				return Step{}, w.fail("checking", path, err)
			}
			if exists {
				log.Debug("already imported")
				w.summary.AlreadyImported++
				skipped = append(skipped, Skip{Index: w.pos, Message: msg, Reason: SkipImported})
				w.pos++
				continue
			}
		}

		prepared, err := w.stage(ctx, path)
		if err != nil {
			log.Error("staging failed", logging.Err(err))
			return Step{}, w.fail("staging", path, err)
		}
		w.state = StateStaged
		w.summary.Staged++
		log.Info("staged message", slog.Int("bytes", len(prepared.Text)))

		st := w.step(skipped)
		st.Prepared = prepared
		return st, nil
	}

	w.state = StateDone
	return w.step(skipped), nil
}

// Confirm acknowledges the staged message and moves past it.
func (w *Walker) Confirm() error {
	if w.state != StateStaged {
		return fmt.Errorf("review: nothing staged (state %s)", w.state)
	}
	w.pos++
	w.state = StateAtMessage
	return nil
}

// Abort ends the walk. It is valid in every state.
func (w *Walker) Abort() {
	if w.state != StateDone {
		w.state = StateAborted
	}
}

func (w *Walker) step(skipped []Skip) Step {
	return Step{
		State:   w.state,
		Index:   w.pos,
		Total:   len(w.files),
		Message: w.current,
		Skipped: skipped,
	}
}

func (w *Walker) fail(op, path string, err error) error {
	return &StepError{Index: w.pos, File: path, Op: op, Err: err}
}

func (w *Walker) stage(ctx context.Context, path string) (Prepared, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Prepared{}, err
	}
	content := string(data)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
	}

	prepared := Prepare(ctx, content, w.opts.Decrypter, w.opts.MaxMessageBytes)
	if prepared.DecryptErr != nil {
		w.logger.Warn("some PGP blocks could not be decrypted",
			logging.File(filepath.Base(path)), logging.Err(prepared.DecryptErr))
	}
	if prepared.StripErr != nil {
		w.logger.Warn("could not strip attachments",
			logging.File(filepath.Base(path)), logging.Err(prepared.StripErr))
	}

	if w.opts.ClipboardTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.opts.ClipboardTimeout)
		defer cancel()
	}
	if err := w.clipboard.Write(ctx, prepared.Text); err != nil {
		return Prepared{}, err
	}
	return prepared, nil
}

func readMessageHeader(path string) (Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return Message{}, err
	}
	defer f.Close()

	s, err := mailparse.ReadHeaderSummary(f)
	if err != nil {
		return Message{}, err
	}
	return Message{Path: path, MessageID: s.MessageID, Subject: s.Subject, Date: s.Date}, nil
}
