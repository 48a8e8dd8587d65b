package review

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/testutil"
)

type fakeClipboard struct {
	texts []string
	fails int
}

func (c *fakeClipboard) Write(_ context.Context, text string) error {
	if c.fails > 0 {
		c.fails--
		return errors.New("clipboard busy")
	}
	c.texts = append(c.texts, text)
	return nil
}

type staticChecker struct {
	err error
}

func (c staticChecker) MessageIDExists(context.Context, string, string) (bool, error) {
	return false, c.err
}

func writeMessage(t *testing.T, dir, name, msgID, subject, date string) {
	t.Helper()
	var b strings.Builder
	b.WriteString("From: alice@example.com\n")
	b.WriteString("Subject: " + subject + "\n")
	if date != "" {
		b.WriteString("Date: " + date + "\n")
	}
	if msgID != "" {
		b.WriteString("Message-ID: " + msgID + "\n")
	}
	b.WriteString("\nbody of " + name + "\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644))
}

// reviewFixture has four messages in date order: m1 is already on the
// board, m3 has no Message-ID.
func reviewFixture(t *testing.T) (dir string, checker ExistenceChecker, boardID string, count func() int) {
	t.Helper()
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	board, cols := testutil.NewTestBoard(t, s, "Review")

	card := &model.Card{ColumnID: cols[0].ID, Title: "Existing"}
	entry := &model.Entry{FromAddr: "alice@example.com", Subject: "one", MessageID: "<m1@example.com>"}
	require.NoError(t, s.CreateCardWithEntry(ctx, card, entry))

	dir = t.TempDir()
	writeMessage(t, dir, "a.eml", "<m1@example.com>", "one", "Mon, 2 Jun 2025 10:00:00 +0000")
	writeMessage(t, dir, "b.eml", "<m2@example.com>", "two", "Tue, 3 Jun 2025 10:00:00 +0000")
	writeMessage(t, dir, "c.eml", "", "three", "Wed, 4 Jun 2025 10:00:00 +0000")
	writeMessage(t, dir, "d.eml", "<m4@example.com>", "four", "Thu, 5 Jun 2025 10:00:00 +0000")

	count = func() int {
		n, err := s.CountEntries(ctx, board.ID)
		require.NoError(t, err)
		return n
	}
	return dir, s, board.ID, count
}

func TestWalkerPausesOnlyForNewMessages(t *testing.T) {
	ctx := context.Background()
	dir, checker, boardID, count := reviewFixture(t)
	clip := &fakeClipboard{}

	w := NewWalker(dir, checker, clip, Options{BoardID: boardID, Order: OrderDate})
	require.NoError(t, w.Scan())
	assert.Equal(t, StateAtMessage, w.State())
	assert.Equal(t, 4, w.Total())

	step, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStaged, step.State)
	assert.Equal(t, 1, step.Index)
	assert.Equal(t, "b.eml", step.Message.Name())
	assert.Equal(t, "<m2@example.com>", step.Message.MessageID)
	require.Len(t, step.Skipped, 1)
	assert.Equal(t, SkipImported, step.Skipped[0].Reason)

	_, err = w.Advance(ctx)
	assert.Error(t, err, "advancing past an unconfirmed message")

	require.NoError(t, w.Confirm())
	step, err = w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStaged, step.State)
	assert.Equal(t, "d.eml", step.Message.Name())
	require.Len(t, step.Skipped, 1)
	assert.Equal(t, SkipNoMessageID, step.Skipped[0].Reason)

	require.NoError(t, w.Confirm())
	step, err = w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDone, step.State)

	require.Len(t, clip.texts, 2)
	assert.Contains(t, clip.texts[0], "body of b.eml")
	assert.Contains(t, clip.texts[1], "body of d.eml")

	sum := w.Summary()
	assert.Equal(t, Summary{Files: 4, Staged: 2, AlreadyImported: 1, NoMessageID: 1}, sum)
	assert.Equal(t, 3, sum.Total())
	assert.Equal(t, 0, sum.Remaining())
	assert.Equal(t, 1, count(), "review never writes entries")
}

func TestWalkerStageWithoutID(t *testing.T) {
	ctx := context.Background()
	dir, checker, boardID, _ := reviewFixture(t)
	clip := &fakeClipboard{}

	w := NewWalker(dir, checker, clip, Options{BoardID: boardID, StageWithoutID: true})
	require.NoError(t, w.Scan())

	var staged []string
	for {
		step, err := w.Advance(ctx)
		require.NoError(t, err)
		if step.State == StateDone {
			break
		}
		staged = append(staged, step.Message.Name())
		require.NoError(t, w.Confirm())
	}
	assert.Equal(t, []string{"b.eml", "c.eml", "d.eml"}, staged)
	assert.Equal(t, 0, w.Summary().NoMessageID)
}

func TestWalkerClipboardFailureRetries(t *testing.T) {
	ctx := context.Background()
	dir, checker, boardID, _ := reviewFixture(t)
	clip := &fakeClipboard{fails: 1}

	w := NewWalker(dir, checker, clip, Options{BoardID: boardID})
	require.NoError(t, w.Scan())

	_, err := w.Advance(ctx)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "staging", se.Op)
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, StateAtMessage, w.State())
	assert.Equal(t, 0, w.Summary().Staged)

	step, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStaged, step.State)
	assert.Equal(t, 1, step.Index)
	assert.Equal(t, 1, w.Summary().AlreadyImported, "skips are counted once")
}

func TestWalkerExistenceFailureIsNotASkip(t *testing.T) {
	ctx := context.Background()
	dir, _, _, _ := reviewFixture(t)
	clip := &fakeClipboard{}

	w := NewWalker(dir, staticChecker{err: errors.New("database is locked")}, clip, Options{})
	require.NoError(t, w.Scan())

	_, err := w.Advance(ctx)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "checking", se.Op)
	assert.Equal(t, 0, se.Index)
	assert.Contains(t, se.Error(), "a.eml")
	assert.Equal(t, Summary{Files: 4}, w.Summary())
	assert.Empty(t, clip.texts)
}

func TestWalkerAbort(t *testing.T) {
	ctx := context.Background()
	dir, checker, boardID, _ := reviewFixture(t)

	w := NewWalker(dir, checker, &fakeClipboard{}, Options{BoardID: boardID})
	require.NoError(t, w.Scan())
	_, err := w.Advance(ctx)
	require.NoError(t, err)

	w.Abort()
	step, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, step.State)
	assert.Error(t, w.Confirm())
	assert.Equal(t, 1, w.Summary().Staged)
}

func TestWalkerCancelledContextAborts(t *testing.T) {
	dir, checker, boardID, _ := reviewFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := NewWalker(dir, checker, &fakeClipboard{}, Options{BoardID: boardID})
	require.NoError(t, w.Scan())
	step, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, step.State)
}

func TestWalkerScanErrors(t *testing.T) {
	w := NewWalker(t.TempDir(), staticChecker{}, &fakeClipboard{}, Options{})
	assert.ErrorIs(t, w.Scan(), ErrNoMessages)
	assert.Equal(t, StateDone, w.State())

	w = NewWalker(filepath.Join(t.TempDir(), "missing"), staticChecker{}, &fakeClipboard{}, Options{})
	err := w.Scan()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoMessages)

	w = NewWalker(t.TempDir(), staticChecker{}, &fakeClipboard{}, Options{})
	_, err = w.Advance(context.Background())
	assert.Error(t, err, "advance before scan")
}

func TestSummaryString(t *testing.T) {
	s := Summary{Files: 12, Staged: 3, AlreadyImported: 5, NoMessageID: 2}
	assert.Equal(t, 10, s.Total())
	assert.Equal(t, 8, s.Imported())
	assert.Equal(t, 2, s.Remaining())
	assert.Equal(t,
		"Session: 3 emails staged (30%)\n"+
			"Total:   8/10 emails imported (80%), 2 remaining\n"+
			"Skipped: 2 without Message-ID",
		s.String())

	empty := Summary{}
	assert.Equal(t, 0.0, empty.TotalPercent())
	assert.Equal(t, "Session: 0 emails staged (0%)\nTotal:   0/0 emails imported (0%), 0 remaining", empty.String())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := model.DefaultAppConfig().Review
	opts := OptionsFromConfig(cfg, "board-1")
	assert.Equal(t, "board-1", opts.BoardID)
	assert.Equal(t, OrderDate, opts.Order)
	assert.Equal(t, cfg.MaxMessageBytes, opts.MaxMessageBytes)
	assert.Equal(t, "5s", opts.ClipboardTimeout.String())
}

func TestWalkerFollowsRenamedMaildirFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	for _, sub := range []string{"cur", "new", "tmp"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, sub), 0o755))
	}
	newDir := filepath.Join(root, "new")
	writeMessage(t, newDir, "1700000001.M1.host", "<m1@example.com>", "one", "Mon, 2 Jun 2025 10:00:00 +0000")
	writeMessage(t, newDir, "1700000002.M2.host", "<m2@example.com>", "two", "Tue, 3 Jun 2025 10:00:00 +0000")

	clip := &fakeClipboard{}
	w := NewWalker(root, staticChecker{}, clip, Options{Order: OrderDate})
	require.NoError(t, w.Scan())

	// A mail client marks the first message seen while the walk is paused.
	require.NoError(t, os.Rename(
		filepath.Join(newDir, "1700000001.M1.host"),
		filepath.Join(root, "cur", "1700000001.M1.host:2,S")))

	step, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStaged, step.State)
	assert.Equal(t, 0, step.Index)
	assert.Equal(t, "1700000001.M1.host:2,S", step.Message.Name())
	require.Len(t, clip.texts, 1)
	assert.Contains(t, clip.texts[0], "body of 1700000001.M1.host")
}

func TestWalkerSkipsVanishedFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeMessage(t, dir, "a.eml", "<m1@example.com>", "one", "Mon, 2 Jun 2025 10:00:00 +0000")
	writeMessage(t, dir, "b.eml", "<m2@example.com>", "two", "Tue, 3 Jun 2025 10:00:00 +0000")

	w := NewWalker(dir, staticChecker{}, &fakeClipboard{}, Options{Order: OrderDate})
	require.NoError(t, w.Scan())
	require.NoError(t, os.Remove(filepath.Join(dir, "a.eml")))

	step, err := w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateStaged, step.State)
	assert.Equal(t, "b.eml", step.Message.Name())
	require.Len(t, step.Skipped, 1)
	assert.Equal(t, SkipMissing, step.Skipped[0].Reason)
	assert.Equal(t, "a.eml", step.Skipped[0].Message.Name())

	require.NoError(t, w.Confirm())
	step, err = w.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateDone, step.State)

	sum := w.Summary()
	assert.Equal(t, 1, sum.Files)
	assert.Equal(t, 1, sum.Staged)
	assert.Equal(t, 0, sum.Remaining())
}

func TestRelocate(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, "123.M1.host:2,", "", "x", "")

	moved, ok := Relocate(filepath.Join(dir, "123.M1.host"))
	require.True(t, ok)
	assert.Equal(t, filepath.Join(dir, "123.M1.host:2,"), moved)

	_, ok = Relocate(filepath.Join(dir, "456.M1.host"))
	assert.False(t, ok)
}
