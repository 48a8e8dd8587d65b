package review

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPlainPrompter(t *testing.T) {
	dir, checker, boardID, count := reviewFixture(t)
	clip := &fakeClipboard{}
	w := NewWalker(dir, checker, clip, Options{BoardID: boardID})
	require.NoError(t, w.Scan())

	var out bytes.Buffer
	sum, err := Run(context.Background(), w, NewPlainPrompter(strings.NewReader("\n\n"), &out))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Staged)
	assert.Equal(t, StateDone, w.State())
	assert.Contains(t, out.String(), "[2/4] b.eml  two")
	assert.Contains(t, out.String(), "skipped c.eml (no Message-ID)")
	assert.Contains(t, out.String(), "[4/4] d.eml  four")
	assert.Equal(t, 1, count())
}

func TestRunQuit(t *testing.T) {
	dir, checker, boardID, _ := reviewFixture(t)
	w := NewWalker(dir, checker, &fakeClipboard{}, Options{BoardID: boardID})
	require.NoError(t, w.Scan())

	var out bytes.Buffer
	sum, err := Run(context.Background(), w, NewPlainPrompter(strings.NewReader("q\n"), &out))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Staged)
	assert.Equal(t, StateAborted, w.State())
}

func TestRunEndOfInputStops(t *testing.T) {
	dir, checker, boardID, _ := reviewFixture(t)
	w := NewWalker(dir, checker, &fakeClipboard{}, Options{BoardID: boardID})
	require.NoError(t, w.Scan())

	sum, err := Run(context.Background(), w, NewPlainPrompter(strings.NewReader(""), &bytes.Buffer{}))
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Staged)
	assert.Equal(t, StateAborted, w.State())
}

func TestRunRetriesFailedStep(t *testing.T) {
	dir, checker, boardID, _ := reviewFixture(t)
	clip := &fakeClipboard{fails: 1}
	w := NewWalker(dir, checker, clip, Options{BoardID: boardID})
	require.NoError(t, w.Scan())

	var out bytes.Buffer
	sum, err := Run(context.Background(), w, NewPlainPrompter(strings.NewReader("\n\n\n"), &out))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error: staging b.eml: clipboard busy")
	assert.Equal(t, 2, sum.Staged)
	assert.Len(t, clip.texts, 2)
}

func TestNotes(t *testing.T) {
	assert.Empty(t, Notes(Prepared{}))
	notes := Notes(Prepared{Decrypted: 2, Unwrap: UnwrapDone, SizeBeforeStrip: 3 * 1024 * 1024, SizeAfterStrip: 2048})
	assert.Equal(t, []string{
		"decrypted 2 PGP block(s)",
		"unwrapped PGP/MIME envelope",
		"stripped attachments: 3.0MB -> 2KB",
	}, notes)
}
