package review

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/atotto/clipboard"
)

// Clipboard receives the staged message text.
type Clipboard interface {
	Write(ctx context.Context, text string) error
}

// SystemClipboard writes through the platform clipboard utility found by
// atotto/clipboard (pbcopy, xclip, xsel, wl-copy, ...).
type SystemClipboard struct{}

// Write implements Clipboard. It gives up when ctx is done, even if the
// underlying utility is still running.
func (SystemClipboard) Write(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("no clipboard utility available")
	}
	done := make(chan error, 1)
	go func() { done <- clipboard.WriteAll(text) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("writing clipboard: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("writing clipboard: %w", ctx.Err())
	}
}

// CommandClipboard pipes the text into a configured command such as
// "wl-copy --type text/plain".
type CommandClipboard struct {
	Args []string
}

// NewCommandClipboard splits command on whitespace.
func NewCommandClipboard(command string) *CommandClipboard {
	return &CommandClipboard{Args: strings.Fields(command)}
}

// Write implements Clipboard.
func (c *CommandClipboard) Write(ctx context.Context, text string) error {
	if len(c.Args) == 0 {
		return fmt.Errorf("clipboard command is empty")
	}
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("running %s: %w", c.Args[0], ctx.Err())
		}
		return fmt.Errorf("running %s: %w: %s", c.Args[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// NewClipboard returns a CommandClipboard when command is set and the
// system clipboard otherwise.
func NewClipboard(command string) Clipboard {
	if strings.TrimSpace(command) != "" {
		return NewCommandClipboard(command)
	}
	return SystemClipboard{}
}
