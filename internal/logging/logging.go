// Package logging configures the application's slog logger. Log output
// goes to a file because the terminal belongs to the interactive UI.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nhle/threadboard/internal/model"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyBoard     = "board"
	KeyCard      = "card"
	KeyMessageID = "message_id"
	KeyFile      = "file"
	KeyError     = "error"
)

// ParseLevel converts a case-insensitive level name to an slog.Level.
// The empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}

// Init opens the configured log file in append mode and installs a text
// handler as the default logger. The returned closer closes the file.
func Init(cfg model.LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	if cfg.File == "" {
		return Discard(), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := New(file, level)
	slog.SetDefault(logger)
	return logger, file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a text logger writing to w at level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// Board returns a slog attribute for a board slug.
func Board(slug string) slog.Attr {
	return slog.String(KeyBoard, slug)
}

// Card returns a slog attribute for a card ID.
func Card(id string) slog.Attr {
	return slog.String(KeyCard, id)
}

// MessageID returns a slog attribute for a message identifier.
func MessageID(id string) slog.Attr {
	return slog.String(KeyMessageID, id)
}

// File returns a slog attribute for a file path.
func File(path string) slog.Attr {
	return slog.String(KeyFile, path)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
