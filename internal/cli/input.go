package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// inputFlags select where the raw message comes from.
type inputFlags struct {
	file      string
	clipboard bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", `read the message from a file ("-" for stdin)`)
	cmd.Flags().BoolVar(&f.clipboard, "clipboard", false, "read the message from the clipboard")
	cmd.MarkFlagsMutuallyExclusive("file", "clipboard")
}

// fromStdin reports whether the message is read from standard input.
func (f *inputFlags) fromStdin() bool {
	return !f.clipboard && (f.file == "" || f.file == "-")
}

// read returns the raw message text.
func (f *inputFlags) read(cmd *cobra.Command) (string, error) {
	var (
		raw string
		err error
	)
	switch {
	case f.clipboard:
		raw, err = readClipboard()
		if err != nil {
			return "", fmt.Errorf("reading clipboard: %w", err)
		}
	case f.fromStdin():
		in := cmd.InOrStdin()
		if isTerminal(in) {
			fmt.Fprintln(cmd.ErrOrStderr(), "Reading message from stdin, end with Ctrl-D...")
		}
		var data []byte
		data, err = io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		raw = string(data)
	default:
		var data []byte
		data, err = os.ReadFile(f.file)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", f.file, err)
		}
		raw = string(data)
	}

	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("the message is empty")
	}
	return raw, nil
}

// isTerminal reports whether r is an interactive terminal.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}
