package review

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Decision is a prompter's answer.
type Decision int

const (
	DecisionNext Decision = iota
	DecisionRetry
	DecisionStop
)

// Prompter asks the user what to do at each pause.
type Prompter interface {
	// Staged is called once a message is on the clipboard. DecisionNext
	// and DecisionRetry both move on; DecisionStop ends the walk.
	Staged(step Step) (Decision, error)

	// Failed is called after a step error. DecisionRetry and DecisionNext
	// both try the same message again.
	Failed(err *StepError) (Decision, error)
}

// Run drives w until it is done or aborted and returns the session
// summary. Scan must already have succeeded.
func Run(ctx context.Context, w *Walker, p Prompter) (Summary, error) {
	for {
		step, err := w.Advance(ctx)
		if err != nil {
			var se *StepError
			if !errors.As(err, &se) {
				return w.Summary(), err
			}
			d, perr := p.Failed(se)
			if perr != nil {
				w.Abort()
				return w.Summary(), perr
			}
			if d == DecisionStop {
				w.Abort()
				return w.Summary(), nil
			}
			continue
		}

		switch step.State {
		case StateDone, StateAborted:
			return w.Summary(), nil
		}

		d, err := p.Staged(step)
		if err != nil {
			w.Abort()
			return w.Summary(), err
		}
		if d == DecisionStop {
			w.Abort()
			return w.Summary(), nil
		}
		if err := w.Confirm(); err != nil {
			return w.Summary(), err
		}
	}
}

// PlainPrompter reads answers line by line. An empty line continues, "q"
// or end of input stops.
type PlainPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPlainPrompter returns a prompter reading from in and writing to out.
func NewPlainPrompter(in io.Reader, out io.Writer) *PlainPrompter {
	return &PlainPrompter{in: bufio.NewReader(in), out: out}
}

// Staged implements Prompter.
func (p *PlainPrompter) Staged(step Step) (Decision, error) {
	for _, s := range step.Skipped {
		switch s.Reason {
		case SkipNoMessageID:
			fmt.Fprintf(p.out, "  skipped %s (no Message-ID)\n", s.Message.Name())
		case SkipMissing:
			fmt.Fprintf(p.out, "  skipped %s (file disappeared)\n", s.Message.Name())
		}
	}
	fmt.Fprintf(p.out, "[%d/%d] %s\n", step.Index+1, step.Total, Describe(step.Message))
	for _, note := range Notes(step.Prepared) {
		fmt.Fprintf(p.out, "  %s\n", note)
	}
	fmt.Fprint(p.out, "Staged to clipboard. Enter for next, q to quit: ")
	return p.answer()
}

// Failed implements Prompter.
func (p *PlainPrompter) Failed(err *StepError) (Decision, error) {
	fmt.Fprintf(p.out, "[%d] error: %v\n", err.Index+1, err)
	fmt.Fprint(p.out, "Enter to retry, q to quit: ")
	d, perr := p.answer()
	if d == DecisionNext {
		d = DecisionRetry
	}
	return d, perr
}

func (p *PlainPrompter) answer() (Decision, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return DecisionStop, err
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	if answer == "q" || (err != nil && line == "") {
		fmt.Fprintln(p.out)
		return DecisionStop, nil
	}
	if answer == "r" {
		return DecisionRetry, nil
	}
	return DecisionNext, nil
}

// Describe formats a message for display.
func Describe(m Message) string {
	subject := m.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	out := fmt.Sprintf("%s  %s", m.Name(), subject)
	if !m.Date.IsZero() {
		out += "  " + m.Date.Local().Format(time.DateTime)
	}
	return out
}

// Notes lists what Prepare changed in a staged message.
func Notes(p Prepared) []string {
	var notes []string
	if p.Decrypted > 0 {
		notes = append(notes, fmt.Sprintf("decrypted %d PGP block(s)", p.Decrypted))
	}
	if p.DecryptErr != nil {
		notes = append(notes, fmt.Sprintf("decryption failed: %v", p.DecryptErr))
	}
	if p.Unwrap == UnwrapDone {
		notes = append(notes, "unwrapped PGP/MIME envelope")
	}
	if p.Stripped() {
		notes = append(notes, fmt.Sprintf("stripped attachments: %s -> %s",
			formatSize(p.SizeBeforeStrip), formatSize(p.SizeAfterStrip)))
	}
	return notes
}
