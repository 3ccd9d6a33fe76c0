// Package interactive provides interactive prompts for user confirmation.
package interactive

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Response represents the user's response to a prompt.
type Response int

const (
	ResponseYes  Response = iota // Proceed
	ResponseNo                   // Decline this time
	ResponseQuit                 // Abort the whole operation
)

// Prompter asks yes/no questions on a pair of streams.
type Prompter struct {
	in        io.Reader
	out       io.Writer
	scanner   *bufio.Scanner
	assumeYes bool
}

// NewPrompter creates a prompter with stdin/stdout.
func NewPrompter() *Prompter {
	return NewPrompterWithIO(os.Stdin, os.Stdout)
}

// NewPrompterWithIO creates a prompter with custom input/output (for testing).
func NewPrompterWithIO(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:      in,
		out:     out,
		scanner: bufio.NewScanner(in),
	}
}

// AssumeYes makes every later prompt answer yes without reading input.
func (p *Prompter) AssumeYes() *Prompter {
	p.assumeYes = true
	return p
}

// IsTerminal checks if stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// prompt displays a question and reads the response.
func (p *Prompter) prompt(format string, args ...any) Response {
	if p.assumeYes {
		return ResponseYes
	}

	_, _ = fmt.Fprintf(p.out, format, args...)
	_, _ = fmt.Fprint(p.out, " [y/n/q] ")

	if !p.scanner.Scan() {
		return ResponseQuit
	}

	input := strings.ToLower(strings.TrimSpace(p.scanner.Text()))
	switch input {
	case "y", "yes":
		return ResponseYes
	case "n", "no", "":
		return ResponseNo
	case "q", "quit":
		return ResponseQuit
	default:
		// Default to no for invalid input
		_, _ = fmt.Fprintln(p.out, "Invalid response, skipping.")
		return ResponseNo
	}
}

// ConfirmInstall asks whether a downloaded update should replace the
// running binary now. ResponseNo leaves the update staged and ResponseQuit
// abandons the update run.
func (p *Prompter) ConfirmInstall(app, current, latest string) Response {
	resp := p.prompt("Install %s %s (running %s)?", app, latest, current)
	switch resp {
	case ResponseNo:
		_, _ = fmt.Fprintln(p.out, "Update left staged, not installed.")
	case ResponseQuit:
		_, _ = fmt.Fprintln(p.out, "Update aborted.")
	}
	return resp
}
