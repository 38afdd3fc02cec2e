// Package policy decides whether a workflow loop may continue after a failed
// iteration, and whether working files must be restored before the next
// attempt. Both decisions are pure given the mode, so loops stay testable.
package policy

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// RetryMode controls how a loop behaves after a failed iteration.
type RetryMode string

const (
	// RetryDisabled stops after the current iteration regardless of budget.
	RetryDisabled RetryMode = "disabled"
	// RetryAuto retries whenever iteration budget remains.
	RetryAuto RetryMode = "auto"
	// RetryConfirm asks the operator before each retry.
	RetryConfirm RetryMode = "confirm"
)

// ParseRetryMode converts a config/flag string to a RetryMode.
func ParseRetryMode(s string) (RetryMode, error) {
	switch RetryMode(strings.ToLower(s)) {
	case RetryDisabled, RetryAuto, RetryConfirm:
		return RetryMode(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("unknown retry mode %q", s)
	}
}

// String returns the string representation of the mode.
func (m RetryMode) String() string { return string(m) }

// ErrorContextMode controls what file state a retry iteration starts from.
type ErrorContextMode string

const (
	// ContextIncremental builds each retry on the previous attempt's files.
	ContextIncremental ErrorContextMode = "incremental"
	// ContextFreshStart restores the pre-loop snapshot before each retry.
	ContextFreshStart ErrorContextMode = "fresh-start"
)

// String returns the string representation of the mode.
func (m ErrorContextMode) String() string { return string(m) }

// ShouldRestoreFiles reports whether working files must be restored to the
// pre-loop snapshot before the given iteration runs. Iteration 1 never
// restores: there is nothing to undo before the first attempt.
func ShouldRestoreFiles(iteration int, mode ErrorContextMode) bool {
	if iteration <= 1 {
		return false
	}
	return mode == ContextFreshStart
}

// Confirmer answers the interactive "retry?" question in RetryConfirm mode.
// Implementations must treat any read failure or interrupt as a decline.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Retry decides whether a loop may run another iteration.
type Retry struct {
	Mode      RetryMode
	Confirmer Confirmer
}

// NewRetry builds a Retry policy; a nil confirmer falls back to stdin.
func NewRetry(mode RetryMode, confirmer Confirmer) Retry {
	if confirmer == nil {
		confirmer = StdinConfirmer{}
	}
	return Retry{Mode: mode, Confirmer: confirmer}
}

// ShouldRetry reports whether another iteration may run. Budget exhaustion
// always wins; otherwise the mode decides. In RetryConfirm mode the operator
// is shown the last error and asked synchronously.
func (r Retry) ShouldRetry(currentIteration, maxIterations int, lastError string) bool {
	if currentIteration >= maxIterations {
		return false
	}

	switch r.Mode {
	case RetryDisabled:
		return false
	case RetryAuto:
		return true
	case RetryConfirm:
		prompt := fmt.Sprintf("Iteration %d/%d failed: %s\nRetry? [y/N] ",
			currentIteration, maxIterations, firstLine(lastError))
		return r.Confirmer.Confirm(prompt)
	default:
		return false
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// StdinConfirmer reads a y/n answer from standard input. A non-interactive
// stdin, EOF, or anything other than an explicit yes resolves to decline,
// so an unattended run never blocks forever waiting for an operator.
type StdinConfirmer struct {
	In  io.Reader
	Out io.Writer
}

// Confirm prints the prompt and reads one line. Only "y" or "yes"
// (case-insensitive) count as an affirmative answer.
func (c StdinConfirmer) Confirm(prompt string) bool {
	in := c.In
	out := c.Out
	if in == nil {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return false
		}
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}

	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
