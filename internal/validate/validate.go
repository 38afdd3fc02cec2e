// Package validate runs the validation gate for a workflow iteration: the
// behavioral test command declared in the manifest, and the external
// structural validator. Both are blocking subprocess invocations bounded by
// a timeout; a timeout surfaces as a diagnostic string that the systemic
// classifier recognizes.
package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
)

// DefaultTimeout bounds a single validation subprocess.
const DefaultTimeout = 300 * time.Second

var (
	errorIndicators       = []string{"error", "✗", "failed", "exception"}
	testFailureIndicators = []string{"FAILED", "ERROR", "XFAIL"}
)

// Mode selects how much the structural validator demands of the manifest.
type Mode string

const (
	// ModeFull requires the implementation to satisfy every declared
	// artifact. The validator's default.
	ModeFull Mode = ""
	// ModeBehavioral checks that the tests use the declared artifacts
	// without requiring the implementation to exist yet, so a freshly
	// planned manifest can validate before anything is written.
	ModeBehavioral Mode = "behavioral"
)

// Result captures one validation run.
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
	Errors  []string // extracted diagnostic lines
}

// Diagnostic returns the combined raw output for feedback and
// classification.
func (r Result) Diagnostic() string {
	return strings.TrimSpace(r.Stdout + "\n" + r.Stderr)
}

// Runner executes validation commands for manifests.
type Runner struct {
	// MaidCommand is the external structural validator binary.
	MaidCommand string
	// Root is the project root, exported to children so tests can import
	// local modules.
	Root string
	// Timeout bounds each subprocess.
	Timeout time.Duration

	log *logging.Logger
}

// NewRunner builds a Runner with defaults applied. A nil logger is replaced
// with a no-op logger.
func NewRunner(root string, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Runner{
		MaidCommand: "maid",
		Root:        root,
		Timeout:     DefaultTimeout,
		log:         log,
	}
}

// RunBehavioralTests executes the validationCommand declared in the
// manifest. A missing manifest or an empty command is a failed result, not a
// panic: the loop treats it as a diagnostic.
func (r *Runner) RunBehavioralTests(ctx context.Context, manifestPath string) Result {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return Result{
			Stderr: fmt.Sprintf("Manifest not found or invalid: %s: %v", manifestPath, err),
			Errors: []string{"File not found or invalid JSON"},
		}
	}
	if len(m.ValidationCommand) == 0 {
		return Result{
			Stderr: "No validationCommand in manifest",
			Errors: []string{"Missing validationCommand"},
		}
	}

	return r.run(ctx, m.ValidationCommand, testFailureIndicators)
}

// ValidateManifest shells out to the structural validator for the manifest,
// optionally with chain validation across related manifests.
func (r *Runner) ValidateManifest(ctx context.Context, manifestPath string, mode Mode, useChain bool) Result {
	command := []string{r.MaidCommand, "validate", manifestPath}
	if mode != ModeFull {
		command = append(command, "--validation-mode", string(mode))
	}
	if useChain {
		command = append(command, "--use-manifest-chain")
	}
	return r.run(ctx, command, errorIndicators)
}

func (r *Runner) run(ctx context.Context, command []string, indicators []string) Result {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r.log.Debug("running validation command", "command", strings.Join(command, " "))

	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = r.Root
	cmd.Env = append(os.Environ(), "PYTHONPATH="+r.Root)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return Result{
			Stderr: fmt.Sprintf("Command timed out after %s", timeout),
			Errors: []string{"Timeout"},
		}
	}

	result := Result{
		Success: err == nil,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Spawn failure: the command never ran.
			result.Stderr = strings.TrimSpace(result.Stderr + "\n" + err.Error())
			result.Errors = []string{err.Error()}
			return result
		}
		// Parse pytest-style failures from stdout, validator errors from stderr.
		output := result.Stderr
		if isTestCommand(command) {
			output = result.Stdout
		}
		result.Errors = extractLines(output, indicators)
	}

	r.log.Debug("validation command finished",
		"success", result.Success, "errors", len(result.Errors))
	return result
}

func isTestCommand(command []string) bool {
	for _, arg := range command {
		if strings.Contains(arg, "pytest") {
			return true
		}
	}
	return false
}

// extractLines returns the trimmed lines of text containing any of the
// indicators, compared case-insensitively.
func extractLines(text string, indicators []string) []string {
	if text == "" {
		return nil
	}

	var matches []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, indicator := range indicators {
			if strings.Contains(lower, strings.ToLower(indicator)) {
				if trimmed := strings.TrimSpace(line); trimmed != "" {
					matches = append(matches, trimmed)
				}
				break
			}
		}
	}
	return matches
}
