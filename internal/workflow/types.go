// Package workflow drives the generate → validate → retry engine. A single
// generic loop covers every phase (planning, implementation, refactoring,
// refinement, fix), parameterized by a phase-specific generation adapter and
// validation adapter; the driver sequences phases into a full workflow.
package workflow

import (
	"context"

	"github.com/maidkit/ccmaid/internal/policy"
	"github.com/maidkit/ccmaid/internal/validate"
)

// State identifies where the overall workflow is in its lifecycle.
type State string

const (
	// StateInit is the state before any phase has started.
	StateInit State = "init"
	// StatePlanning covers manifest and test authoring.
	StatePlanning State = "planning"
	// StateImplementing covers code generation until the gate passes.
	StateImplementing State = "implementing"
	// StateRefactoring covers the optional post-green quality pass.
	StateRefactoring State = "refactoring"
	// StateComplete is the successful terminal state.
	StateComplete State = "complete"
	// StateFailed is the failed terminal state.
	StateFailed State = "failed"
)

// IsTerminal reports whether the state ends the workflow.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// String returns the string representation of the state.
func (s State) String() string { return string(s) }

// Request is the input to one generation attempt.
type Request struct {
	// ManifestPath locates the work-unit manifest. Empty for the planning
	// phase, which creates it.
	ManifestPath string
	// Feedback carries the previous iteration's diagnostic text, or the
	// red-phase seed on the first iteration.
	Feedback string
	// Instructions is optional operator-supplied guidance.
	Instructions string
}

// FileChange is one file a generation attempt wants written.
type FileChange struct {
	Path    string
	Content string
}

// Output is what a generation adapter produced for one iteration.
type Output struct {
	// Files are written through the path guard in order.
	Files []FileChange
	// Notes are human-readable remarks (e.g. refactoring improvements)
	// surfaced on success.
	Notes []string
}

// Producer is the generation adapter: one per phase, wrapping the agent that
// authors manifests, tests, implementations, refactorings, or fixes.
type Producer interface {
	// Name identifies the adapter in logs and errors.
	Name() string
	// Produce runs one blocking generation attempt.
	Produce(ctx context.Context, req Request) (*Output, error)
}

// Validator is the validation adapter: it decides whether the iteration's
// output passes the gate. Implementations may combine a behavioral test run
// and a structural manifest check; both must pass for Success.
type Validator interface {
	Validate(ctx context.Context, manifestPath string) validate.Result
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, manifestPath string) validate.Result

// Validate calls the function.
func (f ValidatorFunc) Validate(ctx context.Context, manifestPath string) validate.Result {
	return f(ctx, manifestPath)
}

// Decision records what the loop chose to do after an iteration.
type Decision string

const (
	// DecisionRetry means another iteration will run.
	DecisionRetry Decision = "retry"
	// DecisionStopSuccess means the gate passed.
	DecisionStopSuccess Decision = "stop-success"
	// DecisionStopFailure means the loop gave up.
	DecisionStopFailure Decision = "stop-failure"
)

// IterationOutcome captures one loop pass for logging and tests. It is
// created fresh each iteration and never persisted.
type IterationOutcome struct {
	Iteration  int
	Generated  bool
	Validated  bool
	Systemic   bool
	Decision   Decision
	Diagnostic string
}

// Spec parameterizes one loop invocation.
type Spec struct {
	// Phase names the loop in logs ("planning", "implementation", ...).
	Phase string
	// ManifestPath locates the manifest; empty for pure-creation phases.
	ManifestPath string
	// Instructions is optional operator guidance passed to the producer.
	Instructions string
	// Producer generates content each iteration.
	Producer Producer
	// Validator gates each iteration.
	Validator Validator
	// MaxIterations bounds the loop; values below 1 are treated as 1.
	MaxIterations int
	// RetryMode decides whether failed iterations may retry.
	RetryMode policy.RetryMode
	// ContextMode decides whether retries start from the pristine snapshot.
	ContextMode policy.ErrorContextMode
	// BackupFiles is the file set snapshotted before iteration 1. Empty for
	// pure-creation phases, which have nothing to restore.
	BackupFiles []string
	// RedPhase runs the validator once before the loop, expecting failure,
	// and seeds the first iteration's feedback with the diagnostic.
	RedPhase bool
	// MaxFileSize rejects oversize generated content as a local iteration
	// failure. Values below 1 use DefaultMaxFileSize.
	MaxFileSize int
}

// Result is the outcome of a loop invocation.
type Result struct {
	Success       bool
	Iterations    int
	FilesModified []string
	Notes         []string
	Outcomes      []IterationOutcome
	Err           error
}

// WorkflowResult is the outcome of a full multi-phase run.
type WorkflowResult struct {
	Success      bool
	ManifestPath string
	Message      string
}
