package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/maidkit/ccmaid/internal/logging"
)

// Driver sequences phase loops into a full plan → implement → refactor run.
// It owns the workflow state machine; each phase is an independent loop
// invocation built by the supplied spec functions.
type Driver struct {
	loop *Loop
	log  *logging.Logger

	runID string
	state State

	// PlanningSpec builds the planning loop; its result's manifest file
	// becomes the input to the later phases.
	PlanningSpec func() Spec
	// ImplementationSpec builds the implementation loop for a manifest.
	ImplementationSpec func(manifestPath string) Spec
	// RefactoringSpec builds the optional refactoring loop. Nil skips the
	// refactoring phase.
	RefactoringSpec func(manifestPath string) Spec
}

// NewDriver creates a Driver in the init state with a fresh run ID.
func NewDriver(loop *Loop, log *logging.Logger) *Driver {
	if log == nil {
		log = logging.NopLogger()
	}
	runID := uuid.NewString()
	return &Driver{
		loop:  loop,
		log:   log.WithRun(runID),
		runID: runID,
		state: StateInit,
	}
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }

// RunID returns the identifier attached to all of this run's log records.
func (d *Driver) RunID() string { return d.runID }

// Run executes the full workflow. A phase failure moves the driver to the
// failed state and stops the sequence; later phases never run after a
// failure.
func (d *Driver) Run(ctx context.Context) WorkflowResult {
	if d.state.IsTerminal() {
		return WorkflowResult{Message: fmt.Sprintf("workflow already finished in state %s", d.state)}
	}

	d.transition(StatePlanning)
	planning := d.loop.Run(ctx, d.PlanningSpec())
	if !planning.Success {
		return d.fail("planning", planning)
	}

	manifestPath := manifestFromResult(planning)
	if manifestPath == "" {
		d.transition(StateFailed)
		return WorkflowResult{Message: "planning succeeded but produced no manifest file"}
	}
	d.log.Info("planning complete", "manifest", manifestPath)

	d.transition(StateImplementing)
	impl := d.loop.Run(ctx, d.ImplementationSpec(manifestPath))
	if !impl.Success {
		return d.fail("implementation", impl)
	}

	if d.RefactoringSpec != nil {
		d.transition(StateRefactoring)
		refactor := d.loop.Run(ctx, d.RefactoringSpec(manifestPath))
		if !refactor.Success {
			return d.fail("refactoring", refactor)
		}
	}

	d.transition(StateComplete)
	return WorkflowResult{
		Success:      true,
		ManifestPath: manifestPath,
		Message:      fmt.Sprintf("workflow complete: %s passes validation", manifestPath),
	}
}

func (d *Driver) transition(next State) {
	d.log.Info("state transition", "from", d.state.String(), "to", next.String())
	d.state = next
}

func (d *Driver) fail(phase string, result Result) WorkflowResult {
	d.transition(StateFailed)
	msg := fmt.Sprintf("%s phase failed after %d iteration(s)", phase, result.Iterations)
	if result.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, result.Err)
	}
	return WorkflowResult{Message: msg}
}

// manifestFromResult finds the manifest the planning phase wrote among its
// modified files.
func manifestFromResult(r Result) string {
	for _, path := range r.FilesModified {
		if strings.HasSuffix(path, ".manifest.json") {
			return path
		}
	}
	return ""
}
