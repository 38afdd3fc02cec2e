package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/maidkit/ccmaid/internal/backup"
	"github.com/maidkit/ccmaid/internal/classify"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/policy"
	"github.com/maidkit/ccmaid/internal/safepath"
)

// DefaultMaxFileSize bounds a single generated file (1MB). Larger output is
// rejected as a local iteration failure rather than written or crashed on.
const DefaultMaxFileSize = 1_000_000

// Loop executes one phase's produce → apply → validate → decide cycle until
// the gate passes, the budget runs out, or a systemic failure ends it early.
//
// A Loop must not run concurrently with another Loop over the same file set;
// the claim registry enforces this.
type Loop struct {
	guard   *safepath.Guard
	backups backup.Manager
	claims  *ClaimRegistry
	confirm policy.Confirmer
	log     *logging.Logger
}

// NewLoop assembles a Loop. The backup manager decides dry-run behavior
// (pass backup.NewNop() for dry runs); a nil claims registry gets a private
// one; a nil confirmer defers to stdin in CONFIRM mode.
func NewLoop(guard *safepath.Guard, backups backup.Manager, claims *ClaimRegistry, confirm policy.Confirmer, log *logging.Logger) *Loop {
	if claims == nil {
		claims = NewClaimRegistry()
	}
	if log == nil {
		log = logging.NopLogger()
	}
	return &Loop{
		guard:   guard,
		backups: backups,
		claims:  claims,
		confirm: confirm,
		log:     log,
	}
}

// Run executes the loop described by spec. The returned Result always has
// Iterations set to the number of generation attempts performed; on failure
// Err names the budget and the last diagnostic.
func (l *Loop) Run(ctx context.Context, spec Spec) Result {
	if spec.Producer == nil || spec.Validator == nil {
		return Result{Err: errors.New("loop spec is missing its producer or validator")}
	}

	maxIterations := spec.MaxIterations
	if maxIterations < 1 {
		maxIterations = 1
	}
	maxFileSize := spec.MaxFileSize
	if maxFileSize < 1 {
		maxFileSize = DefaultMaxFileSize
	}

	log := l.log.WithPhase(spec.Phase)
	retry := policy.NewRetry(spec.RetryMode, l.confirm)

	loopID := uuid.NewString()
	if len(spec.BackupFiles) > 0 {
		if err := l.claims.Claim(loopID, spec.BackupFiles); err != nil {
			return Result{Err: err}
		}
		defer l.claims.Release(loopID)
	}

	log.Info("phase starting",
		"max_iterations", maxIterations,
		"retry_mode", spec.RetryMode.String(),
		"context_mode", spec.ContextMode.String())

	// Red-phase check: run the gate once before generating anything and use
	// the failing diagnostic as the first iteration's feedback.
	feedback := ""
	if spec.RedPhase {
		pre := spec.Validator.Validate(ctx, spec.ManifestPath)
		if !pre.Success {
			feedback = pre.Diagnostic()
		}
		log.Info("initial validation", "passed", pre.Success)
	}

	backupApplies := len(spec.BackupFiles) > 0
	if backupApplies {
		if err := l.backups.Backup(spec.BackupFiles); err != nil {
			return Result{Err: errors.Wrap(errors.CategoryFilesystem, "backing up working files", err)}
		}
	}
	// Cleanup must run on every exit path: success, exhausted budget, or
	// unexpected failure.
	defer l.backups.Cleanup()

	result := Result{}
	lastError := ""

	for result.Iterations < maxIterations {
		result.Iterations++
		iteration := result.Iterations
		iterLog := log.WithIteration(iteration)
		outcome := IterationOutcome{Iteration: iteration}

		if backupApplies && policy.ShouldRestoreFiles(iteration, spec.ContextMode) {
			if err := l.backups.Restore(); err != nil {
				result.Err = errors.Wrap(errors.CategoryFilesystem, "restoring working files", err)
				return result
			}
			iterLog.Info("restored pristine file state before retry")
		}

		out, err := spec.Producer.Produce(ctx, Request{
			ManifestPath: spec.ManifestPath,
			Feedback:     feedback,
			Instructions: spec.Instructions,
		})
		if err != nil {
			lastError = fmt.Sprintf("%s failed: %v", spec.Producer.Name(), err)
			iterLog.Error("generation failed", "error", err)

			// A generation timeout is as unfixable as a harness timeout.
			if systemic, explanation := classify.Classify(err.Error()); systemic {
				outcome.Systemic = true
				outcome.Decision = DecisionStopFailure
				result.Outcomes = append(result.Outcomes, outcome)
				result.Err = errors.Wrap(errors.CategorySystemic, explanation, errors.ErrSystemic)
				return result
			}

			outcome.Decision = l.decide(&retry, iteration, maxIterations, lastError)
			result.Outcomes = append(result.Outcomes, outcome)
			if outcome.Decision == DecisionRetry {
				continue
			}
			break
		}
		outcome.Generated = true

		written, writeErr := l.applyFiles(out.Files, maxFileSize, iterLog)
		if writeErr != nil {
			// Local iteration failure: nothing was corrupted, the loop may
			// simply try again.
			lastError = writeErr.Error()
			iterLog.Error("applying generated files failed", "error", writeErr)
			outcome.Decision = l.decide(&retry, iteration, maxIterations, lastError)
			result.Outcomes = append(result.Outcomes, outcome)
			if outcome.Decision == DecisionRetry {
				continue
			}
			break
		}
		result.FilesModified = mergePaths(result.FilesModified, written)
		result.Notes = append(result.Notes, out.Notes...)

		vr := spec.Validator.Validate(ctx, spec.ManifestPath)
		iterLog.Info("validation finished", "passed", vr.Success)

		if vr.Success {
			outcome.Validated = true
			outcome.Decision = DecisionStopSuccess
			result.Outcomes = append(result.Outcomes, outcome)
			result.Success = true
			log.Info("phase complete", "iterations", iteration)
			return result
		}

		diagnostic := vr.Diagnostic()
		outcome.Diagnostic = diagnostic

		// Classification takes priority over the retry decision: a systemic
		// failure ends the loop without consulting the operator, even in
		// CONFIRM mode.
		if systemic, explanation := classify.Classify(diagnostic); systemic {
			outcome.Systemic = true
			outcome.Decision = DecisionStopFailure
			result.Outcomes = append(result.Outcomes, outcome)
			iterLog.Error("systemic failure, aborting", "explanation", explanation)
			result.Err = errors.Wrap(errors.CategorySystemic, explanation, errors.ErrSystemic)
			return result
		}

		feedback = diagnostic
		lastError = summarize(vr.Errors, diagnostic)
		outcome.Decision = l.decide(&retry, iteration, maxIterations, lastError)
		result.Outcomes = append(result.Outcomes, outcome)
		if outcome.Decision == DecisionRetry {
			iterLog.Warn("iteration failed, retrying", "error", lastError)
			continue
		}
		break
	}

	msg := fmt.Sprintf("%s loop failed after %d iteration(s)", spec.Phase, result.Iterations)
	if lastError != "" {
		msg += ". Last error: " + lastError
	}
	log.Error("phase failed", "iterations", result.Iterations, "error", lastError)
	result.Err = fmt.Errorf("%s: %w", msg, errors.ErrIterationBudget)
	return result
}

func (l *Loop) decide(retry *policy.Retry, iteration, maxIterations int, lastError string) Decision {
	if retry.ShouldRetry(iteration, maxIterations, lastError) {
		return DecisionRetry
	}
	return DecisionStopFailure
}

// applyFiles writes each generated file through the path guard, enforcing
// the size limit. The first rejection aborts the batch.
func (l *Loop) applyFiles(files []FileChange, maxFileSize int, log *logging.Logger) ([]string, error) {
	var written []string
	for _, f := range files {
		if len(f.Content) > maxFileSize {
			return written, fmt.Errorf("%w: %s is %d bytes (limit %d)",
				errors.ErrOversizedOutput, f.Path, len(f.Content), maxFileSize)
		}

		target, err := l.guard.Resolve(f.Path)
		if err != nil {
			return written, fmt.Errorf("rejected write to %s: %w", f.Path, err)
		}
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, fmt.Errorf("creating parent of %s: %w", target, err)
		}
		if err := os.WriteFile(target, []byte(f.Content), 0644); err != nil {
			return written, fmt.Errorf("writing %s: %w", target, err)
		}

		written = append(written, f.Path)
		log.Info("wrote generated file", "path", f.Path, "bytes", len(f.Content))
	}
	return written, nil
}

func mergePaths(existing, added []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, p := range existing {
		seen[p] = true
	}
	for _, p := range added {
		if !seen[p] {
			existing = append(existing, p)
			seen[p] = true
		}
	}
	return existing
}

func summarize(errorLines []string, diagnostic string) string {
	if len(errorLines) > 0 {
		return errorLines[0]
	}
	if len(diagnostic) > 200 {
		return diagnostic[:200]
	}
	return diagnostic
}
