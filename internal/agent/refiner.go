package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

// Refiner reworks an existing manifest and its behavioral tests toward a
// refinement goal. It is the only producer allowed to rewrite the manifest
// itself.
type Refiner struct {
	client claudecli.Client
	goal   string
	root   string
	log    *logging.Logger
}

// NewRefiner builds the refinement producer. goal states what the operator
// wants improved about the plan.
func NewRefiner(client claudecli.Client, goal, root string, log *logging.Logger) *Refiner {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Refiner{client: client, goal: goal, root: root, log: log}
}

func (r *Refiner) Name() string { return "refiner" }

func (r *Refiner) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	m, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	testPaths := testFilesOf(m)
	if len(testPaths) == 0 {
		return nil, errors.New("manifest names no behavioral test file in readonlyFiles")
	}

	// File categorization problems go into the feedback so the refinement
	// can correct them along with whatever else failed.
	feedback := req.Feedback
	if warnings, checkErr := m.Check(r.root); checkErr != nil || len(warnings) > 0 {
		var problems []string
		if checkErr != nil {
			problems = append(problems, checkErr.Error())
		}
		problems = append(problems, warnings...)
		section := "FILE CATEGORIZATION ERRORS:\n" + strings.Join(problems, "\n")
		if feedback == "" {
			feedback = section
		} else {
			feedback += "\n\n" + section
		}
	}

	allowed := append([]string{req.ManifestPath}, testPaths...)
	prompt := fmt.Sprintf(`You are refining a task plan. Improve the manifest and its behavioral tests
to satisfy the refinement goal. Keep the tests behavioral: observable
behavior only, never internals.

## Refinement goal

%s

## Validation feedback

%s
%s
## Current plan

%s

%s

First list your changes as bullets under an "## Improvements" heading, then
emit every file you changed. %s
`, r.goal, feedbackSection(feedback), instructionsSection(req.Instructions),
		readFiles(r.root, allowed), fmt.Sprintf("Files you may rewrite:\n%s", fileList(allowed)),
		fileFormatRules)

	text, err := generate(ctx, r.client, prompt)
	if err != nil {
		return nil, err
	}

	changes := keepAllowed(extractFileBlocks(text), allowed)
	if len(changes) == 0 {
		return nil, errors.New("response changed none of the plan files")
	}
	notes := extractBullets(text, "improvements")
	r.log.Debug("refinement generated", "files", len(changes), "improvements", len(notes))
	return &workflow.Output{Files: changes, Notes: notes}, nil
}
