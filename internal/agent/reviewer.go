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

// PlanReviewer audits a manifest and its behavioral tests before the
// implementation phase runs. It reports issues and improvements and may
// rewrite the plan files to address what it found.
type PlanReviewer struct {
	client claudecli.Client
	root   string
	log    *logging.Logger
}

// NewPlanReviewer builds the review producer.
func NewPlanReviewer(client claudecli.Client, root string, log *logging.Logger) *PlanReviewer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &PlanReviewer{client: client, root: root, log: log}
}

func (r *PlanReviewer) Name() string { return "plan reviewer" }

func (r *PlanReviewer) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	m, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	testPaths := testFilesOf(m)
	if len(testPaths) == 0 {
		return nil, errors.New("manifest names no behavioral test file in readonlyFiles")
	}

	allowed := append([]string{req.ManifestPath}, testPaths...)
	prompt := fmt.Sprintf(`You are reviewing a task plan before implementation starts. Check that the
manifest's artifacts cover the goal, the file categorization is coherent,
and the tests assert observable behavior for every artifact.
%s%s
## Plan under review

%s

Report what you found as bullets under an "## Issues" heading and an
"## Improvements" heading. If a file needs correcting, also emit the
corrected file. %s
`, retrySection(req.Feedback), instructionsSection(req.Instructions),
		readFiles(r.root, allowed), fileFormatRules)

	text, err := generate(ctx, r.client, prompt)
	if err != nil {
		return nil, err
	}

	issues := extractBullets(text, "issues")
	improvements := extractBullets(text, "improvements")
	if len(improvements) == 0 {
		lower := strings.ToLower(text)
		if strings.Contains(lower, "no issues") || strings.Contains(lower, "looks good") {
			improvements = []string{"Plan review passed, no improvements needed"}
		} else {
			improvements = []string{"Plan review completed"}
		}
	}

	notes := make([]string, 0, len(issues)+len(improvements))
	for _, issue := range issues {
		notes = append(notes, fmt.Sprintf("issue: %s", issue))
	}
	notes = append(notes, improvements...)

	changes := keepAllowed(extractFileBlocks(text), allowed)
	r.log.Debug("plan reviewed", "issues", len(issues), "files_corrected", len(changes))
	return &workflow.Output{Files: changes, Notes: notes}, nil
}
