package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

// Planner is the planning-phase producer. One pass creates the task manifest
// from the goal and then behavioral tests from that manifest, so a single
// loop iteration yields the complete red-phase plan.
type Planner struct {
	client      claudecli.Client
	goal        string
	manifestDir string
	taskNumber  int
	log         *logging.Logger
}

// NewPlanner builds the planning producer. taskNumber fixes the manifest
// file name; callers derive it with manifest.NextTaskNumber.
func NewPlanner(client claudecli.Client, goal, manifestDir string, taskNumber int, log *logging.Logger) *Planner {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Planner{
		client:      client,
		goal:        goal,
		manifestDir: manifestDir,
		taskNumber:  taskNumber,
		log:         log,
	}
}

func (p *Planner) Name() string { return "planner" }

// Produce creates the manifest and its behavioral tests.
func (p *Planner) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	manifestPath, m, err := p.createManifest(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}

	tests, err := p.createTests(ctx, m)
	if err != nil {
		return nil, err
	}

	out := &workflow.Output{
		Files: append([]workflow.FileChange{
			{Path: manifestPath, Content: string(data) + "\n"},
		}, tests...),
	}
	return out, nil
}

func (p *Planner) createManifest(ctx context.Context, req workflow.Request) (string, *manifest.Manifest, error) {
	manifestPath := filepath.Join(p.manifestDir, manifest.TaskFileName(p.taskNumber, p.goal))
	p.log.Debug("creating manifest", "path", manifestPath)

	prompt := fmt.Sprintf(`You are a planning assistant that turns a goal into a task manifest.

## Goal

%s
%s%s
## Output

Produce a single JSON manifest with these fields: goal, description,
taskType, creatableFiles, editableFiles, readonlyFiles, expectedArtifacts
(file plus a contains list of function/class/attribute declarations), and
validationCommand (a pytest invocation of the behavioral test file as an
argv list). List the behavioral test file under readonlyFiles.

%s

File: %s
`, p.goal, retrySection(req.Feedback), instructionsSection(req.Instructions), fileFormatRules, manifestPath)

	text, err := generate(ctx, p.client, prompt)
	if err != nil {
		return "", nil, err
	}

	for _, change := range extractFileBlocks(text) {
		if !strings.HasSuffix(change.Path, ".manifest.json") {
			continue
		}
		var m manifest.Manifest
		if err := json.Unmarshal([]byte(change.Content), &m); err != nil {
			return "", nil, errors.Wrap(errors.CategoryParsing, "generated manifest is not valid JSON", err)
		}
		if m.Goal == "" {
			m.Goal = p.goal
		}
		return manifestPath, &m, nil
	}
	return "", nil, errors.New("response contained no manifest file")
}

func (p *Planner) createTests(ctx context.Context, m *manifest.Manifest) ([]workflow.FileChange, error) {
	testPaths := testFilesOf(m)
	if len(testPaths) == 0 {
		return nil, errors.New("manifest names no behavioral test file in readonlyFiles")
	}
	p.log.Debug("creating behavioral tests", "files", strings.Join(testPaths, ", "))

	prompt := fmt.Sprintf(`You are a test designer. Write behavioral tests for the task below.
The tests run before any implementation exists and must fail until the
implementation is complete. Test observable behavior only, never internals.

## Goal

%s

## Expected artifacts

%s

## Test files to write

%s

%s
`, m.Goal, artifactsSummary(m), fileList(testPaths), fileFormatRules)

	text, err := generate(ctx, p.client, prompt)
	if err != nil {
		return nil, err
	}

	tests := keepAllowed(extractFileBlocks(text), testPaths)
	if len(tests) == 0 {
		return nil, fmt.Errorf("response contained none of the expected test files: %s", strings.Join(testPaths, ", "))
	}
	return tests, nil
}

func retrySection(feedback string) string {
	if feedback == "" {
		return ""
	}
	return fmt.Sprintf("\n## Previous attempt failed validation\n\n%s\n", feedback)
}

// testFilesOf picks the behavioral test files out of the manifest's
// read-only set.
func testFilesOf(m *manifest.Manifest) []string {
	var paths []string
	for _, f := range m.ReadonlyFiles {
		if strings.Contains(filepath.Base(f), "test_") {
			paths = append(paths, f)
		}
	}
	return paths
}
