package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

// TestGenerator runs the reverse workflow: given an implementation that
// already exists, it writes behavioral tests for it. Stub test files (mostly
// pass/assert True placeholders) are treated as absent and replaced.
type TestGenerator struct {
	client claudecli.Client
	root   string
	log    *logging.Logger
}

// NewTestGenerator builds the reverse-workflow producer.
func NewTestGenerator(client claudecli.Client, root string, log *logging.Logger) *TestGenerator {
	if log == nil {
		log = logging.NopLogger()
	}
	return &TestGenerator{client: client, root: root, log: log}
}

func (g *TestGenerator) Name() string { return "test generator" }

func (g *TestGenerator) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	m, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	implFiles := m.ModifiableFiles()
	if len(implFiles) == 0 {
		return nil, errors.New("manifest lists no implementation files")
	}

	testPath := g.testPathFor(m)
	existing := g.describeExisting(testPath)

	prompt := fmt.Sprintf(`You are a test designer working backwards: the implementation already
exists and needs behavioral tests. Test observable behavior only, never
internals. Every expected artifact must have at least one test.

## Goal

%s

## Expected artifacts

%s

## Implementation

%s

## Existing tests

%s
%s
## Test file to write

  - %s

%s
`, m.Goal, artifactsSummary(m), readFiles(g.root, implFiles),
		existing, instructionsSection(req.Instructions), testPath, fileFormatRules)

	text, err := generate(ctx, g.client, prompt)
	if err != nil {
		return nil, err
	}

	changes := keepAllowed(extractFileBlocks(text), []string{testPath})
	if len(changes) == 0 {
		return nil, fmt.Errorf("response did not contain the test file %s", testPath)
	}
	g.log.Debug("tests generated", "path", testPath)
	return &workflow.Output{Files: changes}, nil
}

// testPathFor pulls the test path out of the validation command, falling
// back to the tests/test_<slug>.py convention.
func (g *TestGenerator) testPathFor(m *manifest.Manifest) string {
	for _, part := range m.ValidationCommand {
		if strings.Contains(part, "test_") && strings.Contains(part, ".py") {
			return part
		}
	}
	return filepath.Join("tests", "test_"+manifest.Slugify(m.Goal)+".py")
}

// describeExisting summarizes the current test file for the prompt. A file
// where half or more of the tests are stubs counts as a placeholder to be
// replaced rather than extended.
func (g *TestGenerator) describeExisting(testPath string) string {
	full := testPath
	if !filepath.IsAbs(full) {
		full = filepath.Join(g.root, testPath)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "(no test file exists yet)"
	}
	code := string(data)

	testCount := strings.Count(code, "def test_")
	stubHits := strings.Count(code, "pass") + strings.Count(code, "assert True") + strings.Count(code, "...")
	if testCount > 0 && float64(stubHits) >= float64(testCount)/2 {
		return fmt.Sprintf("The current file is a stub (%d placeholder tests). Replace it entirely.\n\n%s",
			testCount, readFiles(g.root, []string{testPath}))
	}
	return readFiles(g.root, []string{testPath}) + "\n\nExtend these tests; keep the ones that already assert real behavior."
}
