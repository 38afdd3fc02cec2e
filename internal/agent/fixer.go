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

// Fixer repairs an existing implementation: validation violations, failing
// tests, bugs. Same contract as Developer but the prompt frames the work as
// corrective and always includes the current file contents.
type Fixer struct {
	client claudecli.Client
	root   string
	log    *logging.Logger
}

// NewFixer builds the fix-phase producer.
func NewFixer(client claudecli.Client, root string, log *logging.Logger) *Fixer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Fixer{client: client, root: root, log: log}
}

func (f *Fixer) Name() string { return "fixer" }

func (f *Fixer) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	m, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	files := m.ModifiableFiles()
	if len(files) == 0 {
		return nil, errors.New("manifest lists no creatable or editable files")
	}

	prompt := fmt.Sprintf(`You are a bug fixer. The implementation below fails validation. Repair it
without changing its public surface.

## Goal

%s

## Expected artifacts

%s

## Validation and test output

%s
%s
## Files you may fix

%s

## Current file contents

%s

Keep every artifact signature exactly as declared. %s
`, m.Goal, artifactsSummary(m),
		feedbackSection(req.Feedback), instructionsSection(req.Instructions),
		fileList(files), readFiles(f.root, files), fileFormatRules)

	text, err := generate(ctx, f.client, prompt)
	if err != nil {
		return nil, err
	}

	changes := keepAllowed(extractFileBlocks(text), files)
	if len(changes) == 0 {
		return nil, fmt.Errorf("response contained none of the modifiable files: %s", strings.Join(files, ", "))
	}
	f.log.Debug("fix generated", "files", len(changes))
	return &workflow.Output{Files: changes}, nil
}
