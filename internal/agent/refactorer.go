package agent

import (
	"context"
	"fmt"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

// Refactorer improves code quality after the tests already pass. It must not
// change behavior; the loop's validator re-runs the tests to prove that.
type Refactorer struct {
	client claudecli.Client
	root   string
	log    *logging.Logger
}

// NewRefactorer builds the refactoring producer.
func NewRefactorer(client claudecli.Client, root string, log *logging.Logger) *Refactorer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Refactorer{client: client, root: root, log: log}
}

func (r *Refactorer) Name() string { return "refactorer" }

func (r *Refactorer) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	m, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	files := m.ModifiableFiles()
	if len(files) == 0 {
		return nil, errors.New("manifest lists no creatable or editable files")
	}

	prompt := fmt.Sprintf(`You are a refactorer. The code below passes its behavioral tests. Improve
its readability, naming, and structure without changing any behavior or any
artifact signature.
%s%s
## Goal

%s

## Current file contents

%s

First list the improvements you made as bullets under an "## Improvements"
heading, then emit the refactored files. %s
`, retrySection(req.Feedback), instructionsSection(req.Instructions),
		m.Goal, readFiles(r.root, files), fileFormatRules)

	text, err := generate(ctx, r.client, prompt)
	if err != nil {
		return nil, err
	}

	changes := keepAllowed(extractFileBlocks(text), files)
	notes := extractBullets(text, "improvements")
	if len(notes) == 0 {
		notes = []string{"Code quality improvements applied"}
	}
	r.log.Debug("refactoring generated", "files", len(changes), "improvements", len(notes))
	return &workflow.Output{Files: changes, Notes: notes}, nil
}
