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

// Developer is the implementation-phase producer: it writes code that makes
// the manifest's behavioral tests pass.
type Developer struct {
	client claudecli.Client
	root   string
	log    *logging.Logger
}

// NewDeveloper builds the implementation producer. root anchors the relative
// paths the manifest names.
func NewDeveloper(client claudecli.Client, root string, log *logging.Logger) *Developer {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Developer{client: client, root: root, log: log}
}

func (d *Developer) Name() string { return "developer" }

func (d *Developer) Produce(ctx context.Context, req workflow.Request) (*workflow.Output, error) {
	m, err := manifest.Load(req.ManifestPath)
	if err != nil {
		return nil, err
	}
	files := m.ModifiableFiles()
	if len(files) == 0 {
		return nil, errors.New("manifest lists no creatable or editable files")
	}

	prompt := fmt.Sprintf(`You are an implementer. Write code that makes the behavioral tests pass.

## Goal

%s

## Expected artifacts

%s

## Files you may write

%s

## Current test output

%s
%s
## Current file contents

%s

Match every artifact signature exactly. %s
`, m.Goal, artifactsSummary(m), fileList(files),
		feedbackSection(req.Feedback), instructionsSection(req.Instructions),
		readFiles(d.root, files), fileFormatRules)

	text, err := generate(ctx, d.client, prompt)
	if err != nil {
		return nil, err
	}

	changes := keepAllowed(extractFileBlocks(text), files)
	if len(changes) == 0 {
		return nil, fmt.Errorf("response contained none of the modifiable files: %s", strings.Join(files, ", "))
	}
	d.log.Debug("implementation generated", "files", len(changes))
	return &workflow.Output{Files: changes}, nil
}
