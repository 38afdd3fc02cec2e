// Package agent holds the generation adapters, one per workflow phase. Each
// adapter builds a prompt from the manifest and the previous iteration's
// diagnostics, sends it through the claudecli gateway, and parses the
// response into file changes for the loop to apply.
package agent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/errors"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

const nonePlaceholder = "  (none specified)"

// fileFormatRules tells the model how to emit files so extractFileBlocks
// can recover them.
const fileFormatRules = `Respond with every file you create or change in this exact format:

File: <relative/path>
` + "```" + `
<complete file content>
` + "```" + `

Emit the complete content of each file, not a diff. Do not emit files
outside the allowed list.`

// artifactsSummary renders the manifest's expected declarations as the
// bullet list the prompts embed.
func artifactsSummary(m *manifest.Manifest) string {
	var lines []string
	for _, a := range m.ExpectedArtifacts.Contains {
		switch a.Type {
		case "function":
			args := make([]string, 0, len(a.Args))
			for _, arg := range a.Args {
				t := arg.Type
				if t == "" {
					t = "Any"
				}
				args = append(args, fmt.Sprintf("%s: %s", arg.Name, t))
			}
			returns := a.Returns
			if returns == "" {
				returns = "None"
			}
			if a.Class != "" {
				lines = append(lines, fmt.Sprintf("  - Method: %s.%s(%s) -> %s",
					a.Class, a.Name, strings.Join(args, ", "), returns))
			} else {
				lines = append(lines, fmt.Sprintf("  - Function: %s(%s) -> %s",
					a.Name, strings.Join(args, ", "), returns))
			}
		case "class":
			if len(a.Bases) > 0 {
				lines = append(lines, fmt.Sprintf("  - Class: %s(%s)", a.Name, strings.Join(a.Bases, ", ")))
			} else {
				lines = append(lines, fmt.Sprintf("  - Class: %s", a.Name))
			}
		case "attribute":
			if a.Class != "" {
				lines = append(lines, fmt.Sprintf("  - Attribute: %s.%s", a.Class, a.Name))
			} else {
				lines = append(lines, fmt.Sprintf("  - Attribute: %s", a.Name))
			}
		}
	}
	if len(lines) == 0 {
		return nonePlaceholder
	}
	return strings.Join(lines, "\n")
}

func fileList(paths []string) string {
	if len(paths) == 0 {
		return nonePlaceholder
	}
	lines := make([]string, len(paths))
	for i, p := range paths {
		lines[i] = "  - " + p
	}
	return strings.Join(lines, "\n")
}

func feedbackSection(feedback string) string {
	if feedback == "" {
		return "No test failures yet (first iteration)"
	}
	return feedback
}

func instructionsSection(instructions string) string {
	if instructions == "" {
		return ""
	}
	return fmt.Sprintf("\n## Additional Instructions\n\n%s\n", instructions)
}

// readFiles loads each path relative to root, embedding a placeholder for
// files that do not exist yet so the prompt still names them.
func readFiles(root string, paths []string) string {
	var sections []string
	for _, p := range paths {
		full := p
		if !filepath.IsAbs(full) {
			full = filepath.Join(root, p)
		}
		data, err := os.ReadFile(full)
		if err != nil {
			sections = append(sections, fmt.Sprintf("File: %s\n```\n# File not found: %s\n```", p, p))
			continue
		}
		sections = append(sections, fmt.Sprintf("File: %s\n```\n%s\n```", p, strings.TrimRight(string(data), "\n")))
	}
	return strings.Join(sections, "\n\n")
}

// keepAllowed drops extracted files that the manifest does not permit the
// phase to touch.
func keepAllowed(changes []workflow.FileChange, allowed []string) []workflow.FileChange {
	set := make(map[string]bool, len(allowed))
	for _, p := range allowed {
		set[filepath.Clean(p)] = true
	}
	var kept []workflow.FileChange
	for _, c := range changes {
		if set[filepath.Clean(c.Path)] {
			kept = append(kept, c)
		}
	}
	return kept
}

// generate is the shared call-and-check step.
func generate(ctx context.Context, client claudecli.Client, prompt string) (string, error) {
	resp := client.Generate(ctx, prompt)
	if !resp.Success {
		return "", errors.New(resp.Error)
	}
	return resp.Text, nil
}
