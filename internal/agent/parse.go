package agent

import (
	"strings"

	"github.com/maidkit/ccmaid/internal/workflow"
)

// extractFileBlocks parses a generation response into file changes. The
// prompts ask for each file as a "File: <path>" line followed by a fenced
// code block; anything outside that shape is commentary and ignored.
func extractFileBlocks(text string) []workflow.FileChange {
	var changes []workflow.FileChange
	lines := strings.Split(text, "\n")

	for i := 0; i < len(lines); i++ {
		path := filePathFromLine(lines[i])
		if path == "" {
			continue
		}

		// The fence must open on one of the next two lines; a bare
		// "File: x" mention in prose has no block and is skipped.
		fenceAt := -1
		for j := i + 1; j < len(lines) && j <= i+2; j++ {
			if strings.HasPrefix(strings.TrimSpace(lines[j]), "```") {
				fenceAt = j
				break
			}
			if strings.TrimSpace(lines[j]) != "" {
				break
			}
		}
		if fenceAt == -1 {
			continue
		}

		var body []string
		closed := false
		k := fenceAt + 1
		for ; k < len(lines); k++ {
			if strings.TrimSpace(lines[k]) == "```" {
				closed = true
				break
			}
			body = append(body, lines[k])
		}
		if !closed {
			break
		}

		content := strings.Join(body, "\n")
		if !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		changes = append(changes, workflow.FileChange{Path: path, Content: content})
		i = k
	}
	return changes
}

func filePathFromLine(line string) string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, "### ")
	trimmed = strings.TrimPrefix(trimmed, "## ")
	for _, marker := range []string{"File: ", "FILE: ", "file: "} {
		if strings.HasPrefix(trimmed, marker) {
			path := strings.TrimSpace(strings.TrimPrefix(trimmed, marker))
			path = strings.Trim(path, "`*")
			if path != "" && !strings.ContainsAny(path, " \t") {
				return path
			}
		}
	}
	return ""
}

// extractBullets collects bullet or numbered list items from a response
// section. An empty heading collects from the whole response.
func extractBullets(text, heading string) []string {
	var items []string
	inSection := heading == ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		if heading != "" && strings.HasPrefix(line, "##") {
			inSection = strings.Contains(strings.ToLower(line), strings.ToLower(heading))
			continue
		}
		if !inSection {
			continue
		}

		if item, ok := bulletItem(line); ok && item != "" {
			items = append(items, item)
		}
	}
	return items
}

func bulletItem(line string) (string, bool) {
	switch {
	case strings.HasPrefix(line, "- "), strings.HasPrefix(line, "* "):
		return strings.TrimSpace(line[2:]), true
	case len(line) > 2 && line[0] >= '0' && line[0] <= '9' && (line[1] == '.' || line[1] == ')'):
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}
