package manifest

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const maxSlugLength = 40

var (
	taskFilePattern = regexp.MustCompile(`^task-(\d+)(?:-.*)?\.manifest\.json$`)
	slugStrip       = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSeparators  = regexp.MustCompile(`[\s-]+`)
)

// NextTaskNumber scans dir for task-NNN manifests and returns one past the
// highest number found. An absent or empty directory yields 1.
func NextTaskNumber(dir string) int {
	matches, err := filepath.Glob(filepath.Join(dir, "task-*.manifest.json"))
	if err != nil || len(matches) == 0 {
		return 1
	}

	max := 0
	for _, m := range matches {
		groups := taskFilePattern.FindStringSubmatch(filepath.Base(m))
		if groups == nil {
			continue
		}
		n, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1
}

// TaskFileName builds the canonical manifest filename for a task:
// task-NNN-<slug>.manifest.json.
func TaskFileName(taskNumber int, goal string) string {
	slug := Slugify(goal)
	if slug == "" {
		return fmt.Sprintf("task-%03d.manifest.json", taskNumber)
	}
	return fmt.Sprintf("task-%03d-%s.manifest.json", taskNumber, slug)
}

// Slugify converts a goal description to a filename-safe slug: lowercase,
// alphanumerics and hyphens only, separators collapsed, length capped.
func Slugify(goal string) string {
	s := strings.ToLower(strings.TrimSpace(goal))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugLength {
		s = s[:maxSlugLength]
		s = strings.TrimRight(s, "-")
	}
	return s
}
