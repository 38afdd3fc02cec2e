package agent

import (
	"strings"
	"testing"
)

func TestExtractFileBlocks(t *testing.T) {
	t.Run("multiple files with prose", func(t *testing.T) {
		response := "Here is the implementation.\n\n" +
			"File: calculator.py\n" +
			"```python\n" +
			"def add(a, b):\n" +
			"    return a + b\n" +
			"```\n\n" +
			"And the package marker:\n\n" +
			"File: __init__.py\n" +
			"```\n" +
			"```\n"

		changes := extractFileBlocks(response)
		if len(changes) != 2 {
			t.Fatalf("got %d changes, want 2", len(changes))
		}
		if changes[0].Path != "calculator.py" {
			t.Errorf("path = %q, want calculator.py", changes[0].Path)
		}
		if !strings.Contains(changes[0].Content, "return a + b") {
			t.Errorf("content = %q, want function body", changes[0].Content)
		}
		if !strings.HasSuffix(changes[0].Content, "\n") {
			t.Error("content missing trailing newline")
		}
		if changes[1].Path != "__init__.py" {
			t.Errorf("path = %q, want __init__.py", changes[1].Path)
		}
	})

	t.Run("heading and backtick decorations", func(t *testing.T) {
		response := "### File: `tests/test_x.py`\n```python\nassert True\n```\n"
		changes := extractFileBlocks(response)
		if len(changes) != 1 || changes[0].Path != "tests/test_x.py" {
			t.Fatalf("changes = %+v, want tests/test_x.py", changes)
		}
	})

	t.Run("bare mention without block is skipped", func(t *testing.T) {
		response := "I also looked at File: other.py but left it alone.\n\n" +
			"File: main.py\n```\nx = 1\n```\n"
		changes := extractFileBlocks(response)
		if len(changes) != 1 || changes[0].Path != "main.py" {
			t.Fatalf("changes = %+v, want only main.py", changes)
		}
	})

	t.Run("unclosed fence yields nothing", func(t *testing.T) {
		response := "File: broken.py\n```python\ndef f():\n    pass\n"
		if changes := extractFileBlocks(response); len(changes) != 0 {
			t.Fatalf("changes = %+v, want none", changes)
		}
	})
}

func TestExtractBullets(t *testing.T) {
	response := `Summary of the pass.

## Issues

- missing type hints
* vague test for add()
1. duplicate artifact entry

## Improvements

- renamed helper
Some prose that is not a bullet.
`

	issues := extractBullets(response, "issues")
	want := []string{"missing type hints", "vague test for add()", "duplicate artifact entry"}
	if len(issues) != len(want) {
		t.Fatalf("issues = %v, want %v", issues, want)
	}
	for i := range want {
		if issues[i] != want[i] {
			t.Errorf("issues[%d] = %q, want %q", i, issues[i], want[i])
		}
	}

	improvements := extractBullets(response, "improvements")
	if len(improvements) != 1 || improvements[0] != "renamed helper" {
		t.Errorf("improvements = %v, want [renamed helper]", improvements)
	}

	all := extractBullets(response, "")
	if len(all) != 4 {
		t.Errorf("unsectioned bullets = %v, want 4 items", all)
	}
}
