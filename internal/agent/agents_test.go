package agent

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/maidkit/ccmaid/internal/agent/claudecli"
	"github.com/maidkit/ccmaid/internal/logging"
	"github.com/maidkit/ccmaid/internal/manifest"
	"github.com/maidkit/ccmaid/internal/workflow"
)

func writeSampleManifest(t *testing.T, root string) string {
	t.Helper()
	m := &manifest.Manifest{
		Goal:           "Add a calculator module",
		CreatableFiles: []string{"calculator.py"},
		ReadonlyFiles:  []string{"tests/test_calculator.py"},
		ExpectedArtifacts: manifest.ExpectedArtifacts{
			File: "calculator.py",
			Contains: []manifest.Artifact{
				{Type: "function", Name: "add",
					Args:    []manifest.Arg{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
					Returns: "int"},
			},
		},
		ValidationCommand: []string{"pytest", "tests/test_calculator.py", "-v"},
	}
	path := filepath.Join(root, "task-001-add-a-calculator-module.manifest.json")
	if err := m.Save(path); err != nil {
		t.Fatal(err)
	}
	return path
}

func fileBlock(path, content string) string {
	return "File: " + path + "\n```python\n" + content + "\n```\n"
}

func TestDeveloperProduce(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)

	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text: "Implemented the module.\n\n" +
			fileBlock("calculator.py", "def add(a, b):\n    return a + b") +
			fileBlock("sneaky.py", "import os"),
	})
	dev := NewDeveloper(mock, root, logging.NopLogger())

	out, err := dev.Produce(context.Background(), workflow.Request{
		ManifestPath: manifestPath,
		Feedback:     "FAILED test_add - NameError: add",
	})
	if err != nil {
		t.Fatalf("Produce() = %v", err)
	}
	if len(out.Files) != 1 || out.Files[0].Path != "calculator.py" {
		t.Fatalf("Files = %+v, want only calculator.py", out.Files)
	}

	prompt := mock.Prompts[0]
	for _, want := range []string{
		"Add a calculator module",
		"add(a: int, b: int) -> int",
		"FAILED test_add",
		"calculator.py",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestDeveloperFirstIterationHasNoFailures(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)
	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text:    fileBlock("calculator.py", "def add(a, b):\n    return a + b"),
	})

	if _, err := NewDeveloper(mock, root, nil).Produce(context.Background(), workflow.Request{ManifestPath: manifestPath}); err != nil {
		t.Fatalf("Produce() = %v", err)
	}
	if !strings.Contains(mock.Prompts[0], "No test failures yet") {
		t.Error("prompt missing first-iteration placeholder")
	}
}

func TestDeveloperSurfacesGenerationFailure(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)
	mock := claudecli.NewMockClient(claudecli.Response{
		Success: false,
		Error:   "agent CLI timed out after 5m0s",
	})

	_, err := NewDeveloper(mock, root, nil).Produce(context.Background(), workflow.Request{ManifestPath: manifestPath})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Produce() = %v, want timeout error passed through", err)
	}
}

func TestDeveloperRejectsResponseWithoutAllowedFiles(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)
	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text:    "I think the code already looks correct.",
	})

	_, err := NewDeveloper(mock, root, nil).Produce(context.Background(), workflow.Request{ManifestPath: manifestPath})
	if err == nil || !strings.Contains(err.Error(), "none of the modifiable files") {
		t.Fatalf("Produce() = %v, want missing-files error", err)
	}
}

func TestPlannerProduce(t *testing.T) {
	manifestJSON := `{
  "goal": "Add a calculator module",
  "creatableFiles": ["calculator.py"],
  "readonlyFiles": ["tests/test_calculator.py"],
  "expectedArtifacts": {"file": "calculator.py", "contains": [
    {"type": "function", "name": "add", "returns": "int"}
  ]},
  "validationCommand": ["pytest", "tests/test_calculator.py", "-v"]
}`
	wantManifestPath := filepath.Join("manifests", manifest.TaskFileName(1, "Add a calculator module"))

	mock := claudecli.NewMockClient(
		claudecli.Response{Success: true, Text: "File: " + wantManifestPath + "\n```json\n" + manifestJSON + "\n```\n"},
		claudecli.Response{Success: true, Text: fileBlock("tests/test_calculator.py", "def test_add():\n    assert add(1, 2) == 3")},
	)
	planner := NewPlanner(mock, "Add a calculator module", "manifests", 1, logging.NopLogger())

	out, err := planner.Produce(context.Background(), workflow.Request{})
	if err != nil {
		t.Fatalf("Produce() = %v", err)
	}
	if len(out.Files) != 2 {
		t.Fatalf("Files = %+v, want manifest plus test file", out.Files)
	}
	if out.Files[0].Path != wantManifestPath {
		t.Errorf("manifest path = %q, want %q", out.Files[0].Path, wantManifestPath)
	}
	if !strings.HasSuffix(out.Files[0].Path, ".manifest.json") {
		t.Errorf("manifest path %q missing suffix", out.Files[0].Path)
	}
	if out.Files[1].Path != "tests/test_calculator.py" {
		t.Errorf("test path = %q, want tests/test_calculator.py", out.Files[1].Path)
	}
	if len(mock.Prompts) != 2 {
		t.Fatalf("prompts = %d, want 2 (manifest then tests)", len(mock.Prompts))
	}
	if !strings.Contains(mock.Prompts[1], "must fail until") {
		t.Error("test prompt does not demand red-phase tests")
	}
}

func TestPlannerRejectsInvalidManifestJSON(t *testing.T) {
	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text:    "File: manifests/task-001-x.manifest.json\n```json\n{not json\n```\n",
	})
	planner := NewPlanner(mock, "x", "manifests", 1, nil)

	_, err := planner.Produce(context.Background(), workflow.Request{})
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Fatalf("Produce() = %v, want JSON parse error", err)
	}
}

func TestRefactorerNotes(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)

	t.Run("extracts improvements", func(t *testing.T) {
		mock := claudecli.NewMockClient(claudecli.Response{
			Success: true,
			Text: "## Improvements\n\n- extracted a helper\n- tightened naming\n\n" +
				fileBlock("calculator.py", "def add(a, b):\n    return a + b"),
		})
		out, err := NewRefactorer(mock, root, nil).Produce(context.Background(), workflow.Request{ManifestPath: manifestPath})
		if err != nil {
			t.Fatalf("Produce() = %v", err)
		}
		if len(out.Notes) != 2 || out.Notes[0] != "extracted a helper" {
			t.Errorf("Notes = %v, want the two improvements", out.Notes)
		}
	})

	t.Run("falls back to generic note", func(t *testing.T) {
		mock := claudecli.NewMockClient(claudecli.Response{
			Success: true,
			Text:    fileBlock("calculator.py", "def add(a, b):\n    return a + b"),
		})
		out, err := NewRefactorer(mock, root, nil).Produce(context.Background(), workflow.Request{ManifestPath: manifestPath})
		if err != nil {
			t.Fatalf("Produce() = %v", err)
		}
		if len(out.Notes) != 1 || out.Notes[0] != "Code quality improvements applied" {
			t.Errorf("Notes = %v, want generic fallback", out.Notes)
		}
	})
}

func TestTestGeneratorPathFromValidationCommand(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)

	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text:    fileBlock("tests/test_calculator.py", "def test_add():\n    assert add(1, 2) == 3"),
	})
	gen := NewTestGenerator(mock, root, nil)

	out, err := gen.Produce(context.Background(), workflow.Request{ManifestPath: manifestPath})
	if err != nil {
		t.Fatalf("Produce() = %v", err)
	}
	if len(out.Files) != 1 || out.Files[0].Path != "tests/test_calculator.py" {
		t.Fatalf("Files = %+v, want the validation command's test path", out.Files)
	}
	if !strings.Contains(mock.Prompts[0], "no test file exists yet") {
		t.Error("prompt missing absent-test notice")
	}
}

func TestPlanReviewerNotes(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)

	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text: "## Issues\n\n- add() has no negative-number test\n\n" +
			"## Improvements\n\n- added edge-case test\n\n" +
			fileBlock("tests/test_calculator.py", "def test_add_negative():\n    assert add(-1, 1) == 0"),
	})
	out, err := NewPlanReviewer(mock, root, nil).Produce(context.Background(), workflow.Request{ManifestPath: manifestPath})
	if err != nil {
		t.Fatalf("Produce() = %v", err)
	}
	if len(out.Notes) != 2 {
		t.Fatalf("Notes = %v, want issue plus improvement", out.Notes)
	}
	if !strings.HasPrefix(out.Notes[0], "issue: ") {
		t.Errorf("Notes[0] = %q, want issue prefix", out.Notes[0])
	}
	if len(out.Files) != 1 || out.Files[0].Path != "tests/test_calculator.py" {
		t.Errorf("Files = %+v, want corrected test file", out.Files)
	}
}

func TestFixerIncludesCurrentCode(t *testing.T) {
	root := t.TempDir()
	manifestPath := writeSampleManifest(t, root)
	if err := os.WriteFile(filepath.Join(root, "calculator.py"), []byte("def add(a, b):\n    return a - b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	mock := claudecli.NewMockClient(claudecli.Response{
		Success: true,
		Text:    fileBlock("calculator.py", "def add(a, b):\n    return a + b"),
	})
	out, err := NewFixer(mock, root, nil).Produce(context.Background(), workflow.Request{
		ManifestPath: manifestPath,
		Feedback:     "FAILED test_add - assert -1 == 3",
	})
	if err != nil {
		t.Fatalf("Produce() = %v", err)
	}
	if len(out.Files) != 1 {
		t.Fatalf("Files = %+v, want the fixed file", out.Files)
	}
	if !strings.Contains(mock.Prompts[0], "return a - b") {
		t.Error("prompt missing the broken current code")
	}
	if !strings.Contains(mock.Prompts[0], "assert -1 == 3") {
		t.Error("prompt missing the failure feedback")
	}
}
