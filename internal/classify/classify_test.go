package classify

import (
	"strings"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		wantSystemic bool
		wantContains string
	}{
		{
			name:         "module not found",
			output:       "E   ModuleNotFoundError: No module named 'requests'",
			wantSystemic: true,
			wantContains: "Module import failed",
		},
		{
			name:         "collection error",
			output:       "==== ERROR collecting tests/test_auth.py ====",
			wantSystemic: true,
			wantContains: "Test collection failed",
		},
		{
			name:         "import error",
			output:       "ImportError: cannot import name 'Handler'",
			wantSystemic: true,
			wantContains: "Import failed",
		},
		{
			name:         "framework internal error",
			output:       "INTERNALERROR> KeyError: 'node'",
			wantSystemic: true,
			wantContains: "internal error",
		},
		{
			name:         "syntax error in test file",
			output:       "SyntaxError: invalid syntax",
			wantSystemic: true,
			wantContains: "Syntax error",
		},
		{
			name:         "runner configuration error",
			output:       "pytest: error: unrecognized arguments: --covrage",
			wantSystemic: true,
			wantContains: "configuration error",
		},
		{
			name:         "missing test file",
			output:       "ERROR: file or directory not found: tests/test_missing.py",
			wantSystemic: true,
			wantContains: "Test file not found",
		},
		{
			name:         "zero tests collected",
			output:       "no tests ran in 0.01s",
			wantSystemic: true,
			wantContains: "No tests found",
		},
		{
			name:         "timeout",
			output:       "Command timed out after 300 seconds",
			wantSystemic: true,
			wantContains: "timed out",
		},
		{
			name:         "plain assertion failure is not systemic",
			output:       "AssertionError: expected True",
			wantSystemic: false,
		},
		{
			name:         "failing test is not systemic",
			output:       "FAILED tests/test_auth.py::test_login - assert 401 == 200",
			wantSystemic: false,
		},
		{
			name:         "empty output is not systemic",
			output:       "",
			wantSystemic: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			systemic, explanation := Classify(tt.output)
			if systemic != tt.wantSystemic {
				t.Fatalf("Classify() systemic = %v, want %v", systemic, tt.wantSystemic)
			}
			if !tt.wantSystemic {
				if explanation != "" {
					t.Errorf("explanation should be empty for non-systemic output, got %q", explanation)
				}
				return
			}
			if !strings.Contains(explanation, tt.wantContains) {
				t.Errorf("explanation %q should contain %q", explanation, tt.wantContains)
			}
			if !strings.Contains(explanation, "Systemic error detected") {
				t.Errorf("explanation %q should name the systemic detection", explanation)
			}
		})
	}
}

func TestClassifyFirstMatchWins(t *testing.T) {
	// Output matching both the collection and import signatures should be
	// explained by the collection signature, which appears first in the table.
	output := "ERROR collecting tests/test_x.py\nModuleNotFoundError: No module named 'x'"
	systemic, explanation := Classify(output)
	if !systemic {
		t.Fatal("Classify() should flag combined output as systemic")
	}
	if !strings.Contains(explanation, "Test collection failed") {
		t.Errorf("first matching signature should win, got %q", explanation)
	}
}

func TestClassifyTruncatesLongOutput(t *testing.T) {
	output := "timed out: " + strings.Repeat("x", 2000)
	_, explanation := Classify(output)
	if len(explanation) > 700 {
		t.Errorf("explanation should carry at most a %d-byte excerpt, got %d bytes", excerptLimit, len(explanation))
	}
}
