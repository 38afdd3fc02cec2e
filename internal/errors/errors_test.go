package errors

import (
	"fmt"
	"testing"
)

func TestCategoryRecoverable(t *testing.T) {
	recoverable := []Category{
		CategoryNetwork, CategoryFilesystem, CategoryValidation,
		CategoryParsing, CategorySubprocess,
	}
	fatal := []Category{
		CategoryConfiguration, CategoryResource, CategorySystemic, CategoryUnknown,
	}

	for _, c := range recoverable {
		if !c.Recoverable() {
			t.Errorf("%s should be recoverable", c)
		}
	}
	for _, c := range fatal {
		if c.Recoverable() {
			t.Errorf("%s should not be recoverable", c)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Category
	}{
		{
			name: "network failure",
			err:  New("connection refused while calling API"),
			want: CategoryNetwork,
		},
		{
			name: "missing file",
			err:  New("open manifests/task-001.manifest.json: no such file or directory"),
			want: CategoryFilesystem,
		},
		{
			name: "malformed json",
			err:  New("invalid character '}' looking for beginning of value"),
			want: CategoryParsing,
		},
		{
			name: "module missing",
			err:  New("ModuleNotFoundError: No module named 'pytest'"),
			want: CategoryConfiguration,
		},
		{
			name: "disk full",
			err:  New("write /tmp/x: no space left on device"),
			want: CategoryResource,
		},
		{
			name: "timeout",
			err:  New("command timed out after 300 seconds"),
			want: CategorySystemic,
		},
		{
			name: "subprocess",
			err:  New("running pytest: exit status 2"),
			want: CategorySubprocess,
		},
		{
			name: "manifest mismatch",
			err:  New("validation failed: expected artifact create_user missing"),
			want: CategoryValidation,
		},
		{
			name: "anything else",
			err:  New("something inexplicable happened"),
			want: CategoryUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			we := Categorize(tt.err)
			if we.Category != tt.want {
				t.Errorf("Categorize(%v).Category = %s, want %s", tt.err, we.Category, tt.want)
			}
			if we.Suggestion == "" {
				t.Error("categorized error should carry a suggestion")
			}
			if !Is(we, tt.err) {
				t.Error("categorized error should wrap the original")
			}
		})
	}
}

func TestCategorizeNil(t *testing.T) {
	if Categorize(nil) != nil {
		t.Error("Categorize(nil) should return nil")
	}
}

func TestCategorizePassesThroughWorkflowError(t *testing.T) {
	original := Wrap(CategorySystemic, "harness broken", ErrSystemic)
	wrapped := fmt.Errorf("loop failed: %w", original)

	got := Categorize(wrapped)
	if got != original {
		t.Error("Categorize should return the embedded WorkflowError unchanged")
	}
}

func TestWorkflowErrorMessage(t *testing.T) {
	we := Wrap(CategorySubprocess, "running tests", New("exit status 1"))
	if we.Error() != "running tests: exit status 1" {
		t.Errorf("Error() = %q", we.Error())
	}
	if we.Recoverable() != true {
		t.Error("subprocess errors should be recoverable")
	}
	if !Is(we, we.Unwrap()) {
		t.Error("Is should match the wrapped cause")
	}
}
