// Package errors provides centralized error definitions and classification
// for the ccmaid workflow engine.
//
// Failures are grouped into categories that determine whether the workflow
// loop may retry them. Transient categories (network, filesystem, validation,
// parsing, subprocess) feed back into the retry policy; fatal categories
// (configuration, resource, systemic, unknown) abort the loop and surface an
// actionable suggestion to the operator.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience, so callers can
// import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Category identifies the failure class of a workflow error.
type Category string

const (
	// CategoryNetwork covers transient network and API failures.
	CategoryNetwork Category = "network"
	// CategoryFilesystem covers missing paths and permission failures.
	CategoryFilesystem Category = "filesystem"
	// CategoryValidation covers manifest/test mismatches reported by the gate.
	CategoryValidation Category = "validation"
	// CategoryParsing covers malformed JSON or unparseable agent output.
	CategoryParsing Category = "parsing"
	// CategoryConfiguration covers missing modules and broken environments.
	CategoryConfiguration Category = "configuration"
	// CategoryResource covers memory and disk exhaustion.
	CategoryResource Category = "resource"
	// CategorySubprocess covers external command failures.
	CategorySubprocess Category = "subprocess"
	// CategorySystemic covers harness/timeout/collection failures that no
	// regenerated code can fix.
	CategorySystemic Category = "systemic"
	// CategoryUnknown is the conservative default for unrecognized failures.
	CategoryUnknown Category = "unknown"
)

// Recoverable reports whether a category may be retried by the workflow
// loop. Fatal categories abort immediately.
func (c Category) Recoverable() bool {
	switch c {
	case CategoryNetwork, CategoryFilesystem, CategoryValidation,
		CategoryParsing, CategorySubprocess:
		return true
	case CategoryConfiguration, CategoryResource, CategorySystemic, CategoryUnknown:
		return false
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c Category) String() string { return string(c) }

// Sentinel errors shared across the workflow packages.
var (
	// ErrIterationBudget indicates a loop exhausted its iteration budget.
	ErrIterationBudget = New("iteration budget exhausted")
	// ErrSystemic indicates a failure no regeneration can fix.
	ErrSystemic = New("systemic failure")
	// ErrLoopActive indicates another loop already owns the target file set.
	ErrLoopActive = New("another loop is active on these files")
	// ErrManifestNotFound indicates the manifest file could not be read.
	ErrManifestNotFound = New("manifest not found")
	// ErrOversizedOutput indicates generated content exceeded the size limit.
	ErrOversizedOutput = New("generated content exceeds maximum file size")
)

// WorkflowError carries a categorized failure with user-facing guidance.
type WorkflowError struct {
	Category   Category
	Message    string // user-facing description
	Suggestion string // actionable recovery guidance
	cause      error
}

// Error returns the error message including the cause when present.
func (e *WorkflowError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *WorkflowError) Unwrap() error { return e.cause }

// Recoverable reports whether the error's category may be retried.
func (e *WorkflowError) Recoverable() bool { return e.Category.Recoverable() }

// Wrap builds a categorized WorkflowError around a cause.
func Wrap(category Category, message string, cause error) *WorkflowError {
	return &WorkflowError{
		Category:   category,
		Message:    message,
		Suggestion: defaultSuggestion(category),
		cause:      cause,
	}
}

// Categorize inspects an error's text and assigns it a category with
// user-facing guidance. Already-categorized errors pass through unchanged.
func Categorize(err error) *WorkflowError {
	if err == nil {
		return nil
	}

	var we *WorkflowError
	if As(err, &we) {
		return we
	}

	text := err.Error()
	category := categoryFromText(text)
	return &WorkflowError{
		Category:   category,
		Message:    userMessage(category, text),
		Suggestion: defaultSuggestion(category),
		cause:      err,
	}
}

func categoryFromText(text string) Category {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "connection", "network", "http", "api error", "try again"):
		return CategoryNetwork
	case containsAny(lower, "no such file", "permission denied", "file exists", "is a directory"):
		return CategoryFilesystem
	case containsAny(lower, "invalid character", "unexpected end of json", "cannot unmarshal", "parse error"):
		return CategoryParsing
	case containsAny(lower, "modulenotfounderror", "importerror", "no module named"):
		return CategoryConfiguration
	case containsAny(lower, "out of memory", "no space left", "resource temporarily unavailable"):
		return CategoryResource
	case containsAny(lower, "timed out", "timeout"):
		return CategorySystemic
	case containsAny(lower, "exit status", "signal:", "executable file not found"):
		return CategorySubprocess
	case containsAny(lower, "validation failed", "manifest", "schema"):
		return CategoryValidation
	default:
		return CategoryUnknown
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func userMessage(category Category, text string) string {
	switch category {
	case CategoryNetwork:
		return "Network or API error occurred"
	case CategoryFilesystem:
		return "File system error: " + text
	case CategoryValidation:
		return "Validation error: " + text
	case CategoryParsing:
		return "Parsing error: " + text
	case CategoryConfiguration:
		return "Module import error: " + text
	case CategoryResource:
		return "System resource error occurred"
	case CategorySubprocess:
		return "Command execution error: " + text
	case CategorySystemic:
		return "Systemic error: " + text
	default:
		return "Unexpected error: " + text
	}
}

func defaultSuggestion(category Category) string {
	switch category {
	case CategoryNetwork:
		return "Check your internet connection and API credentials. This error is often transient - try again."
	case CategoryFilesystem:
		return "Check file paths, permissions, and disk space. Ensure all required directories exist."
	case CategoryValidation:
		return "Review the manifest structure and ensure all required fields are present with correct types."
	case CategoryParsing:
		return "Check for malformed JSON or syntax errors in generated files. Review the agent's output."
	case CategoryConfiguration:
		return "Install missing dependencies or check your environment before rerunning."
	case CategoryResource:
		return "Check available memory and disk space. Consider reducing batch sizes or complexity."
	case CategorySubprocess:
		return "Check command syntax and availability. Review the test runner configuration and test file paths."
	case CategorySystemic:
		return "Fix the test harness or environment; regenerating code cannot resolve this failure."
	default:
		return "Review the full diagnostic for details. This may require code changes or debugging."
	}
}
