// Package classify detects systemic failures in validation output.
//
// A systemic failure is one that cannot be fixed by generating different
// implementation code: a broken test harness, a missing dependency, a syntax
// error in a test file, or a timeout. Workflow loops abort immediately on a
// systemic diagnosis instead of burning retry budget on it.
package classify

import "strings"

// excerptLimit bounds how much raw output is echoed back in an explanation.
const excerptLimit = 500

// signature pairs a substring that marks a systemic failure with the
// guidance shown to the user. Order matters: the first match wins.
type signature struct {
	pattern string
	message string
}

var signatures = []signature{
	{"ERROR collecting", "Test collection failed - check test file imports and syntax"},
	{"ModuleNotFoundError", "Module import failed - check PYTHONPATH or missing dependencies"},
	{"ImportError", "Import failed - check module availability"},
	{"INTERNALERROR", "Test framework internal error - check test framework setup"},
	{"SyntaxError", "Syntax error in test file - fix test file syntax"},
	{"pytest: error:", "Test runner configuration error - check pytest setup"},
	{"No module named 'pytest'", "pytest not installed - install test framework"},
	{"file or directory not found", "Test file not found - check test file path in manifest"},
	{"no tests ran", "No tests found - check test file path and test discovery"},
	{"timed out", "Operation timed out - check network connection or increase timeout"},
	{"agent CLI timed out", "Generation tool timed out - check network connection or increase timeout"},
	{"TimeoutExpired", "Command timed out - check system resources or increase timeout"},
}

// Classify reports whether the diagnostic text matches a known systemic
// failure signature. When it does, the returned explanation names the
// failure and includes an excerpt of the raw output. No match means the
// failure is assumed fixable by regeneration.
func Classify(output string) (bool, string) {
	for _, sig := range signatures {
		if strings.Contains(output, sig.pattern) {
			return true, "Systemic error detected: " + sig.message + "\n\nFull output:\n" + excerpt(output)
		}
	}
	return false, ""
}

func excerpt(output string) string {
	if len(output) <= excerptLimit {
		return output
	}
	return output[:excerptLimit]
}
