// Package manifest models the JSON work-unit document driving each workflow
// phase: the goal, the file permissions, the artifacts the implementation
// must expose, and the command that validates it.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/maidkit/ccmaid/internal/errors"
)

// Arg describes one parameter of an expected function artifact.
type Arg struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Artifact describes one declaration the implementation must contain:
// a function, class, method, or attribute.
type Artifact struct {
	Type          string   `json:"type"`
	Name          string   `json:"name"`
	Args          []Arg    `json:"args,omitempty"`
	Returns       string   `json:"returns,omitempty"`
	Class         string   `json:"class,omitempty"`
	Bases         []string `json:"bases,omitempty"`
	AttributeType string   `json:"attributeType,omitempty"`
	Description   string   `json:"description,omitempty"`
}

// ExpectedArtifacts names the target file and the declarations it must hold.
type ExpectedArtifacts struct {
	File     string     `json:"file"`
	Contains []Artifact `json:"contains"`
}

// Manifest is the persisted specification of a unit of work. It is created
// by the planning phase, mutated in place by refinement and review, and
// read-only to the implementation, refactoring, and fix phases.
type Manifest struct {
	Goal              string            `json:"goal"`
	Description       string            `json:"description,omitempty"`
	TaskType          string            `json:"taskType,omitempty"`
	CreatableFiles    []string          `json:"creatableFiles,omitempty"`
	EditableFiles     []string          `json:"editableFiles,omitempty"`
	ReadonlyFiles     []string          `json:"readonlyFiles,omitempty"`
	ExpectedArtifacts ExpectedArtifacts `json:"expectedArtifacts"`
	ValidationCommand []string          `json:"validationCommand,omitempty"`
}

// Load reads and decodes a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", errors.ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.CategoryParsing,
			fmt.Sprintf("invalid JSON in manifest %s", path), err)
	}
	return &m, nil
}

// Save encodes the manifest as indented JSON, creating parent directories as
// needed.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

// ModifiableFiles returns the paths a generation step is allowed to write:
// the creatable set followed by the editable set, in declaration order.
func (m *Manifest) ModifiableFiles() []string {
	files := make([]string, 0, len(m.CreatableFiles)+len(m.EditableFiles))
	files = append(files, m.CreatableFiles...)
	files = append(files, m.EditableFiles...)
	return files
}

// Check verifies the manifest's file invariants against the working tree
// rooted at root. Every editable file must already exist; that failing is an
// error. Creatable files that pre-exist are reported as warnings only.
func (m *Manifest) Check(root string) (warnings []string, err error) {
	for _, f := range m.EditableFiles {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if _, statErr := os.Stat(p); os.IsNotExist(statErr) {
			return warnings, fmt.Errorf("editable file does not exist: %s", f)
		}
	}

	for _, f := range m.CreatableFiles {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		if _, statErr := os.Stat(p); statErr == nil {
			warnings = append(warnings, fmt.Sprintf("creatable file already exists: %s", f))
		}
	}

	return warnings, nil
}
