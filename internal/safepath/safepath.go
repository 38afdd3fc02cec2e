// Package safepath validates that file paths resolve inside a project root.
// Every file write performed by a workflow loop must pass through a Guard
// first, so a misbehaving generation step cannot write outside the tree.
package safepath

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathEscape is returned when a path resolves outside the project root.
var ErrPathEscape = errors.New("path escapes project root")

// Guard validates paths against a fixed project root.
type Guard struct {
	root string
}

// NewGuard creates a Guard for the given project root. The root is made
// absolute and symlink-resolved once at construction; relative candidate
// paths are resolved against it.
func NewGuard(root string) (*Guard, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}
	abs = filepath.Clean(abs)
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	return &Guard{root: abs}, nil
}

// Root returns the absolute project root the guard validates against.
func (g *Guard) Root() string {
	return g.root
}

// Resolve returns the absolute, symlink-resolved form of path if it lies
// within the project root. It returns ErrPathEscape for anything that
// resolves outside: ".." traversal, absolute paths rooted elsewhere, and
// symlinks inside the root that point out of it. Checking the cleaned path
// alone is not enough; a symlinked directory would pass a lexical check and
// still land the write outside the tree.
func (g *Guard) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrPathEscape)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	resolved, err := resolveExisting(candidate)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}

	rel, err := filepath.Rel(g.root, resolved)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrPathEscape, path)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s resolves outside %s", ErrPathEscape, path, g.root)
	}
	return resolved, nil
}

// resolveExisting resolves symlinks on the deepest existing ancestor of path
// and rejoins the components that do not exist yet, so a path about to be
// created is checked against where it would really land.
func resolveExisting(path string) (string, error) {
	remainder := ""
	for p := path; ; {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(resolved, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		// A dangling symlink would vanish into the missing remainder and a
		// later write would follow it. Reject it outright.
		if fi, lerr := os.Lstat(p); lerr == nil && fi.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("dangling symlink: %s", p)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", err
		}
		remainder = filepath.Join(filepath.Base(p), remainder)
		p = parent
	}
}
