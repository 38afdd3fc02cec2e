package workflow

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/maidkit/ccmaid/internal/errors"
)

// ClaimRegistry holds advisory ownership of file paths by running loops.
// Two loops mutating the same files would corrupt each other's
// backup/restore invariant, so a loop must claim its file set before it
// starts and release it when it exits.
type ClaimRegistry struct {
	mu     sync.Mutex
	owners map[string]string // absolute path -> loop ID
}

// NewClaimRegistry creates an empty registry.
func NewClaimRegistry() *ClaimRegistry {
	return &ClaimRegistry{owners: make(map[string]string)}
}

// Claim registers ownership of every path for the given loop. If any path is
// already owned by a different loop, nothing is claimed and ErrLoopActive is
// returned. Claiming a path the loop already owns is a no-op.
func (r *ClaimRegistry) Claim(loopID string, paths []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	normalized := make([]string, 0, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p, err)
		}
		if owner, ok := r.owners[abs]; ok && owner != loopID {
			return fmt.Errorf("%w: %s held by %s", errors.ErrLoopActive, abs, owner)
		}
		normalized = append(normalized, abs)
	}

	for _, p := range normalized {
		r.owners[p] = loopID
	}
	return nil
}

// Release drops every claim held by the given loop.
func (r *ClaimRegistry) Release(loopID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for path, owner := range r.owners {
		if owner == loopID {
			delete(r.owners, path)
		}
	}
}
