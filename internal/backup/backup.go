// Package backup snapshots a set of files before a workflow loop runs and
// restores them on demand between retry iterations.
//
// A snapshot records, for every tracked path, either the file's bytes at
// backup time or the fact that it did not exist. Restore always returns the
// working tree to that snapshot, no matter how many iterations mutated it in
// between. The temporary store is private to one loop invocation and is
// removed unconditionally on loop exit.
package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/maidkit/ccmaid/internal/logging"
)

// Manager captures and restores point-in-time snapshots of a file set.
// Implementations must tolerate repeated Restore and Cleanup calls.
type Manager interface {
	// Backup snapshots the given paths. Files that do not exist are recorded
	// as absent so Restore can delete anything created later in their place.
	Backup(paths []string) error

	// Restore returns every tracked path to its snapshot state: saved bytes
	// are written back, absent files are deleted. Safe to call once per
	// retry; the net effect is always the original snapshot.
	Restore() error

	// Cleanup removes the temporary store and clears all tracked state.
	// Idempotent and deliberately quiet: failures are logged, not returned,
	// because cleanup runs on every loop exit path.
	Cleanup()

	// IsActive reports whether a snapshot is currently held.
	IsActive() bool
}

// entry records where one original file is stashed, or that it was absent.
type entry struct {
	backupPath string // empty when the file did not exist at backup time
	mode       os.FileMode
}

// fileManager is the real Manager backed by a private temp directory.
type fileManager struct {
	mu      sync.Mutex
	log     *logging.Logger
	dir     string
	entries map[string]entry // absolute original path -> entry
	active  bool
}

// New creates a Manager that stores snapshots under the system temp
// directory. A nil logger is replaced with a no-op logger.
func New(log *logging.Logger) Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &fileManager{log: log, entries: make(map[string]entry)}
}

func (m *fileManager) Backup(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dir == "" {
		dir, err := os.MkdirTemp("", "ccmaid-backup-")
		if err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
		m.dir = dir
		m.log.Debug("created backup directory", "dir", dir)
	}

	for _, p := range paths {
		if err := m.backupOne(p); err != nil {
			return err
		}
	}

	m.active = true
	m.log.Info("backed up file set", "tracked", len(m.entries))
	return nil
}

func (m *fileManager) backupOne(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		// Track absence so Restore deletes whatever an iteration creates here.
		m.entries[abs] = entry{}
		m.log.Debug("tracking file that does not exist yet", "path", abs)
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("read %s: %w", abs, err)
	}

	// Entries are keyed by UUID inside the store: two tracked files may
	// share a basename.
	backupPath := filepath.Join(m.dir, uuid.NewString())
	if err := os.WriteFile(backupPath, data, 0600); err != nil {
		return fmt.Errorf("write backup of %s: %w", abs, err)
	}

	m.entries[abs] = entry{backupPath: backupPath, mode: info.Mode().Perm()}
	m.log.Debug("backed up file", "path", abs, "bytes", len(data))
	return nil
}

func (m *fileManager) Restore() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.active {
		m.log.Debug("no active backup, skipping restore")
		return nil
	}

	var firstErr error
	for original, e := range m.entries {
		if err := m.restoreOne(original, e); err != nil {
			m.log.Error("restore failed", "path", original, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	m.log.Info("restored file set from backup", "tracked", len(m.entries))
	return firstErr
}

func (m *fileManager) restoreOne(original string, e entry) error {
	if e.backupPath == "" {
		// File did not exist at backup time; delete it if an iteration
		// created it since.
		if err := os.Remove(original); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete %s: %w", original, err)
		}
		return nil
	}

	data, err := os.ReadFile(e.backupPath)
	if err != nil {
		return fmt.Errorf("read backup of %s: %w", original, err)
	}
	if err := os.MkdirAll(filepath.Dir(original), 0755); err != nil {
		return fmt.Errorf("recreate parent of %s: %w", original, err)
	}
	if err := os.WriteFile(original, data, e.mode); err != nil {
		return fmt.Errorf("restore %s: %w", original, err)
	}
	return nil
}

func (m *fileManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dir != "" {
		if err := os.RemoveAll(m.dir); err != nil {
			// The OS will eventually reap the temp directory.
			m.log.Warn("failed to remove backup directory", "dir", m.dir, "error", err)
		} else {
			m.log.Debug("removed backup directory", "dir", m.dir)
		}
	}

	m.dir = ""
	m.entries = make(map[string]entry)
	m.active = false
}

func (m *fileManager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// nopManager is the dry-run Manager: every operation is a no-op while
// IsActive still reflects the backup lifecycle, so loop code exercises the
// same call sequence without touching the filesystem.
type nopManager struct {
	mu     sync.Mutex
	active bool
}

// NewNop returns a Manager whose operations do nothing. Selected once at
// construction when dry-run is requested, instead of checking a flag at
// every call site.
func NewNop() Manager {
	return &nopManager{}
}

func (m *nopManager) Backup(paths []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = true
	return nil
}

func (m *nopManager) Restore() error { return nil }

func (m *nopManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = false
}

func (m *nopManager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}
