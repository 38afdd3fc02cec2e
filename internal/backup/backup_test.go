package backup

import (
	"os"
	"path/filepath"
	"testing"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "src", "handler.py")
	write(t, target, "original content")

	m := New(nil)
	defer m.Cleanup()

	if err := m.Backup([]string{target}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if !m.IsActive() {
		t.Fatal("IsActive() = false after Backup")
	}

	write(t, target, "mutated by iteration 1")
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if got := read(t, target); got != "original content" {
		t.Errorf("restored content = %q, want original", got)
	}
}

func TestRestoreDeletesFilesThatDidNotExist(t *testing.T) {
	dir := t.TempDir()
	created := filepath.Join(dir, "new_module.py")

	m := New(nil)
	defer m.Cleanup()

	if err := m.Backup([]string{created}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}

	write(t, created, "file created during a failed iteration")
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if _, err := os.Stat(created); !os.IsNotExist(err) {
		t.Errorf("file should be deleted on restore, stat err = %v", err)
	}
}

func TestRestoreIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "code.py")
	write(t, target, "snapshot")

	m := New(nil)
	defer m.Cleanup()

	if err := m.Backup([]string{target}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}

	// Three mutate/restore cycles must each land back on the snapshot,
	// not on the previous restore's input.
	for i, mutation := range []string{"attempt one", "attempt two", "attempt three"} {
		write(t, target, mutation)
		if err := m.Restore(); err != nil {
			t.Fatalf("Restore() #%d error: %v", i+1, err)
		}
		if got := read(t, target); got != "snapshot" {
			t.Fatalf("after restore #%d content = %q, want snapshot", i+1, got)
		}
	}
}

func TestRestoreRecreatesDeletedParentDirs(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "pkg", "deep", "mod.py")
	write(t, target, "content")

	m := New(nil)
	defer m.Cleanup()

	if err := m.Backup([]string{target}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if err := os.RemoveAll(filepath.Join(dir, "pkg")); err != nil {
		t.Fatal(err)
	}
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if got := read(t, target); got != "content" {
		t.Errorf("restored content = %q", got)
	}
}

func TestBackupHandlesDuplicateBasenames(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "config.py")
	b := filepath.Join(dir, "b", "config.py")
	write(t, a, "package a")
	write(t, b, "package b")

	m := New(nil)
	defer m.Cleanup()

	if err := m.Backup([]string{a, b}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	write(t, a, "clobbered")
	write(t, b, "clobbered")
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if read(t, a) != "package a" || read(t, b) != "package b" {
		t.Error("files sharing a basename were not restored independently")
	}
}

func TestCleanupIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.py")
	write(t, target, "x")

	m := New(nil)
	if err := m.Backup([]string{target}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}

	m.Cleanup()
	if m.IsActive() {
		t.Error("IsActive() = true after Cleanup")
	}
	// Repeated cleanup, and cleanup with no active backup, must not panic.
	m.Cleanup()
	New(nil).Cleanup()
}

func TestRestoreWithoutBackupIsNoop(t *testing.T) {
	m := New(nil)
	if err := m.Restore(); err != nil {
		t.Errorf("Restore() without backup should be a no-op, got %v", err)
	}
}

func TestNopManager(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "f.py")
	write(t, target, "untouched")

	m := NewNop()
	if err := m.Backup([]string{target}); err != nil {
		t.Fatalf("Backup() error: %v", err)
	}
	if !m.IsActive() {
		t.Error("nop manager should still report an active backup")
	}

	write(t, target, "mutated")
	if err := m.Restore(); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
	if got := read(t, target); got != "mutated" {
		t.Errorf("nop Restore must not touch files, content = %q", got)
	}

	m.Cleanup()
	if m.IsActive() {
		t.Error("IsActive() = true after nop Cleanup")
	}
}
