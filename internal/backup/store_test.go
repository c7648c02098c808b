package backup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, ".backup"))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store, dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func TestBackupCreatesTimestampedCopy(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "x = 1\n")

	backupPath, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if backupPath == "" {
		t.Fatal("Expected a backup path")
	}

	name := filepath.Base(backupPath)
	if !strings.HasPrefix(name, "app.py_") {
		t.Errorf("Backup name should start with 'app.py_', got %s", name)
	}
	// YYYYMMDD_HHMMSS_microseconds suffix
	suffix := strings.TrimPrefix(name, "app.py_")
	if len(suffix) != len("20060102_150405_000000") {
		t.Errorf("Unexpected timestamp format: %s", suffix)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "x = 1\n" {
		t.Errorf("Backup content mismatch: %q", data)
	}
}

func TestBackupMissingFileIsNoop(t *testing.T) {
	store, dir := setupTestStore(t)

	backupPath, err := store.Backup(filepath.Join(dir, "nope.py"))
	if err != nil {
		t.Fatalf("Backup of missing file should not error: %v", err)
	}
	if backupPath != "" {
		t.Errorf("Expected empty backup path, got %s", backupPath)
	}
}

func TestListDescendingOrder(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "v1")

	// Inject deterministic clocks so the three backups sort cleanly.
	times := []time.Time{
		time.Date(2025, 3, 1, 10, 0, 0, 1000, time.UTC),
		time.Date(2025, 3, 1, 11, 0, 0, 2000, time.UTC),
		time.Date(2025, 3, 1, 12, 0, 0, 3000, time.UTC),
	}
	var made []string
	for _, ts := range times {
		store.now = func() time.Time { return ts }
		p, err := store.Backup(target)
		if err != nil {
			t.Fatalf("Backup failed: %v", err)
		}
		made = append(made, p)
	}

	backups, err := store.List(target)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(backups) != 3 {
		t.Fatalf("Expected 3 backups, got %d", len(backups))
	}

	// Newest first: t3, t2, t1.
	if backups[0] != made[2] || backups[1] != made[1] || backups[2] != made[0] {
		t.Errorf("Backups not in descending order:\n got %v\nwant [%s %s %s]",
			backups, made[2], made[1], made[0])
	}
}

func TestListScopesToOneFile(t *testing.T) {
	store, dir := setupTestStore(t)

	a := filepath.Join(dir, "a.py")
	b := filepath.Join(dir, "b.py")
	writeFile(t, a, "a")
	writeFile(t, b, "b")

	if _, err := store.Backup(a); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if _, err := store.Backup(b); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	scoped, err := store.List(a)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(scoped) != 1 {
		t.Fatalf("Expected 1 backup for a.py, got %d", len(scoped))
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("Expected 2 backups total, got %d", len(all))
	}
}

func TestRollbackRestoresExactContent(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "original\n")

	backupPath, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	writeFile(t, target, "broken by generation\n")

	if err := store.Rollback(target, backupPath); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}

	data, _ := os.ReadFile(target)
	if string(data) != "original\n" {
		t.Errorf("Rollback should restore exact prior bytes, got %q", data)
	}
}

func TestRollbackTakesDefensiveBackup(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "v1\n")

	store.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	first, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	writeFile(t, target, "v2\n")

	// The defensive backup taken during rollback sorts newest.
	store.now = func() time.Time { return time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC) }
	before, _ := store.List(target)
	if err := store.Rollback(target, first); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	after, _ := store.List(target)

	if len(after) != len(before)+1 {
		t.Errorf("Rollback should create a defensive backup: before=%d after=%d",
			len(before), len(after))
	}

	// The defensive backup preserves the pre-rollback state.
	data, _ := os.ReadFile(after[0])
	if string(data) != "v2\n" {
		t.Errorf("Defensive backup should hold pre-rollback bytes, got %q", data)
	}
}

func TestRollbackIndexOutOfRange(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "v1\n")
	if _, err := store.Backup(target); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if err := store.RollbackIndex(target, 5); err == nil {
		t.Error("Expected out-of-range index to fail")
	}
}

func TestRollbackMissingBackupFails(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "v1\n")

	if err := store.Rollback(target, filepath.Join(store.Dir(), "ghost")); err == nil {
		t.Error("Expected rollback from missing backup to fail")
	}
}

func TestLatest(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")

	latest, err := store.Latest(target)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest != "" {
		t.Errorf("Expected no latest backup, got %s", latest)
	}

	writeFile(t, target, "v1")
	store.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	if _, err := store.Backup(target); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	store.now = func() time.Time { return time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC) }
	newest, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	latest, err = store.Latest(target)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if latest != newest {
		t.Errorf("Expected latest %s, got %s", newest, latest)
	}
}

func TestClearOlderThan(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "v1")

	store.now = func() time.Time { return time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC) }
	old, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	store.now = func() time.Time { return time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC) }
	recent, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	store.now = time.Now

	// Age one backup past the retention window.
	stale := time.Now().AddDate(0, 0, -10)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}

	deleted, err := store.ClearOlderThan(7)
	if err != nil {
		t.Fatalf("ClearOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("Expected 1 deleted, got %d", deleted)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("Old backup should be gone")
	}
	if _, err := os.Stat(recent); err != nil {
		t.Error("Recent backup should survive")
	}
}

func TestDelete(t *testing.T) {
	store, dir := setupTestStore(t)

	target := filepath.Join(dir, "app.py")
	writeFile(t, target, "v1")
	p, err := store.Backup(target)
	if err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	if err := store.Delete(p); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	backups, _ := store.List(target)
	if len(backups) != 0 {
		t.Errorf("Expected no backups after delete, got %d", len(backups))
	}
}
