package backup

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Store keeps timestamped copies of files in a flat backup directory.
// Entries are named "<basename>_<YYYYMMDD_HHMMSS_microseconds>"; the
// zero-padded timestamp makes lexicographic descending order equal to
// chronological descending order. The directory listing is the source
// of truth; there is no index file.
type Store struct {
	dir string
	log *slog.Logger

	now func() time.Time
}

// NewStore creates the backup directory if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	return &Store{dir: dir, log: slog.Default(), now: time.Now}, nil
}

// Dir returns the backup root.
func (s *Store) Dir() string {
	return s.dir
}

// Backup copies the file into the store with a timestamped name,
// preserving mode and times. Backing up a path that does not exist is
// a no-op; there is nothing to preserve before a fresh write.
func (s *Store) Backup(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	now := s.now()
	stamp := now.Format("20060102_150405") + fmt.Sprintf("_%06d", now.Nanosecond()/1000)
	backupPath := filepath.Join(s.dir, filepath.Base(path)+"_"+stamp)

	if err := copyPreserving(path, backupPath); err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}
	s.log.Info("backed up file", "from", path, "to", backupPath)
	return backupPath, nil
}

// Rollback restores path from the given backup. The current state is
// defensively backed up first; if the restore itself fails, that
// defensive copy is put back.
func (s *Store) Rollback(path, backupPath string) error {
	if _, err := os.Stat(backupPath); err != nil {
		return fmt.Errorf("backup does not exist: %s", backupPath)
	}

	defensive, err := s.Backup(path)
	if err != nil {
		return fmt.Errorf("defensive backup: %w", err)
	}

	if err := copyPreserving(backupPath, path); err != nil {
		if defensive != "" {
			if rerr := copyPreserving(defensive, path); rerr != nil {
				s.log.Error("failed to restore defensive backup", "path", path, "error", rerr)
			}
		}
		return fmt.Errorf("rollback %s: %w", path, err)
	}

	s.log.Info("rolled back file", "path", path, "from", backupPath)
	return nil
}

// RollbackIndex restores the n-th newest backup (0 = latest).
func (s *Store) RollbackIndex(path string, index int) error {
	backups, err := s.List(path)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups for %s", path)
	}
	if index < 0 || index >= len(backups) {
		return fmt.Errorf("backup index %d out of range (have %d)", index, len(backups))
	}
	return s.Rollback(path, backups[index])
}

// Latest returns the newest backup for the file, or "" when none
// exists.
func (s *Store) Latest(path string) (string, error) {
	backups, err := s.List(path)
	if err != nil {
		return "", err
	}
	if len(backups) == 0 {
		return "", nil
	}
	return backups[0], nil
}

// List returns the backups for one file in descending time order.
func (s *Store) List(path string) ([]string, error) {
	return s.list(filepath.Base(path) + "_")
}

// ListAll returns every backup in the store, newest first.
func (s *Store) ListAll() ([]string, error) {
	return s.list("")
}

func (s *Store) list(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if prefix != "" && !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		backups = append(backups, filepath.Join(s.dir, e.Name()))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(backups)))
	return backups, nil
}

// Delete removes a single backup file.
func (s *Store) Delete(backupPath string) error {
	if err := os.Remove(backupPath); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	s.log.Info("deleted backup", "path", backupPath)
	return nil
}

// ClearOlderThan deletes backups whose modification time is older
// than the retention window and returns how many were removed.
func (s *Store) ClearOlderThan(days int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := s.now().AddDate(0, 0, -days)
	deleted := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := s.Delete(filepath.Join(s.dir, e.Name())); err == nil {
				deleted++
			}
		}
	}

	s.log.Info("cleared old backups", "days", days, "deleted", deleted)
	return deleted, nil
}

// copyPreserving copies src to dst keeping mode and timestamps, the
// closest portable equivalent of a metadata-preserving copy.
func copyPreserving(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
