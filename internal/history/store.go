package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"promptpilot/pkg/types"
)

// Store records processing runs and their per-file outcomes in a
// SQLite database so `status` and `history` can report past activity.
// The backup directory stays index-free; this database holds run
// history only.
type Store struct {
	db *sql.DB
}

// Run is one recorded processing run.
type Run struct {
	ID         string
	PromptFile string
	StartedAt  time.Time
	FinishedAt time.Time
	Success    bool
	FilesTotal int
	FilesOK    int
	Errors     int
}

// RunFile is one file outcome within a run.
type RunFile struct {
	RunID  string
	Name   string
	Path   string
	Status string
	Size   int
	Detail string
}

// Stats summarizes the whole history.
type Stats struct {
	Runs         int
	SuccessRuns  int
	FilesWritten int
}

// NewStore opens (creating if needed) the history database under dir.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "history.db")
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		prompt_file TEXT,
		started_at INTEGER,
		finished_at INTEGER,
		success INTEGER,
		files_total INTEGER,
		files_ok INTEGER,
		errors INTEGER
	);

	CREATE TABLE IF NOT EXISTS run_files (
		run_id TEXT,
		name TEXT,
		path TEXT,
		status TEXT,
		size INTEGER,
		detail TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_run_files_run ON run_files(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordRun persists a finished run and its file outcomes, returning
// the generated run ID.
func (s *Store) RecordRun(result *types.RunResult) (string, error) {
	id := generateRunID()

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (id, prompt_file, started_at, finished_at, success, files_total, files_ok, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, result.PromptFile,
		result.StartedAt.Unix(), result.FinishedAt.Unix(),
		boolInt(result.Success), len(result.Files), result.Written(), len(result.Errors),
	)
	if err != nil {
		return "", err
	}

	for _, f := range result.Files {
		_, err = tx.Exec(
			`INSERT INTO run_files (run_id, name, path, status, size, detail)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			id, f.Name, f.Path, fileStatus(f), f.Size, strings.Join(f.Errors, "; "),
		)
		if err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

// RecentRuns returns the newest runs first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, prompt_file, started_at, finished_at, success, files_total, files_ok, errors
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished int64
		var success int
		if err := rows.Scan(&r.ID, &r.PromptFile, &started, &finished, &success,
			&r.FilesTotal, &r.FilesOK, &r.Errors); err != nil {
			return nil, err
		}
		r.StartedAt = time.Unix(started, 0)
		r.FinishedAt = time.Unix(finished, 0)
		r.Success = success != 0
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunFiles returns the file outcomes for one run.
func (s *Store) RunFiles(runID string) ([]RunFile, error) {
	rows, err := s.db.Query(
		`SELECT run_id, name, path, status, size, detail FROM run_files WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []RunFile
	for rows.Next() {
		var f RunFile
		if err := rows.Scan(&f.RunID, &f.Name, &f.Path, &f.Status, &f.Size, &f.Detail); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// GetStats aggregates run counts for the status report.
func (s *Store) GetStats() (*Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(SUM(files_ok), 0) FROM runs`,
	).Scan(&st.Runs, &st.SuccessRuns, &st.FilesWritten)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func fileStatus(f types.FileResult) string {
	switch {
	case f.RolledBack:
		return "rolled_back"
	case f.Skipped:
		return "skipped"
	case f.Success:
		return "written"
	}
	return "failed"
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func generateRunID() string {
	short := uuid.New().String()[:8]
	return fmt.Sprintf("run-%s-%s", time.Now().Format("20060102"), short)
}
