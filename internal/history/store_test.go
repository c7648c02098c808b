package history

import (
	"strings"
	"testing"
	"time"

	"promptpilot/pkg/types"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleResult(promptFile string, started time.Time) *types.RunResult {
	return &types.RunResult{
		Success:    true,
		PromptFile: promptFile,
		StartedAt:  started,
		FinishedAt: started.Add(5 * time.Second),
		Files: []types.FileResult{
			{Path: "/tmp/app.py", Name: "app.py", Success: true, Size: 42},
			{Path: "/tmp/util.py", Name: "util.py", Success: false,
				Errors: []string{"syntax error (line 3)"}},
		},
	}
}

func TestRecordAndRecallRun(t *testing.T) {
	store := setupTestStore(t)

	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	id, err := store.RecordRun(sampleResult("prompt.txt", started))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if !strings.HasPrefix(id, "run-") {
		t.Errorf("Unexpected run ID format: %s", id)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}

	r := runs[0]
	if r.ID != id || r.PromptFile != "prompt.txt" || !r.Success {
		t.Errorf("Run fields mismatch: %+v", r)
	}
	if r.FilesTotal != 2 || r.FilesOK != 1 {
		t.Errorf("Expected 2 files / 1 ok, got %d / %d", r.FilesTotal, r.FilesOK)
	}
	if !r.StartedAt.Equal(started) {
		t.Errorf("StartedAt mismatch: %v", r.StartedAt)
	}
}

func TestRunFilesOutcomes(t *testing.T) {
	store := setupTestStore(t)

	id, err := store.RecordRun(sampleResult("prompt.txt", time.Now()))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	files, err := store.RunFiles(id)
	if err != nil {
		t.Fatalf("RunFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 file rows, got %d", len(files))
	}

	byName := map[string]RunFile{}
	for _, f := range files {
		byName[f.Name] = f
	}
	if got := byName["app.py"]; got.Status != "written" || got.Size != 42 {
		t.Errorf("app.py row mismatch: %+v", got)
	}
	if got := byName["util.py"]; got.Status != "failed" || !strings.Contains(got.Detail, "syntax error") {
		t.Errorf("util.py row mismatch: %+v", got)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := setupTestStore(t)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		res := sampleResult("prompt.txt", base.Add(time.Duration(i)*time.Hour))
		if _, err := store.RecordRun(res); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	runs, err := store.RecentRuns(2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected limit of 2, got %d", len(runs))
	}
	if !runs[0].StartedAt.After(runs[1].StartedAt) {
		t.Errorf("Runs not newest first: %v then %v", runs[0].StartedAt, runs[1].StartedAt)
	}
}

func TestFileStatusMapping(t *testing.T) {
	store := setupTestStore(t)

	res := &types.RunResult{
		PromptFile: "prompt.txt",
		StartedAt:  time.Now(),
		FinishedAt: time.Now(),
		Files: []types.FileResult{
			{Name: "a.py", Success: true},
			{Name: "b.py", Success: true, RolledBack: true},
			{Name: "c.py", Skipped: true},
			{Name: "d.py"},
		},
	}
	id, err := store.RecordRun(res)
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	files, err := store.RunFiles(id)
	if err != nil {
		t.Fatalf("RunFiles failed: %v", err)
	}

	want := map[string]string{
		"a.py": "written", "b.py": "rolled_back", "c.py": "skipped", "d.py": "failed",
	}
	for _, f := range files {
		if f.Status != want[f.Name] {
			t.Errorf("%s: expected status %s, got %s", f.Name, want[f.Name], f.Status)
		}
	}
}

func TestGetStats(t *testing.T) {
	store := setupTestStore(t)

	stats, err := store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Runs != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}

	ok := sampleResult("prompt.txt", time.Now())
	failed := sampleResult("other.txt", time.Now())
	failed.Success = false
	if _, err := store.RecordRun(ok); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if _, err := store.RecordRun(failed); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	stats, err = store.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.Runs != 2 || stats.SuccessRuns != 1 || stats.FilesWritten != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}
