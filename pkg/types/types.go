package types

import (
	"errors"
	"time"
)

// FileRecord is one generated file extracted from a model response.
// After parse validation all three fields are non-empty and Path is
// an absolute path.
type FileRecord struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// ValidationResult is the outcome of a syntax or integrity check.
type ValidationResult struct {
	OK     bool     `json:"ok"`
	Errors []string `json:"errors,omitempty"`
}

// FileResult is the per-file outcome within a processing run.
type FileResult struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	Success    bool     `json:"success"`
	Size       int      `json:"size,omitempty"`
	RolledBack bool     `json:"rolled_back,omitempty"`
	Skipped    bool     `json:"skipped,omitempty"`
	Errors     []string `json:"errors,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// RunResult aggregates one whole prompt-processing run. Errors are
// accumulated per file rather than aborting the batch; a single bad
// file must not block unrelated files.
type RunResult struct {
	Success    bool         `json:"success"`
	PromptFile string       `json:"prompt_file"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Files      []FileResult `json:"files"`
	Errors     []string     `json:"errors,omitempty"`
	Warnings   []string     `json:"warnings,omitempty"`
	RolledBack []string     `json:"rolled_back,omitempty"`
}

// Written counts files that were written to disk.
func (r *RunResult) Written() int {
	n := 0
	for _, f := range r.Files {
		if f.Success && !f.RolledBack && !f.Skipped {
			n++
		}
	}
	return n
}

// Action is the operator's choice at the syntax-failure gate.
type Action int

const (
	ActionAccept Action = iota
	ActionRollback
	ActionRegenerate
	ActionSkip
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionAccept:
		return "accept"
	case ActionRollback:
		return "rollback"
	case ActionRegenerate:
		return "regenerate"
	case ActionSkip:
		return "skip"
	case ActionCancel:
		return "cancel"
	}
	return "unknown"
}

// Sentinel errors for operator decisions. ErrRetryGeneration never
// escapes the processor; the other two propagate to the CLI, which
// maps them to exit codes 1 and 2.
var (
	ErrUserCancel      = errors.New("operation cancelled by user")
	ErrUserRollback    = errors.New("file rolled back by user")
	ErrRetryGeneration = errors.New("regeneration requested")
)
