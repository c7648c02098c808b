package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"promptpilot/internal/backup"
	"promptpilot/internal/config"
	"promptpilot/internal/history"
	"promptpilot/internal/llm"
	"promptpilot/internal/parser"
	"promptpilot/internal/validator"
	"promptpilot/pkg/types"
)

// DecisionProvider answers the interactive questions a run can raise.
// The CLI implements it on stdin; tests script it.
type DecisionProvider interface {
	// ConfirmPrompt shows the prompt before anything is sent and asks
	// whether to proceed.
	ConfirmPrompt(prompt string) (bool, error)

	// ResolveSyntaxError is the decision gate for a file that failed
	// its syntax check after being written. canRollback is false when
	// the file had no prior version to restore.
	ResolveSyntaxError(file string, errs []string, canRollback bool) (types.Action, error)
}

// AutoApprove is the non-interactive DecisionProvider: it confirms the
// prompt and keeps files despite syntax failures.
type AutoApprove struct{}

func (AutoApprove) ConfirmPrompt(string) (bool, error) { return true, nil }

func (AutoApprove) ResolveSyntaxError(string, []string, bool) (types.Action, error) {
	return types.ActionAccept, nil
}

// maxRegenerations bounds how often a single file may be regenerated
// before the gate stops offering that option.
const maxRegenerations = 3

// Processor drives one prompt file end to end: confirm, generate,
// parse, validate, write with backups, and record the run.
type Processor struct {
	cfg       config.Config
	parser    *parser.Parser
	validator *validator.Validator
	backups   *backup.Store
	client    *llm.Client
	runs      *history.Store
	decisions DecisionProvider
	log       *slog.Logger

	out io.Writer
	now func() time.Time
}

// New wires a processor from the configuration. A broken history
// database degrades to no history rather than failing the run.
func New(cfg config.Config, client *llm.Client, decisions DecisionProvider) (*Processor, error) {
	backups, err := backup.NewStore(cfg.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("backup store: %w", err)
	}

	runs, err := history.NewStore(cfg.HistoryDir)
	if err != nil {
		slog.Warn("history store unavailable, runs will not be recorded", "error", err)
		runs = nil
	}

	return &Processor{
		cfg:       cfg,
		parser:    parser.New(cfg),
		validator: validator.New(cfg),
		backups:   backups,
		client:    client,
		runs:      runs,
		decisions: decisions,
		log:       slog.Default(),
		out:       os.Stdout,
		now:       time.Now,
	}, nil
}

// SetOutput redirects console progress output.
func (p *Processor) SetOutput(w io.Writer) {
	p.out = w
	p.client.SetOutput(w)
}

// Backups exposes the backup store for the rollback commands.
func (p *Processor) Backups() *backup.Store { return p.backups }

// History exposes the run-history store; nil when unavailable.
func (p *Processor) History() *history.Store { return p.runs }

// Validator exposes the syntax checker for the status command.
func (p *Processor) Validator() *validator.Validator { return p.validator }

// Close releases held resources.
func (p *Processor) Close() error {
	if p.runs != nil {
		return p.runs.Close()
	}
	return nil
}

// TestConnection verifies the API endpoint responds.
func (p *Processor) TestConnection(ctx context.Context) error {
	return p.client.TestConnection(ctx)
}

// ProcessPromptFile runs the whole pipeline for one prompt file. The
// returned RunResult is always usable for the summary, even on error.
// ErrUserCancel and ErrUserRollback pass through for exit-code mapping.
func (p *Processor) ProcessPromptFile(ctx context.Context, promptPath string) (*types.RunResult, error) {
	run := &types.RunResult{
		PromptFile: promptPath,
		StartedAt:  p.now(),
	}

	data, err := os.ReadFile(promptPath)
	if err != nil {
		return p.finish(run, fmt.Errorf("read prompt file: %w", err))
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return p.finish(run, fmt.Errorf("prompt file %s is empty", promptPath))
	}

	ok, err := p.decisions.ConfirmPrompt(prompt)
	if err != nil {
		return p.finish(run, err)
	}
	if !ok {
		return p.finish(run, types.ErrUserCancel)
	}

	response, err := p.client.ProcessPrompt(ctx, prompt)
	if err != nil {
		return p.finish(run, fmt.Errorf("model call: %w", err))
	}

	records := p.parser.Parse(response)
	if valid, errs := p.parser.ValidateRecords(records); !valid {
		run.Errors = append(run.Errors, errs...)
		return p.finish(run, fmt.Errorf("response parse failed: %s", strings.Join(errs, "; ")))
	}

	fmt.Fprintln(p.out, parser.FormatRecords(records))
	note := p.parser.ExtractNote(response)

	for _, rec := range records {
		fr, err := p.processFile(ctx, rec, note)
		run.Files = append(run.Files, fr)
		if fr.RolledBack {
			run.RolledBack = append(run.RolledBack, fr.Path)
		}
		run.Warnings = append(run.Warnings, fr.Warnings...)

		if err != nil {
			if errors.Is(err, types.ErrUserCancel) {
				run.Errors = append(run.Errors, fmt.Sprintf("cancelled at %s, remaining files not written", rec.Name))
				return p.finish(run, err)
			}
			run.Errors = append(run.Errors, fmt.Sprintf("%s: %v", rec.Name, err))
		}
	}

	run.Success = len(run.Errors) == 0 && run.Written() == len(run.Files)

	if len(run.RolledBack) > 0 {
		return p.finish(run, types.ErrUserRollback)
	}
	return p.finish(run, nil)
}

// processFile writes one generated file and validates it in place.
// The previous version is backed up before the write, so the decision
// gate can restore it when the new content fails its syntax check.
func (p *Processor) processFile(ctx context.Context, rec types.FileRecord, note string) (types.FileResult, error) {
	fr := types.FileResult{Path: rec.Path, Name: rec.Name}

	if !filepath.IsAbs(rec.Path) {
		fr.Errors = append(fr.Errors, "path is not absolute")
		return fr, fmt.Errorf("path %q is not absolute", rec.Path)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(rec.Name), "."))
	content := parser.AddHeader(rec.Content, p.parser.CommentNote(note, ext, p.now()))

	if err := os.MkdirAll(filepath.Dir(rec.Path), 0755); err != nil {
		fr.Errors = append(fr.Errors, err.Error())
		return fr, fmt.Errorf("create directory: %w", err)
	}

	backupPath, err := p.backups.Backup(rec.Path)
	if err != nil {
		fr.Errors = append(fr.Errors, err.Error())
		return fr, fmt.Errorf("backup: %w", err)
	}
	if backupPath != "" {
		fmt.Fprintf(p.out, "  backed up %s\n", rec.Name)
	}

	if err := os.WriteFile(rec.Path, []byte(content), 0644); err != nil {
		fr.Errors = append(fr.Errors, err.Error())
		return fr, fmt.Errorf("write file: %w", err)
	}
	fr.Size = len(content)
	fmt.Fprintf(p.out, "  wrote %s (%d bytes)\n", rec.Path, fr.Size)

	if ir := validator.CheckIntegrity(rec.Content); !ir.OK {
		fr.Warnings = append(fr.Warnings, ir.Errors...)
		for _, w := range ir.Errors {
			fmt.Fprintf(p.out, "  warning: %s: %s\n", rec.Name, w)
		}
	}

	regens := 0
	for {
		vr := p.validator.Validate(rec.Path, content)
		if vr.OK {
			if len(vr.Errors) > 0 {
				// Informational notes from skipped checks.
				fr.Warnings = append(fr.Warnings, vr.Errors...)
			}
			fr.Success = true
			return fr, nil
		}

		for _, e := range vr.Errors {
			fmt.Fprintf(p.out, "  syntax check failed: %s: %s\n", rec.Name, e)
		}

		action, err := p.decisions.ResolveSyntaxError(rec.Name, vr.Errors, backupPath != "")
		if err != nil {
			fr.Errors = append(fr.Errors, vr.Errors...)
			return fr, err
		}
		p.log.Info("syntax gate decision", "file", rec.Name, "action", action.String())

		switch action {
		case types.ActionAccept:
			fr.Success = true
			fr.Warnings = append(fr.Warnings, vr.Errors...)
			return fr, nil

		case types.ActionRollback:
			if backupPath == "" {
				fr.Errors = append(fr.Errors, vr.Errors...)
				return fr, fmt.Errorf("no backup to roll back to")
			}
			if err := p.backups.Rollback(rec.Path, backupPath); err != nil {
				fr.Errors = append(fr.Errors, err.Error())
				return fr, fmt.Errorf("rollback: %w", err)
			}
			fmt.Fprintf(p.out, "  restored previous version of %s\n", rec.Name)
			fr.RolledBack = true
			fr.Errors = append(fr.Errors, vr.Errors...)
			return fr, nil

		case types.ActionRegenerate:
			regens++
			if regens > maxRegenerations {
				fr.Errors = append(fr.Errors, vr.Errors...)
				return fr, fmt.Errorf("still failing after %d regenerations", maxRegenerations)
			}
			fmt.Fprintf(p.out, "  regenerating %s (attempt %d)...\n", rec.Name, regens)

			fresh, err := p.client.RegenerateFile(ctx, rec.Path, rec.Name,
				"Errors: "+strings.Join(vr.Errors, "; "))
			if err != nil {
				fr.Errors = append(fr.Errors, vr.Errors...)
				return fr, fmt.Errorf("regenerate: %w", err)
			}
			content = parser.AddHeader(fresh, p.parser.CommentNote(note, ext, p.now()))
			if err := os.WriteFile(rec.Path, []byte(content), 0644); err != nil {
				fr.Errors = append(fr.Errors, err.Error())
				return fr, fmt.Errorf("write file: %w", err)
			}
			fr.Size = len(content)

		case types.ActionSkip:
			// The file stays on disk as written; the summary flags it.
			fr.Skipped = true
			fr.Errors = append(fr.Errors, vr.Errors...)
			return fr, nil

		case types.ActionCancel:
			fr.Errors = append(fr.Errors, vr.Errors...)
			return fr, types.ErrUserCancel
		}
	}
}

// finish stamps the run, records it, and returns it with the error.
func (p *Processor) finish(run *types.RunResult, err error) (*types.RunResult, error) {
	run.FinishedAt = p.now()
	if err != nil && !errors.Is(err, types.ErrUserRollback) {
		run.Success = false
		if !errors.Is(err, types.ErrUserCancel) && !containsError(run.Errors, err) {
			run.Errors = append(run.Errors, err.Error())
		}
	}

	if p.runs != nil {
		if _, herr := p.runs.RecordRun(run); herr != nil {
			p.log.Warn("failed to record run", "error", herr)
		}
	}
	return run, err
}

func containsError(errs []string, err error) bool {
	for _, e := range errs {
		if strings.Contains(e, err.Error()) || strings.Contains(err.Error(), e) {
			return true
		}
	}
	return false
}

// Summary renders the run for the console, print_result style.
func Summary(run *types.RunResult) string {
	var b strings.Builder

	status := "FAILED"
	if run.Success {
		status = "OK"
	}
	fmt.Fprintf(&b, "\n=== Result: %s ===\n", status)
	fmt.Fprintf(&b, "Prompt:   %s\n", run.PromptFile)
	fmt.Fprintf(&b, "Duration: %s\n", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "Files:    %d written / %d total\n", run.Written(), len(run.Files))

	for _, f := range run.Files {
		marker := "x"
		switch {
		case f.RolledBack:
			marker = "R"
		case f.Skipped:
			marker = "S"
		case f.Success:
			marker = "+"
		}
		fmt.Fprintf(&b, "  [%s] %s (%d bytes)\n", marker, f.Path, f.Size)
		for _, e := range f.Errors {
			fmt.Fprintf(&b, "      error: %s\n", e)
		}
	}

	for _, w := range run.Warnings {
		fmt.Fprintf(&b, "Warning: %s\n", w)
	}
	for _, e := range run.Errors {
		fmt.Fprintf(&b, "Error: %s\n", e)
	}
	return strings.TrimRight(b.String(), "\n")
}
