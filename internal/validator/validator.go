package validator

import (
	"context"
	"fmt"
	"go/parser"
	"go/scanner"
	"go/token"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"promptpilot/internal/config"
	"promptpilot/pkg/types"
)

// Validator checks generated file content for syntax errors. Go files
// are parsed in-process; every other supported language is handed to
// its native toolchain in check-only mode as an opaque external
// checker. Unsupported extensions pass with an informational note.
type Validator struct {
	commands map[string][]string
	comments map[string]string
	timeout  time.Duration
	log      *slog.Logger
}

// New creates a Validator from the configured language tables.
func New(cfg config.Config) *Validator {
	return &Validator{
		commands: cfg.CheckCommands,
		comments: cfg.CommentFormats,
		timeout:  cfg.CheckTimeout,
		log:      slog.Default(),
	}
}

// Validate determines the language from the file extension and runs
// the matching syntax check against the content.
func (v *Validator) Validate(path, content string) types.ValidationResult {
	ext := fileExt(path)
	if ext == "" {
		v.log.Warn("cannot determine file type", "path", path)
		return types.ValidationResult{OK: true, Errors: []string{"unknown file type, syntax check skipped"}}
	}

	clean := v.StripGeneratedComments(content, ext)

	switch {
	case ext == "go":
		return v.validateGo(clean)
	case v.commands[ext] != nil:
		return v.validateExternal(ext, clean)
	default:
		return types.ValidationResult{OK: true, Errors: []string{
			fmt.Sprintf("no syntax checker for .%s files, check skipped", ext)}}
	}
}

// CheckerAvailable reports whether the external checker binary for an
// extension is on PATH. Go needs no binary.
func (v *Validator) CheckerAvailable(ext string) bool {
	if ext == "go" {
		return true
	}
	cmd, ok := v.commands[ext]
	if !ok || len(cmd) == 0 {
		return false
	}
	_, err := exec.LookPath(cmd[0])
	return err == nil
}

// SupportedExtensions lists every extension with a syntax check.
func (v *Validator) SupportedExtensions() []string {
	exts := []string{"go"}
	for ext := range v.commands {
		exts = append(exts, ext)
	}
	return exts
}

// validateGo parses the content with go/parser. The tool itself is
// written in Go, so no subprocess is needed.
func (v *Validator) validateGo(content string) types.ValidationResult {
	fset := token.NewFileSet()
	_, err := parser.ParseFile(fset, "generated.go", content, 0)
	if err == nil {
		return types.ValidationResult{OK: true}
	}

	var errs []string
	if list, ok := err.(scanner.ErrorList); ok {
		for _, e := range list {
			errs = append(errs, fmt.Sprintf("go syntax error (line %d): %s", e.Pos.Line, e.Msg))
		}
	} else {
		errs = append(errs, fmt.Sprintf("go syntax error: %v", err))
	}
	return types.ValidationResult{OK: false, Errors: errs}
}

// validateExternal writes the content to a scratch file and invokes
// the language's checker with a bounded timeout. The scratch file is
// removed on every exit path.
func (v *Validator) validateExternal(ext string, content string) types.ValidationResult {
	tmp, err := os.CreateTemp("", "promptpilot-*."+ext)
	if err != nil {
		return types.ValidationResult{OK: false, Errors: []string{fmt.Sprintf("scratch file: %v", err)}}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return types.ValidationResult{OK: false, Errors: []string{fmt.Sprintf("scratch file: %v", err)}}
	}
	if err := tmp.Close(); err != nil {
		return types.ValidationResult{OK: false, Errors: []string{fmt.Sprintf("scratch file: %v", err)}}
	}

	command := v.commands[ext]
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	args := append(append([]string{}, command[1:]...), tmp.Name())
	cmd := exec.CommandContext(ctx, command[0], args...)
	out, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		v.log.Error("syntax check timed out", "ext", ext)
		return types.ValidationResult{OK: false, Errors: []string{
			fmt.Sprintf("%s syntax check timed out after %s", ext, v.timeout)}}
	}
	if err == nil {
		return types.ValidationResult{OK: true}
	}

	diag := firstErrorLine(string(out))
	if diag == "" {
		diag = fmt.Sprintf("checker exited with error: %v", err)
	}
	v.log.Error("syntax check failed", "ext", ext, "diagnostic", diag)
	return types.ValidationResult{OK: false, Errors: []string{
		fmt.Sprintf("%s syntax error: %s", ext, diag)}}
}

// firstErrorLine surfaces the first diagnostic line that carries an
// error indicator, falling back to the first non-empty line.
func firstErrorLine(output string) string {
	var first string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first == "" {
			first = line
		}
		if strings.Contains(strings.ToLower(line), "error") {
			return line
		}
	}
	return first
}

// StripGeneratedComments removes the tool's own note/timestamp header
// so the checker never flags our annotations. The shape matches what
// parser.CommentNote emits for the extension's comment style.
func (v *Validator) StripGeneratedComments(content, ext string) string {
	prefix, ok := v.comments[strings.ToLower(ext)]
	if !ok {
		prefix = "#"
	}

	var blockOpen, blockClose string
	switch prefix {
	case "<!--":
		blockOpen, blockClose = "<!-- Note:", "-->"
	case "/*":
		blockOpen, blockClose = "/* Note:", "*/"
	}

	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	inBlock := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if blockOpen != "" {
			if strings.HasPrefix(stripped, blockOpen) {
				inBlock = true
			}
			if inBlock {
				if strings.HasSuffix(stripped, blockClose) {
					inBlock = false
				}
				continue
			}
			kept = append(kept, line)
			continue
		}

		if strings.HasPrefix(stripped, prefix+" Note:") ||
			strings.HasPrefix(stripped, prefix+" Generated:") {
			continue
		}
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func fileExt(path string) string {
	ext := filepath.Ext(filepath.Base(path))
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
