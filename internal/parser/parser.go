package parser

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"promptpilot/internal/config"
	"promptpilot/pkg/types"
)

var (
	pathLineRe = regexp.MustCompile(`(?m)^Path:[ \t]*(.+)$`)
	nameLineRe = regexp.MustCompile(`(?m)^Name:[ \t]*(.+)$`)
)

// Parser extracts file records from raw model output. The markers are
// fixed literal sentinels taken from the configuration; the model is
// instructed to emit them via the system prompt.
type Parser struct {
	fileStart    string
	fileEnd      string
	contentStart string
	contentEnd   string
	outputEnd    string

	comments map[string]string
	log      *slog.Logger
}

// New creates a Parser from the configured markers.
func New(cfg config.Config) *Parser {
	return &Parser{
		fileStart:    cfg.FileStartMarker,
		fileEnd:      cfg.FileEndMarker,
		contentStart: cfg.ContentStartMarker,
		contentEnd:   cfg.ContentEndMarker,
		outputEnd:    cfg.OutputEndMarker,
		comments:     cfg.CommentFormats,
		log:          slog.Default(),
	}
}

// Parse scans the response text for file blocks delimited by the
// file-begin/file-end sentinels and returns one record per well-formed
// block, in document order. Blocks missing a path, name or content
// region are dropped with a logged reason; they never abort the parse.
// When no block markers are found at all, a degraded single-file parse
// is attempted.
func (p *Parser) Parse(text string) []types.FileRecord {
	blocks := p.extractBlocks(text)
	if len(blocks) == 0 {
		p.log.Warn("no file markers found, attempting degraded parse")
		return p.parseSingle(text)
	}

	var records []types.FileRecord
	for i, block := range blocks {
		rec, err := p.parseBlock(block)
		if err != nil {
			p.log.Warn("dropping malformed file block", "block", i+1, "reason", err)
			continue
		}
		records = append(records, rec)
	}
	p.log.Info("parsed response", "files", len(records))
	return records
}

// extractBlocks returns the text strictly between each begin/end
// sentinel pair, in order of appearance.
func (p *Parser) extractBlocks(text string) []string {
	var blocks []string
	rest := text
	for {
		start := strings.Index(rest, p.fileStart)
		if start < 0 {
			break
		}
		rest = rest[start+len(p.fileStart):]
		end := strings.Index(rest, p.fileEnd)
		if end < 0 {
			break
		}
		blocks = append(blocks, rest[:end])
		rest = rest[end+len(p.fileEnd):]
	}
	return blocks
}

func (p *Parser) parseBlock(block string) (types.FileRecord, error) {
	pm := pathLineRe.FindStringSubmatch(block)
	if pm == nil {
		return types.FileRecord{}, fmt.Errorf("missing Path: line")
	}
	nm := nameLineRe.FindStringSubmatch(block)
	if nm == nil {
		return types.FileRecord{}, fmt.Errorf("missing Name: line")
	}

	cs := strings.Index(block, p.contentStart)
	ce := strings.Index(block, p.contentEnd)
	if cs < 0 || ce < 0 || ce < cs {
		return types.FileRecord{}, fmt.Errorf("missing content markers")
	}
	content := strings.TrimSpace(block[cs+len(p.contentStart) : ce])

	return types.FileRecord{
		Path:    strings.TrimSpace(pm[1]),
		Name:    strings.TrimSpace(nm[1]),
		Content: CleanContent(content),
	}, nil
}

// parseSingle is the degraded fallback used when the response carries
// no block markers: a path and name line anywhere in the text, with
// everything between content markers (or the whole text) as content.
func (p *Parser) parseSingle(text string) []types.FileRecord {
	pm := pathLineRe.FindStringSubmatch(text)
	nm := nameLineRe.FindStringSubmatch(text)
	if pm == nil || nm == nil {
		p.log.Warn("response contains no recognizable file format")
		return nil
	}

	content := text
	cs := strings.Index(text, p.contentStart)
	ce := strings.Index(text, p.contentEnd)
	if cs >= 0 && ce > cs {
		content = text[cs+len(p.contentStart) : ce]
	}

	return []types.FileRecord{{
		Path:    strings.TrimSpace(pm[1]),
		Name:    strings.TrimSpace(nm[1]),
		Content: CleanContent(strings.TrimSpace(content)),
	}}
}

// ValidateRecords checks that the parse produced a usable batch. All
// violations are collected; the first fault does not stop the scan.
func (p *Parser) ValidateRecords(records []types.FileRecord) (bool, []string) {
	var errs []string

	if len(records) == 0 {
		return false, []string{"no files parsed"}
	}

	for i, rec := range records {
		if rec.Path == "" {
			errs = append(errs, fmt.Sprintf("file %d: missing path", i+1))
		}
		if rec.Name == "" {
			errs = append(errs, fmt.Sprintf("file %d: missing name", i+1))
		}
		if rec.Content == "" {
			errs = append(errs, fmt.Sprintf("file %d: missing content", i+1))
		}
	}

	return len(errs) == 0, errs
}

// IsComplete reports whether the accumulated response contains the
// end-of-output sentinel, meaning no further chunk calls are needed.
func (p *Parser) IsComplete(text string) bool {
	return strings.Contains(text, p.outputEnd)
}

// SplitPrompt splits an oversized prompt into line-bounded chunks,
// each under the character budget. Lines are never split; a single
// line longer than the budget becomes its own chunk.
func SplitPrompt(text string, budget int) []string {
	if budget <= 0 || len(text) <= budget {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		if cur.Len() > 0 && cur.Len()+len(line) > budget {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// ExtractNote returns the model's free-form commentary preceding the
// first file marker, trimmed. The whole text is the note when no
// marker is present.
func (p *Parser) ExtractNote(text string) string {
	note := text
	if i := strings.Index(text, p.fileStart); i >= 0 {
		note = text[:i]
	}
	return strings.TrimSpace(note)
}

// CommentNote formats the model's commentary as a header comment in
// the target language, with a generation timestamp appended. The
// validator recognizes and strips exactly this shape before syntax
// checking.
func (p *Parser) CommentNote(note, ext string, now time.Time) string {
	if note == "" {
		return ""
	}
	prefix, ok := p.comments[strings.ToLower(ext)]
	if !ok {
		prefix = "#"
	}
	stamp := now.Format("2006-01-02 15:04:05")

	switch prefix {
	case "<!--":
		return "<!-- Note:\n" + note + "\nGenerated: " + stamp + "\n-->"
	case "/*":
		return "/* Note:\n" + note + "\nGenerated: " + stamp + "\n*/"
	}

	var b strings.Builder
	for _, line := range strings.Split(note, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			b.WriteString(prefix + "\n")
			continue
		}
		b.WriteString(prefix + " Note: " + line + "\n")
	}
	b.WriteString(prefix + " Generated: " + stamp)
	return b.String()
}

// AddHeader prepends a formatted note comment to the code.
func AddHeader(code, comment string) string {
	if comment == "" {
		return code
	}
	return comment + "\n\n" + code
}

// FormatRecords renders a parsed batch for console display.
func FormatRecords(records []types.FileRecord) string {
	if len(records) == 0 {
		return "no files found"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Parsed %d file(s):\n", len(records))
	for i, rec := range records {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, rec.Name)
		fmt.Fprintf(&b, "     path: %s\n", rec.Path)
		fmt.Fprintf(&b, "     size: %d chars\n", len(rec.Content))
	}
	return strings.TrimRight(b.String(), "\n")
}
