package parser

import (
	"regexp"
	"strings"
)

// The sanitizer undoes the damage models routinely inflict on file
// content: markdown fencing around the code, whole blocks emitted as
// comments, and stray generation-metadata lines. Every step is
// best-effort and leaves the input unchanged when it finds nothing to
// do; the pipeline never fails on malformed input.

var (
	// A line that is nothing but a code fence, optionally preceded by
	// a stray comment marker and followed by a language tag.
	fenceLineRe = regexp.MustCompile("(?m)^[ \t]*#?[ \t]*```[A-Za-z0-9+.-]*[ \t]*$\n?")

	// Inline "# ```" markers with trailing junk on the same line.
	inlineFenceRe = regexp.MustCompile("(?m)^#[ \t]*```.*\n?")

	// Generation-metadata comments the model likes to add.
	metaCommentRes = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#[ \t]*Generated on:.*\n?`),
		regexp.MustCompile(`(?m)^#[ \t]*Generated:.*\n?`),
		regexp.MustCompile(`(?m)^#[ \t]*Created:.*\n?`),
	}

	blankRunRe = regexp.MustCompile(`\n[ \t]*\n([ \t]*\n)+`)

	reModuleUseRe  = regexp.MustCompile(`\bre\.`)
	importReLineRe = regexp.MustCompile(`(?m)^[ \t]*import re\b`)
)

// Heuristic predicates for "commented-out code" vs "genuine comment".
// Comment patterns win; code patterns are checked only afterwards.
var (
	commentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[ \t]*("""|''')`),
		regexp.MustCompile(`^[ \t]*#\s*[Tt]his\s+is\s+`),
	}
	codePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^[ \t]*(def|class|import|from|if|else|elif|for|while|try|except|with|return|print)\b`),
		regexp.MustCompile(`^[ \t]*@\w+`),
		regexp.MustCompile(`^[ \t]*#.*coding`),
		regexp.MustCompile(`\(.*\)`),
		regexp.MustCompile(`".*".*=`),
		regexp.MustCompile(`'.*'.*=`),
		regexp.MustCompile(`\b\w+[ \t]*=`),
	}
)

// CleanContent runs the sanitation pipeline to a fixpoint so that
// cleaning is idempotent even when one pass uncovers another layer of
// commenting (a block commented out several times over). Termination
// holds because every changing pass shortens the content, except the
// import repair, which fires at most once and is stable afterwards.
func CleanContent(content string) string {
	for {
		cleaned := cleanOnce(content)
		if cleaned == content {
			return content
		}
		content = cleaned
	}
}

func cleanOnce(content string) string {
	if content == "" {
		return content
	}

	// 1+2. Fence lines, including comment-prefixed ones.
	content = fenceLineRe.ReplaceAllString(content, "")
	content = inlineFenceRe.ReplaceAllString(content, "")

	// 3. Generation-metadata comments.
	for _, re := range metaCommentRes {
		content = re.ReplaceAllString(content, "")
	}

	// 4. Commented-out code, both fenced comment blocks and stray
	// single lines.
	content = uncommentLines(content)

	// 5. A block that is commented out in its entirety.
	content = uncommentWholeBlock(content)

	// 6. Collapse runs of blank lines, trim the edges.
	content = blankRunRe.ReplaceAllString(content, "\n\n")
	content = strings.TrimSpace(content)

	// 7. Repair a missing "import re" when the content clearly uses
	// the module.
	if reModuleUseRe.MatchString(content) && !importReLineRe.MatchString(content) {
		content = "import re\n" + content
	}

	return content
}

// uncommentLines walks the content with an inside-commented-block flag
// toggled by lines consisting of a comment marker plus a fence. Inside
// such a block every comment marker is stripped with indentation kept.
// Outside, a commented line is uncommented only when it looks like
// executable code; genuine comments are dropped.
func uncommentLines(content string) string {
	lines := strings.Split(content, "\n")
	kept := make([]string, 0, len(lines))
	inBlock := false

	for _, line := range lines {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, "# ```") {
			inBlock = !inBlock
			continue
		}

		if inBlock {
			if strings.HasPrefix(stripped, "#") {
				indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
				rest := strings.TrimPrefix(strings.TrimLeft(line, " \t"), "#")
				kept = append(kept, indent+strings.TrimPrefix(rest, " "))
			} else {
				kept = append(kept, line)
			}
			continue
		}

		if strings.HasPrefix(stripped, "#") && !strings.HasPrefix(stripped, "# #") {
			after := line[strings.Index(line, "#")+1:]
			if looksLikeCode(after) {
				kept = append(kept, strings.TrimLeft(after, " \t"))
			}
			// Genuine comment: dropped.
			continue
		}

		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

// uncommentWholeBlock strips one comment marker from every line when
// all remaining non-blank lines still start with one, meaning the
// whole block was commented out and the per-line heuristic missed it.
func uncommentWholeBlock(content string) string {
	lines := strings.Split(content, "\n")

	any := false
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			continue
		}
		if !strings.HasPrefix(stripped, "#") {
			return content
		}
		any = true
	}
	if !any {
		return content
	}

	out := make([]string, len(lines))
	for i, line := range lines {
		stripped := strings.TrimLeft(line, " \t")
		if strings.HasPrefix(stripped, "#") {
			indent := line[:len(line)-len(stripped)]
			rest := strings.TrimPrefix(stripped, "#")
			out[i] = indent + strings.TrimPrefix(rest, " ")
		} else {
			out[i] = line
		}
	}
	return strings.Join(out, "\n")
}

// looksLikeCode classifies the text after a comment marker. It is a
// fuzzy, ordered predicate list, not a parser: comment patterns are
// checked first and short-circuit, then code patterns.
func looksLikeCode(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	for _, re := range commentPatterns {
		if re.MatchString(line) {
			return false
		}
	}
	for _, re := range codePatterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
