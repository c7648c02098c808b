package validator

import (
	"fmt"

	"promptpilot/pkg/types"
)

var bracketPairs = map[rune]rune{'(': ')', '[': ']', '{': '}'}

var bracketClosers = map[rune]rune{')': '(', ']': '[', '}': '{'}

// CheckIntegrity runs a language-agnostic structural completeness
// check: a single-pass bracket-stack scan over the three bracket
// families. It never invokes an external process and always
// terminates; the orchestrator treats its findings as warnings, not a
// substitute for syntax validation.
func CheckIntegrity(content string) types.ValidationResult {
	type open struct {
		ch   rune
		line int
	}

	var stack []open
	var errs []string
	line := 1

	for _, ch := range content {
		switch {
		case ch == '\n':
			line++
		case bracketPairs[ch] != 0:
			stack = append(stack, open{ch, line})
		case bracketClosers[ch] != 0:
			if len(stack) == 0 {
				errs = append(errs, fmt.Sprintf("line %d: unmatched closing bracket '%c'", line, ch))
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if bracketPairs[top.ch] != ch {
				errs = append(errs, fmt.Sprintf("line %d: mismatched brackets '%c' and '%c'", line, top.ch, ch))
			}
		}
	}

	for _, o := range stack {
		errs = append(errs, fmt.Sprintf("line %d: unclosed bracket '%c'", o.line, o.ch))
	}

	return types.ValidationResult{OK: len(errs) == 0, Errors: errs}
}
