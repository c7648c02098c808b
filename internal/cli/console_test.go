package cli

import (
	"bytes"
	"strings"
	"testing"

	"promptpilot/pkg/types"
)

func TestConfirmPromptAnswers(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"yes\n", true},
		{"\n", true}, // enter defaults to yes
		{"n\n", false},
		{"no\n", false},
		{"maybe\ny\n", true}, // invalid answer reprompts
	}

	for _, tc := range cases {
		var out bytes.Buffer
		c := newConsoleDecisions(strings.NewReader(tc.input), &out)

		ok, err := c.ConfirmPrompt("generate something")
		if err != nil {
			t.Fatalf("ConfirmPrompt(%q) failed: %v", tc.input, err)
		}
		if ok != tc.want {
			t.Errorf("ConfirmPrompt(%q) = %v, want %v", tc.input, ok, tc.want)
		}
		if !strings.Contains(out.String(), "generate something") {
			t.Error("Prompt should be echoed before confirmation")
		}
	}
}

func TestConfirmPromptTruncatesLongPrompts(t *testing.T) {
	var out bytes.Buffer
	c := newConsoleDecisions(strings.NewReader("y\n"), &out)

	prompt := strings.TrimRight(strings.Repeat("line\n", 50), "\n")
	if _, err := c.ConfirmPrompt(prompt); err != nil {
		t.Fatalf("ConfirmPrompt failed: %v", err)
	}
	if !strings.Contains(out.String(), "more lines)") {
		t.Error("Long prompts should be truncated with a line count")
	}
}

func TestConfirmPromptShowsFullPromptOnRequest(t *testing.T) {
	var out bytes.Buffer
	c := newConsoleDecisions(strings.NewReader("s\ny\n"), &out)

	var lines []string
	for i := 1; i <= 40; i++ {
		lines = append(lines, "instruction line "+strings.Repeat("x", i))
	}
	prompt := strings.Join(lines, "\n")

	ok, err := c.ConfirmPrompt(prompt)
	if err != nil {
		t.Fatalf("ConfirmPrompt failed: %v", err)
	}
	if !ok {
		t.Error("Answering y after viewing should confirm")
	}

	// The truncated preview omits the tail; s must print all of it.
	if !strings.Contains(out.String(), lines[len(lines)-1]) {
		t.Error("Full prompt should be shown after answering s")
	}
	if !strings.Contains(out.String(), "=== Full prompt ===") {
		t.Error("Full prompt display should be labeled")
	}
}

func TestResolveSyntaxErrorChoices(t *testing.T) {
	cases := []struct {
		input string
		want  types.Action
	}{
		{"a\n", types.ActionAccept},
		{"r\n", types.ActionRollback},
		{"g\n", types.ActionRegenerate},
		{"s\n", types.ActionSkip},
		{"c\n", types.ActionCancel},
		{"x\na\n", types.ActionAccept}, // invalid answer reprompts
	}

	for _, tc := range cases {
		var out bytes.Buffer
		c := newConsoleDecisions(strings.NewReader(tc.input), &out)

		action, err := c.ResolveSyntaxError("app.py", []string{"syntax error (line 2)"}, true)
		if err != nil {
			t.Fatalf("ResolveSyntaxError(%q) failed: %v", tc.input, err)
		}
		if action != tc.want {
			t.Errorf("ResolveSyntaxError(%q) = %v, want %v", tc.input, action, tc.want)
		}
		if !strings.Contains(out.String(), "syntax error (line 2)") {
			t.Error("Errors should be shown before the gate")
		}
	}
}

func TestResolveSyntaxErrorRollbackNeedsBackup(t *testing.T) {
	var out bytes.Buffer
	c := newConsoleDecisions(strings.NewReader("r\ns\n"), &out)

	action, err := c.ResolveSyntaxError("app.py", []string{"broken"}, false)
	if err != nil {
		t.Fatalf("ResolveSyntaxError failed: %v", err)
	}
	if action != types.ActionSkip {
		t.Errorf("Rollback without a backup should reprompt, got %v", action)
	}
	if !strings.Contains(out.String(), "No previous version") {
		t.Error("Operator should be told why rollback is unavailable")
	}
	if strings.Contains(out.String(), "[R]ollback") {
		t.Error("Rollback should not be offered without a backup")
	}
}

func TestResolveSyntaxErrorEOFCancels(t *testing.T) {
	var out bytes.Buffer
	c := newConsoleDecisions(strings.NewReader(""), &out)

	action, err := c.ResolveSyntaxError("app.py", []string{"broken"}, true)
	if err == nil {
		t.Fatal("Expected EOF to surface as an error")
	}
	if action != types.ActionCancel {
		t.Errorf("EOF should resolve to cancel, got %v", action)
	}
}
