package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"promptpilot/pkg/types"
)

// consoleDecisions implements the interactive gates on a terminal.
type consoleDecisions struct {
	in  *bufio.Reader
	out io.Writer
}

func newConsoleDecisions(in io.Reader, out io.Writer) *consoleDecisions {
	return &consoleDecisions{in: bufio.NewReader(in), out: out}
}

// previewLines caps how much of the prompt is echoed back before the
// confirmation question.
const previewLines = 20

func (c *consoleDecisions) ConfirmPrompt(prompt string) (bool, error) {
	lines := strings.Split(prompt, "\n")
	shown := lines
	if len(shown) > previewLines {
		shown = shown[:previewLines]
	}

	fmt.Fprintln(c.out, "=== Prompt ===")
	for _, line := range shown {
		fmt.Fprintln(c.out, line)
	}
	if len(lines) > previewLines {
		fmt.Fprintf(c.out, "... (%d more lines)\n", len(lines)-previewLines)
	}
	fmt.Fprintln(c.out, "==============")

	for {
		fmt.Fprint(c.out, "Send this prompt to the model? [Y/n/s to show full] ")
		answer, err := c.readLine()
		if err != nil {
			return false, err
		}
		switch answer {
		case "", "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "s", "show", "full":
			fmt.Fprintln(c.out, "=== Full prompt ===")
			fmt.Fprintln(c.out, prompt)
			fmt.Fprintln(c.out, "===================")
			continue
		}
		fmt.Fprintln(c.out, "Please answer y, n, or s.")
	}
}

func (c *consoleDecisions) ResolveSyntaxError(file string, errs []string, canRollback bool) (types.Action, error) {
	fmt.Fprintf(c.out, "\n%s failed its syntax check:\n", file)
	for _, e := range errs {
		fmt.Fprintf(c.out, "  %s\n", e)
	}

	choices := "[A]ccept  re[G]enerate  [S]kip  [C]ancel"
	if canRollback {
		choices = "[A]ccept  [R]ollback  re[G]enerate  [S]kip  [C]ancel"
	}

	for {
		fmt.Fprintf(c.out, "%s > ", choices)
		answer, err := c.readLine()
		if err != nil {
			return types.ActionCancel, err
		}

		switch answer {
		case "a", "accept":
			return types.ActionAccept, nil
		case "r", "rollback":
			if canRollback {
				return types.ActionRollback, nil
			}
			fmt.Fprintln(c.out, "No previous version to roll back to.")
			continue
		case "g", "regenerate":
			return types.ActionRegenerate, nil
		case "s", "skip":
			return types.ActionSkip, nil
		case "c", "cancel":
			return types.ActionCancel, nil
		}
		fmt.Fprintln(c.out, "Please pick one of the listed options.")
	}
}

func (c *consoleDecisions) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(line)), nil
}
