package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
)

var (
	runPromptFile string
	runYes        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a prompt file and write the generated files",
	Long: `Process a prompt file end to end.

The prompt is shown for confirmation, sent to the model, and the
response is parsed into files. Each file is syntax-checked after being
written; failures open an interactive gate where the file can be
accepted, rolled back, regenerated, or skipped.

With --yes the confirmation and all gates are skipped: files are kept
even when their syntax check fails.`,
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	var decisions processor.DecisionProvider
	if runYes {
		decisions = processor.AutoApprove{}
	} else {
		decisions = newConsoleDecisions(os.Stdin, os.Stdout)
	}

	p, cfg, err := buildProcessor(decisions, true)
	if err != nil {
		return err
	}
	defer p.Close()

	promptFile := runPromptFile
	if promptFile == "" {
		promptFile = cfg.DefaultPromptFile
	}

	fmt.Printf("PromptPilot (model %s)\n", cfg.Model)
	fmt.Printf("Prompt file: %s\n\n", promptFile)

	run, err := p.ProcessPromptFile(cmd.Context(), promptFile)
	fmt.Println(processor.Summary(run))

	if err != nil {
		return err
	}
	if !run.Success {
		return fmt.Errorf("run finished with errors")
	}
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&runPromptFile, "prompt", "p", "", "prompt file to process (default from DEFAULT_PROMPT_FILE)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "skip confirmation and keep files despite syntax failures")
}
