package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show past runs, or the file outcomes of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, _, err := buildProcessor(processor.AutoApprove{}, false)
	if err != nil {
		return err
	}
	defer p.Close()

	if p.History() == nil {
		return fmt.Errorf("run history is unavailable")
	}

	if len(args) == 1 {
		files, err := p.History().RunFiles(args[0])
		if err != nil {
			return err
		}
		if len(files) == 0 {
			return fmt.Errorf("no run found with ID %s", args[0])
		}

		fmt.Printf("Files of %s:\n", args[0])
		for _, f := range files {
			fmt.Printf("  [%s] %s (%d bytes)\n", f.Status, f.Path, f.Size)
			if f.Detail != "" {
				fmt.Printf("       %s\n", f.Detail)
			}
		}
		return nil
	}

	runs, err := p.History().RecentRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return nil
	}

	fmt.Println("Recent runs (newest first):")
	for _, r := range runs {
		status := "FAILED"
		if r.Success {
			status = "ok"
		}
		fmt.Printf("  %s  %s  %-6s  %d/%d files  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04"), status,
			r.FilesOK, r.FilesTotal, r.PromptFile)
	}
	return nil
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of runs to show")
}
