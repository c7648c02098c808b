package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration, checkers, backups, and run history",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	p, cfg, err := buildProcessor(processor.AutoApprove{}, false)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Println("PromptPilot Status")
	fmt.Println("==================")
	fmt.Println()

	fmt.Println("API:")
	key := "NOT SET"
	if cfg.APIKey != "" {
		key = "set"
	}
	fmt.Printf("  Key:              %s\n", key)
	fmt.Printf("  Endpoint:         %s\n", cfg.BaseURL)
	fmt.Printf("  Model:            %s\n", cfg.Model)
	fmt.Printf("  Request timeout:  %s\n", cfg.RequestTimeout)
	fmt.Println()

	fmt.Println("Syntax checkers:")
	exts := p.Validator().SupportedExtensions()
	sort.Strings(exts)
	for _, ext := range exts {
		state := "available"
		if !p.Validator().CheckerAvailable(ext) {
			state = "NOT FOUND (checks will fail)"
		}
		fmt.Printf("  .%-5s %s\n", ext, state)
	}
	fmt.Println()

	backups, err := p.Backups().ListAll()
	if err != nil {
		return err
	}
	fmt.Println("Backups:")
	fmt.Printf("  Directory:        %s\n", cfg.BackupDir)
	fmt.Printf("  Count:            %d\n", len(backups))
	fmt.Println()

	fmt.Println("History:")
	if p.History() == nil {
		fmt.Println("  unavailable")
		return nil
	}
	stats, err := p.History().GetStats()
	if err != nil {
		return err
	}
	fmt.Printf("  Runs:             %d (%d successful)\n", stats.Runs, stats.SuccessRuns)
	fmt.Printf("  Files written:    %d\n", stats.FilesWritten)
	return nil
}
