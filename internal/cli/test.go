package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify the API endpoint is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, cfg, err := buildProcessor(processor.AutoApprove{}, true)
		if err != nil {
			return err
		}
		defer p.Close()

		fmt.Printf("Testing %s (model %s)...\n", cfg.BaseURL, cfg.Model)
		if err := p.TestConnection(cmd.Context()); err != nil {
			return fmt.Errorf("connection test failed: %w", err)
		}
		fmt.Println("Connection OK.")
		return nil
	},
}
