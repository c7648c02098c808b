package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
)

var purgeDays int

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete backups older than the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, _, err := buildProcessor(processor.AutoApprove{}, false)
		if err != nil {
			return err
		}
		defer p.Close()

		deleted, err := p.Backups().ClearOlderThan(purgeDays)
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d backup(s) older than %d day(s).\n", deleted, purgeDays)
		return nil
	},
}

func init() {
	purgeCmd.Flags().IntVar(&purgeDays, "days", 7, "delete backups older than this many days")
}
