package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
)

var backupsCmd = &cobra.Command{
	Use:   "backups [file]",
	Short: "List backups, optionally scoped to one file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackups,
}

func runBackups(cmd *cobra.Command, args []string) error {
	p, cfg, err := buildProcessor(processor.AutoApprove{}, false)
	if err != nil {
		return err
	}
	defer p.Close()

	var backups []string
	if len(args) == 1 {
		target, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		backups, err = p.Backups().List(target)
		if err != nil {
			return err
		}
	} else {
		backups, err = p.Backups().ListAll()
		if err != nil {
			return err
		}
	}

	if len(backups) == 0 {
		fmt.Println("No backups found.")
		return nil
	}

	fmt.Printf("Backups in %s (newest first):\n", cfg.BackupDir)
	for i, b := range backups {
		size := int64(0)
		if info, err := os.Stat(b); err == nil {
			size = info.Size()
		}
		fmt.Printf("  %d. %s (%d bytes)\n", i+1, filepath.Base(b), size)
	}
	return nil
}
