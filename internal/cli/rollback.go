package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"promptpilot/internal/processor"
	"promptpilot/pkg/types"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <file> [version]",
	Short: "Restore a file from one of its backups",
	Long: `Restore a file from its timestamped backups.

Without a version argument the available backups are listed newest
first and one is chosen interactively. Version 1 is the newest backup.
The current file content is backed up before it is overwritten.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	p, _, err := buildProcessor(processor.AutoApprove{}, false)
	if err != nil {
		return err
	}
	defer p.Close()

	target, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	backups, err := p.Backups().List(target)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return fmt.Errorf("no backups found for %s", target)
	}

	index := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 || n > len(backups) {
			return fmt.Errorf("version must be 1..%d", len(backups))
		}
		index = n - 1
	} else {
		index, err = chooseBackup(backups)
		if err != nil {
			return err
		}
		if index < 0 {
			fmt.Println("Rollback cancelled.")
			return types.ErrUserCancel
		}
	}

	if err := p.Backups().RollbackIndex(target, index); err != nil {
		return err
	}

	fmt.Printf("Restored %s from %s\n", target, filepath.Base(backups[index]))
	return types.ErrUserRollback
}

// chooseBackup lists the backups newest first and reads a selection.
// Returns -1 when the operator quits.
func chooseBackup(backups []string) (int, error) {
	fmt.Printf("Available backups (newest first):\n")
	for i, b := range backups {
		fmt.Printf("  %d. %s\n", i+1, filepath.Base(b))
	}

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("Restore which version? [1-%d, q to quit] ", len(backups))
		line, err := reader.ReadString('\n')
		if err != nil && strings.TrimSpace(line) == "" {
			return -1, err
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "q" || answer == "quit" {
			return -1, nil
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(backups) {
			return n - 1, nil
		}
		fmt.Println("Invalid selection.")
	}
}
