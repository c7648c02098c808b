package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"promptpilot/internal/config"
	"promptpilot/internal/llm"
	"promptpilot/internal/parser"
	"promptpilot/internal/processor"
	"promptpilot/pkg/types"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "promptpilot",
	Short: "Turn a prompt file into generated source files",
	Long: `PromptPilot - AI Code Generation Assistant

PromptPilot sends a prompt file to an OpenAI-compatible completion
endpoint, parses the multi-file response, checks each file's syntax,
and writes the files to disk with timestamped backups. Broken files
can be accepted, rolled back, regenerated, or skipped interactively.

Configuration comes from the environment (a .env file is honored):
  MOONSHOT_API_KEY   API key (required for run/test)
  MOONSHOT_API_BASE  endpoint base URL
  MOONSHOT_MODEL     model name

Quick Start:
  promptpilot run              Process the default prompt.txt
  promptpilot run -p task.txt  Process a specific prompt file
  promptpilot rollback <file>  Restore a file from its backups
  promptpilot status           Show configuration and history`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	},
}

// Execute runs the root command and maps the outcome to the process
// exit code: 0 success, 1 failure or cancel, 2 rollback.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, types.ErrUserRollback):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	case errors.Is(err, types.ErrUserCancel):
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildProcessor wires the full pipeline. requireKey is false for
// commands that never touch the API.
func buildProcessor(decisions processor.DecisionProvider, requireKey bool) (*processor.Processor, config.Config, error) {
	cfg := config.Load()
	if requireKey {
		if err := cfg.Validate(); err != nil {
			return nil, cfg, err
		}
	}

	client := llm.NewClient(cfg, parser.New(cfg))
	p, err := processor.New(cfg, client, decisions)
	if err != nil {
		return nil, cfg, err
	}
	return p, cfg, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}
