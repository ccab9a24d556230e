package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/config"
)

var (
	cfg           *config.Config
	checkpointDir string
)

var rootCmd = &cobra.Command{
	Use:          "hoa-financials",
	Short:        "Resumable extraction of HOA financial report packages",
	SilenceUsage: true,
	Long:         "Splits an HOA financial PDF package into pages, classifies each page by report type, extracts typed records, and writes an XLSX workbook plus a Markdown summary. Progress is checkpointed so interrupted runs resume where they stopped.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if checkpointDir != "" {
			cfg.Checkpoint.Dir = checkpointDir
		}

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&checkpointDir, "checkpoint-dir", "", "directory for checkpoint state (overrides checkpoint.dir)")
}

// exitError carries a specific process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

func main() {
	// An interrupt cancels the run; the pipeline records the stop in the
	// checkpoint before exiting.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(exitCode(err))
	}
}
