package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/hoa-financials/internal/resilience"
)

const exitTokenLimit = 2

var (
	runPDF       string
	runResume    bool
	runOutputDir string
	runMaxPages  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a financial report package",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runOutputDir != "" {
			cfg.Output.Dir = runOutputDir
		}
		if runMaxPages > 0 {
			cfg.Split.MaxPages = runMaxPages
		}
		pdfPath, err := filepath.Abs(runPDF)
		if err != nil {
			return eris.Wrap(err, "resolve pdf path")
		}

		env, err := initPipeline(ctx, cfg, pdfPath)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Pipeline.Run(ctx, runResume)
		if err != nil {
			if resilience.IsTokenLimit(err) {
				fmt.Fprintf(cmd.ErrOrStderr(), "Token limit reached. Progress saved.\nResume with: %s run --pdf %s --resume\n", rootCmd.Name(), runPDF)
				return &exitError{code: exitTokenLimit, err: err}
			}
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("processing complete",
			zap.String("job_id", result.JobID),
			zap.String("output_file", result.Outputs.OutputFile),
			zap.String("markdown_file", result.Outputs.MarkdownFile),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runPDF, "pdf", "", "financial report package PDF (required)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "resume from the last checkpoint")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "directory for the workbook and summary (overrides output.dir)")
	runCmd.Flags().IntVar(&runMaxPages, "max-pages", 0, "pages per markdown chunk when splitting (overrides split.max_pages)")
	_ = runCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(runCmd)
}
