package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var clearPDF string

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the checkpoint of a job so the next run starts over",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := openJob(ctx, cfg, clearPDF)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Clear(ctx); err != nil {
			return err
		}
		zap.L().Info("checkpoint cleared", zap.String("job_id", env.Store.JobID()))
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared checkpoint for %s\n", env.Store.JobID())
		return err
	},
}

func init() {
	clearCmd.Flags().StringVar(&clearPDF, "pdf", "", "financial report package PDF (required)")
	_ = clearCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(clearCmd)
}
