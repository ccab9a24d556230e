package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/hoa-financials/internal/checkpoint"
)

var (
	statusPDF    string
	statusFormat string
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the checkpoint of a job",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := openJob(cmd.Context(), cfg, statusPDF)
		if err != nil {
			return err
		}
		defer env.Close()

		return writeStatus(cmd.OutOrStdout(), env.Store, statusFormat)
	},
}

// writeStatus renders the checkpoint as text, json or yaml.
func writeStatus(w io.Writer, st *checkpoint.Store, format string) error {
	switch format {
	case "", "text":
		_, err := fmt.Fprintln(w, st.Summary())
		return err
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st.Snapshot())
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st.Snapshot()); err != nil {
			return eris.Wrap(err, "status: encode yaml")
		}
		return enc.Close()
	default:
		return eris.Errorf("status: unknown format %q", format)
	}
}

func init() {
	statusCmd.Flags().StringVar(&statusPDF, "pdf", "", "financial report package PDF (required)")
	statusCmd.Flags().StringVar(&statusFormat, "format", "text", "output format: text, json or yaml")
	_ = statusCmd.MarkFlagRequired("pdf")
	rootCmd.AddCommand(statusCmd)
}
