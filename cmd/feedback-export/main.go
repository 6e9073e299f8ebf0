// Command feedback-export converts the feedback log into an XLSX workbook.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/feelps04/html-css-tutor-virtual/internal/feedback"
	"github.com/feelps04/html-css-tutor-virtual/internal/platform/config"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		input  string
		output string
		utc    bool
	)

	cmd := &cobra.Command{
		Use:          "feedback-export",
		Short:        "Export the tutor feedback log to XLSX",
		Long:         "Reads the append-only feedback log written by the tutor server and writes every record as a row of an XLSX workbook.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				input = cfg.Feedback.LogPath
			}
			loc := time.Local
			if utc {
				loc = time.UTC
			}
			n, skipped, err := exportFile(input, output, loc)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s (%d lines skipped)\n", n, output, skipped)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "feedback log to read (defaults to TUTOR_FEEDBACK_LOG_PATH)")
	cmd.Flags().StringVarP(&output, "output", "o", "feedback.xlsx", "workbook to write")
	cmd.Flags().BoolVar(&utc, "utc", false, "read log timestamps as UTC instead of local time")
	return cmd
}

func exportFile(input, output string, loc *time.Location) (records, skipped int, err error) {
	in, err := os.Open(input)
	if err != nil {
		return 0, 0, fmt.Errorf("opening feedback log: %w", err)
	}
	defer in.Close()

	recs, skipped, err := feedback.ReadAll(in, loc)
	if err != nil {
		return 0, skipped, err
	}

	out, err := os.Create(output)
	if err != nil {
		return 0, skipped, fmt.Errorf("creating %s: %w", output, err)
	}
	if err := feedback.Export(out, recs); err != nil {
		out.Close()
		return 0, skipped, err
	}
	if err := out.Close(); err != nil {
		return 0, skipped, fmt.Errorf("closing %s: %w", output, err)
	}
	return len(recs), skipped, nil
}
