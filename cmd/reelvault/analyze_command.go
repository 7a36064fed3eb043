package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelvault/internal/analysis"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var structuralOnly bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Scan and hash the source tree, emit the migration manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Paths.SourceRoot == "" {
				return fmt.Errorf("no source root: set paths.source_root in the configuration")
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			analyzer := analysis.New(cfg, logger)
			result, err := analyzer.Run(cmd.Context(), analysis.Options{StructuralOnly: structuralOnly})
			if err != nil {
				return err
			}

			summary := result.Manifest.Summary
			rows := [][]string{
				{"Files", strconv.Itoa(summary.TotalFiles)},
				{"Total size", humanize.Bytes(uint64(summary.TotalBytes))},
				{"Duplicate files", strconv.Itoa(summary.DuplicateCount)},
				{"Duplicate groups", strconv.Itoa(len(result.Groups))},
				{"Space reclaimed", humanize.Bytes(uint64(summary.DuplicateBytesSaved))},
				{"Hashed", yesNo(result.Manifest.Hashed)},
				{"Elapsed", result.Elapsed.Round(time.Millisecond).String()},
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "Manifest: %s\n", result.ManifestPath)
			fmt.Fprintf(out, "Duplicates report: %s\n", result.ReportPath)
			fmt.Fprintf(out, "Summary: %s\n", result.SummaryPath)
			if n := len(result.ScanErrors); n > 0 {
				fmt.Fprintf(out, "Warning: %d paths could not be read; see the summary file\n", n)
			}
			if n := len(result.HashErrors); n > 0 {
				fmt.Fprintf(out, "Warning: %d files could not be hashed and were excluded\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&structuralOnly, "structural-only", false,
		"Skip hashing and probing; preview the layout without reading file contents")
	return cmd
}
