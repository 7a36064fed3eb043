package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelvault/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Catalog maintenance and queries",
	}

	catalogCmd.AddCommand(newCatalogIndexCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))

	return catalogCmd
}

func newCatalogIndexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "index [target-root]",
		Short: "Rebuild the catalog database from sidecar documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			target, err := ctx.targetRoot(args)
			if err != nil {
				return err
			}

			store, err := catalog.Open(cmd.Context(), cfg.Paths.CatalogDB)
			if err != nil {
				return err
			}
			defer store.Close()

			indexer := catalog.NewIndexer(store, logger)
			result, err := indexer.Index(cmd.Context(), target)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d sidecars into %s\n", result.Indexed, store.Path())
			if result.Failed > 0 {
				fmt.Fprintf(out, "Warning: %d sidecars could not be read\n", result.Failed)
			}
			return nil
		},
	}
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show catalog contents by device",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			store, err := catalog.Open(cmd.Context(), cfg.Paths.CatalogDB)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(stats.Devices))
			for _, dc := range stats.Devices {
				device := dc.Device
				if device == "" {
					device = "(unknown)"
				}
				rows = append(rows, []string{
					device,
					strconv.Itoa(dc.Clips),
					humanize.Bytes(uint64(dc.Bytes)),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Device", "Clips", "Size"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight}))
			fmt.Fprintf(out, "Total: %d clips, %s, %d duplicate references\n",
				stats.Clips, humanize.Bytes(uint64(stats.TotalBytes)), stats.Duplicates)
			return nil
		},
	}
}
