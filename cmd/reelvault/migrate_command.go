package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"reelvault/internal/migrate"
	"reelvault/internal/progress"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var manifestFlag string
	var workersFlag int
	var linkModeFlag string

	cmd := &cobra.Command{
		Use:   "migrate [target-root]",
		Short: "Replay a manifest against the target tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if workersFlag > 0 || linkModeFlag != "" {
				overridden := *cfg
				if workersFlag > 0 {
					overridden.Migration.Workers = workersFlag
				}
				if linkModeFlag != "" {
					overridden.Migration.LinkMode = strings.ToLower(strings.TrimSpace(linkModeFlag))
				}
				if err := overridden.Validate(); err != nil {
					return err
				}
				cfg = &overridden
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			man, manifestPath, err := ctx.resolveManifest(manifestFlag)
			if err != nil {
				return err
			}
			target, err := ctx.targetRoot(args)
			if err != nil {
				return err
			}
			// The target taxonomy is provisioned outside this tool; a
			// missing root is a configuration failure, not something to
			// create on the fly.
			info, err := os.Stat(target)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("target root %q is not an existing directory", target)
			}

			journal, err := progress.Open(cmd.Context(), filepath.Join(target, migrate.JournalFileName))
			if err != nil {
				return err
			}
			defer journal.Close()

			migrator := migrate.New(cfg, journal, logger)
			result, err := migrator.Run(cmd.Context(), man, target)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Manifest", manifestPath},
				{"Target", target},
				{"Copied", strconv.Itoa(result.Copied)},
				{"Copied bytes", humanize.Bytes(uint64(result.CopiedBytes))},
				{"Skipped", strconv.Itoa(result.Skipped)},
				{"Linked", strconv.Itoa(result.Linked)},
				{"Failed", strconv.Itoa(result.Failed)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))

			if !result.Ok() {
				for _, failure := range result.Failures {
					fmt.Fprintf(out, "failed: %s: %s\n", failure.TargetPath, failure.Reason)
				}
				return fmt.Errorf("migration finished with %d failed actions; re-run to retry them", result.Failed)
			}
			fmt.Fprintln(out, "Migration complete")
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestFlag, "manifest", "m", "",
		"Manifest path (defaults to the latest analysis output)")
	cmd.Flags().IntVar(&workersFlag, "workers", 0, "Override migration.workers")
	cmd.Flags().StringVar(&linkModeFlag, "link-mode", "",
		"Override migration.link_mode (hardlink, symlink, record)")
	return cmd
}
