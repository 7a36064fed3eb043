package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelvault/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var manifestFlag string

	cmd := &cobra.Command{
		Use:   "verify [target-root]",
		Short: "Independently re-hash the target tree against a manifest",
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
			man, manifestPath, err := ctx.resolveManifest(manifestFlag)
			if err != nil {
				return err
			}
			target, err := ctx.targetRoot(args)
			if err != nil {
				return err
			}

			verifier := verify.New(cfg, logger)
			result, err := verifier.Run(cmd.Context(), man, target)
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Manifest", manifestPath},
				{"Target", target},
				{"Verified", strconv.Itoa(result.Verified)},
				{"Mismatched", strconv.Itoa(result.Mismatched)},
				{"Missing", strconv.Itoa(result.Missing)},
				{"Skipped refs", strconv.Itoa(result.Skipped)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))

			if !result.Ok() {
				for _, problem := range result.Problems {
					line := fmt.Sprintf("%s: %s", problem.Outcome, problem.TargetPath)
					if problem.Outcome == verify.OutcomeMismatch {
						line += fmt.Sprintf(" (want %s, got %s)", problem.Expected, problem.Observed)
					}
					fmt.Fprintln(out, line)
				}
				return fmt.Errorf("verification failed: %d mismatched, %d missing",
					result.Mismatched, result.Missing)
			}
			fmt.Fprintln(out, "All files verified")
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestFlag, "manifest", "m", "",
		"Manifest path (defaults to the latest analysis output)")
	return cmd
}
