package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tagforge/internal/products"
	"tagforge/internal/report"
	"tagforge/internal/runner"
	"tagforge/internal/schema"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var (
		inputPath string
		runID     string
		workers   int
		noAI      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Tag a product export and write output partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			records, err := products.LoadCSVFile(inputPath)
			if err != nil {
				return fmt.Errorf("load products: %w", err)
			}
			if len(records) == 0 {
				return fmt.Errorf("no products found in %s", inputPath)
			}

			store, err := ctx.openStore()
			if err != nil {
				return fmt.Errorf("open audit store: %w", err)
			}
			defer store.Close()

			cache, err := schema.NewCache(
				cfg.Schema.Path,
				time.Duration(cfg.Schema.RefreshSeconds)*time.Second,
				logger,
			)
			if err != nil {
				return fmt.Errorf("load schema: %w", err)
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			r := runner.New(cfg, store, cache, logger)
			summary, runErr := r.Run(runCtx, records, runner.RunOptions{
				RunID:     runID,
				Workers:   workers,
				DisableAI: noAI,
			})
			if runErr != nil {
				if summary != nil {
					fmt.Fprintf(cmd.ErrOrStderr(),
						"Run %s interrupted after %d of %d products; rerun with --run-id %s to resume\n",
						summary.RunID, summary.Processed, summary.Total, summary.RunID)
				}
				return runErr
			}

			results, err := store.ResultsForRun(runCtx, summary.RunID)
			if err != nil {
				return fmt.Errorf("load results: %w", err)
			}
			writer := report.NewWriter(cfg.Paths.OutputDir, logger)
			paths, err := writer.WritePartitions(summary.RunID, results)
			if err != nil {
				return fmt.Errorf("write partitions: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSummary(summary, results))
			fmt.Fprintf(out, "clean:    %s\n", paths.Clean)
			fmt.Fprintf(out, "review:   %s\n", paths.Review)
			fmt.Fprintf(out, "untagged: %s\n", paths.Untagged)
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "Product export CSV to tag")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (reuse to resume an interrupted run)")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker pool size (defaults to configuration)")
	cmd.Flags().BoolVar(&noAI, "no-ai", false, "Rule extraction only, no model calls")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

