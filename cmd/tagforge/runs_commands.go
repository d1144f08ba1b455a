package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tagforge/internal/auditstore"
	"tagforge/internal/report"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect audit runs",
	}

	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	runsCmd.AddCommand(newRunsStatusCommand(ctx))

	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), runsToJSON(runs))
			}

			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				count, err := store.CountResults(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				rows = append(rows, []string{
					run.ID,
					string(run.Status),
					run.StartedAt.Local().Format(time.RFC3339),
					formatCompletedAt(run),
					strconv.Itoa(count),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Run", "Status", "Started", "Completed", "Results"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run's results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			results, err := store.ResultsForRun(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"run":     runToJSON(run),
					"results": results,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Status)
			fmt.Fprintf(out, "Started:   %s\n", run.StartedAt.Local().Format(time.RFC3339))
			fmt.Fprintf(out, "Completed: %s\n\n", formatCompletedAt(run))

			if len(results) == 0 {
				fmt.Fprintln(out, "No results persisted")
				return nil
			}
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					result.Handle,
					report.DisplayCategory(result.Category),
					strings.Join(result.FinalTags, report.TagDelimiter),
					strconv.FormatFloat(result.Confidence, 'f', 2, 64),
					result.ModelUsed,
					yesNo(result.NeedsReview),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Handle", "Category", "Final Tags", "Confidence", "Model", "Review"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func newRunsStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status [run-id]",
		Short: "Report whether a run is completed (defaults to the latest run)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var run *auditstore.Run
			if len(args) == 1 {
				run, err = store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
			} else {
				run, err = store.LatestRun(cmd.Context())
				if err != nil {
					return err
				}
				if run == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
					return nil
				}
			}

			count, err := store.CountResults(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %s (%d results)\n", run.ID, run.Status, count)
			if !run.Completed() {
				fmt.Fprintf(out, "Resume with: tagforge run --input <export.csv> --run-id %s\n", run.ID)
			}
			return nil
		},
	}
}

func formatCompletedAt(run *auditstore.Run) string {
	if run.CompletedAt == nil {
		return "-"
	}
	return run.CompletedAt.Local().Format(time.RFC3339)
}

type runJSON struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	StartedAt   string `json:"started_at"`
	CompletedAt string `json:"completed_at,omitempty"`
	ConfigJSON  string `json:"config_json,omitempty"`
}

func runToJSON(run *auditstore.Run) runJSON {
	out := runJSON{
		ID:         run.ID,
		Status:     string(run.Status),
		StartedAt:  run.StartedAt.Format(time.RFC3339Nano),
		ConfigJSON: run.ConfigJSON,
	}
	if run.CompletedAt != nil {
		out.CompletedAt = run.CompletedAt.Format(time.RFC3339Nano)
	}
	return out
}

func runsToJSON(runs []*auditstore.Run) []runJSON {
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, runToJSON(run))
	}
	return out
}

func printJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}
