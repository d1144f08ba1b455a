package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tagforge/internal/auditstore"
	"tagforge/internal/report"
	"tagforge/internal/runner"
)

const summaryElapsedPrecision = 100 * time.Millisecond

func renderSummary(summary *runner.Summary, results []*auditstore.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s finished in %s\n\n", summary.RunID, summary.Elapsed.Round(summaryElapsedPrecision))

	rows := [][]string{
		{"Products", strconv.Itoa(summary.Total)},
		{"Processed", strconv.Itoa(summary.Processed)},
		{"Resumed (skipped)", strconv.Itoa(summary.Skipped)},
		{"Clean", strconv.Itoa(summary.Clean)},
		{"Needs review", strconv.Itoa(summary.Review)},
		{"Untagged", strconv.Itoa(summary.Untagged)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	b.WriteString(renderTable([]string{"Metric", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	breakdown := report.CategoryBreakdown(results)
	if len(breakdown) > 0 {
		b.WriteString("\n")
		categoryRows := make([][]string, 0, len(breakdown))
		for _, entry := range breakdown {
			categoryRows = append(categoryRows, []string{entry.Category, strconv.Itoa(entry.Count)})
		}
		b.WriteString(renderTable([]string{"Category", "Products"}, categoryRows, []columnAlignment{alignLeft, alignRight}))
		b.WriteString("\n")
	}

	return b.String()
}
