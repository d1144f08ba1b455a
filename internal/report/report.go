package report

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"tagforge/internal/auditstore"
	"tagforge/internal/logging"
)

// TagDelimiter joins tag sets into a single CSV field.
const TagDelimiter = ";"

// Partition names the three output dispositions.
type Partition string

const (
	PartitionClean    Partition = "clean"
	PartitionReview   Partition = "review"
	PartitionUntagged Partition = "untagged"
)

// PartitionFor buckets one result by final disposition. Untagged wins over
// review so empty outputs are never hidden inside the review file.
func PartitionFor(result *auditstore.Result) Partition {
	switch {
	case len(result.FinalTags) == 0:
		return PartitionUntagged
	case result.NeedsReview:
		return PartitionReview
	default:
		return PartitionClean
	}
}

// Paths lists the partition files written for a run.
type Paths struct {
	Clean    string
	Review   string
	Untagged string
}

var csvHeader = []string{
	"handle",
	"category",
	"final_tags",
	"confidence",
	"model_used",
	"needs_review",
	"failure_reasons",
	"rule_tags",
	"ai_tags",
}

// Writer emits partition CSVs under an output directory.
type Writer struct {
	outputDir string
	logger    *slog.Logger
}

// NewWriter constructs a Writer rooted at outputDir.
func NewWriter(outputDir string, logger *slog.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		logger:    logging.WithComponent(logger, "report"),
	}
}

// WritePartitions splits results into the three partition files, named after
// the run id. All three files are always written, empty partitions included,
// so failures stay visible as data.
func (w *Writer) WritePartitions(runID string, results []*auditstore.Result) (Paths, error) {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	buckets := map[Partition][]*auditstore.Result{
		PartitionClean:    nil,
		PartitionReview:   nil,
		PartitionUntagged: nil,
	}
	for _, result := range results {
		partition := PartitionFor(result)
		buckets[partition] = append(buckets[partition], result)
	}

	paths := Paths{
		Clean:    w.partitionPath(runID, PartitionClean),
		Review:   w.partitionPath(runID, PartitionReview),
		Untagged: w.partitionPath(runID, PartitionUntagged),
	}
	for partition, bucket := range buckets {
		if err := writeCSV(w.partitionPath(runID, partition), bucket); err != nil {
			return Paths{}, fmt.Errorf("write %s partition: %w", partition, err)
		}
		w.logger.Info("partition written",
			logging.String(logging.FieldRunID, runID),
			logging.String("partition", string(partition)),
			logging.Int("rows", len(bucket)),
		)
	}
	return paths, nil
}

func (w *Writer) partitionPath(runID string, partition Partition) string {
	return filepath.Join(w.outputDir, fmt.Sprintf("%s_%s.csv", runID, partition))
}

func writeCSV(path string, results []*auditstore.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(file)
	if err := cw.Write(csvHeader); err != nil {
		_ = file.Close()
		return err
	}
	for _, result := range results {
		row := []string{
			result.Handle,
			result.Category,
			strings.Join(result.FinalTags, TagDelimiter),
			strconv.FormatFloat(result.Confidence, 'f', 2, 64),
			result.ModelUsed,
			strconv.FormatBool(result.NeedsReview),
			strings.Join(result.FailureReasons, TagDelimiter),
			strings.Join(result.RuleTags, TagDelimiter),
			strings.Join(result.AITags, TagDelimiter),
		}
		if err := cw.Write(row); err != nil {
			_ = file.Close()
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// CategoryCount pairs a display category with its result count.
type CategoryCount struct {
	Category string
	Count    int
}

// CategoryBreakdown aggregates results per category for summary display,
// sorted by count descending then name. Results without a category are
// grouped under "Uncategorized".
func CategoryBreakdown(results []*auditstore.Result) []CategoryCount {
	counts := make(map[string]int)
	for _, result := range results {
		counts[DisplayCategory(result.Category)]++
	}
	breakdown := make([]CategoryCount, 0, len(counts))
	for category, count := range counts {
		breakdown = append(breakdown, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(breakdown, func(i, j int) bool {
		if breakdown[i].Count != breakdown[j].Count {
			return breakdown[i].Count > breakdown[j].Count
		}
		return breakdown[i].Category < breakdown[j].Category
	})
	return breakdown
}

// DisplayCategory renders a schema category for human-facing output.
// Words that already carry capitals (acronyms like CBD) are kept as-is.
func DisplayCategory(category string) string {
	if strings.TrimSpace(category) == "" {
		return "Uncategorized"
	}
	caser := cases.Title(language.Und)
	words := strings.Fields(strings.ReplaceAll(category, "_", " "))
	for i, word := range words {
		if word == strings.ToLower(word) {
			words[i] = caser.String(word)
		}
	}
	return strings.Join(words, " ")
}
