package recovery

import (
	"context"
	"log/slog"
	"strings"

	"tagforge/internal/cascade"
	"tagforge/internal/llm"
	"tagforge/internal/logging"
	"tagforge/internal/products"
	"tagforge/internal/schema"
	"tagforge/internal/validate"
)

// Config holds the recovery model and its elevated sampling temperature.
type Config struct {
	Model       string
	Temperature float64
}

// Outcome reports the recovery attempt. Tags and Failures describe the set
// to persist: the recovered set with no failures on success, the original
// set with its original failures otherwise. NeedsReview is always true for
// any product that reached recovery.
type Outcome struct {
	Recovered  bool
	Tags       []string
	Failures   []string
	Confidence float64
	ModelUsed  string
	Reasoning  string
}

// Recoverer issues the failure-aware rescue call.
type Recoverer struct {
	client cascade.Suggester
	cfg    Config
	logger *slog.Logger
}

// New constructs a Recoverer sharing the cascade's inference client.
func New(client cascade.Suggester, cfg Config, logger *slog.Logger) *Recoverer {
	return &Recoverer{
		client: client,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "recovery"),
	}
}

// Attempt runs one rescue call for a product whose merged tags failed
// validation. The caller must treat any outcome as needing manual review.
func (r *Recoverer) Attempt(ctx context.Context, record products.Record, category string, failedTags, failures []string, s *schema.Schema) Outcome {
	kept := Outcome{
		Recovered: false,
		Tags:      failedTags,
		Failures:  failures,
		ModelUsed: cascade.ModelNone,
	}

	suggestion, err := r.client.SuggestTags(ctx, llm.Request{
		Model:        r.cfg.Model,
		SystemPrompt: cascade.SystemPrompt,
		UserPrompt:   buildPrompt(record, category, failedTags, failures, s),
		Temperature:  r.cfg.Temperature,
	})
	if err != nil {
		r.logger.Warn("recovery call failed, keeping original tags",
			logging.String(logging.FieldHandle, record.Handle),
			logging.String(logging.FieldModel, r.cfg.Model),
			logging.Error(err),
		)
		return kept
	}

	report := validate.Check(suggestion.Tags, category, s)
	if !report.Valid {
		r.logger.Warn("recovered tags failed validation, keeping original tags",
			logging.String(logging.FieldHandle, record.Handle),
			logging.String(logging.FieldModel, r.cfg.Model),
			logging.Any("recovered_failures", report.Failures),
		)
		return kept
	}

	r.logger.Info("recovery produced a valid tag set",
		logging.String(logging.FieldHandle, record.Handle),
		logging.String(logging.FieldModel, r.cfg.Model),
		logging.Float64("confidence", suggestion.Confidence),
	)
	return Outcome{
		Recovered:  true,
		Tags:       suggestion.Tags,
		Confidence: suggestion.Confidence,
		ModelUsed:  r.cfg.Model,
		Reasoning:  suggestion.Reasoning,
	}
}

// buildPrompt quotes every failure reason verbatim and restates the
// category's mandatory-dimension rules so the model knows exactly what to
// repair.
func buildPrompt(record products.Record, category string, failedTags, failures []string, s *schema.Schema) string {
	var b strings.Builder
	b.WriteString("A previous tagging attempt for this product failed validation.\n\n")
	b.WriteString("Product handle: ")
	b.WriteString(record.Handle)
	b.WriteString("\nTitle: ")
	b.WriteString(record.Title)
	if desc := strings.TrimSpace(record.Description); desc != "" {
		b.WriteString("\nDescription: ")
		b.WriteString(desc)
	}
	if category != "" {
		b.WriteString("\nCategory: ")
		b.WriteString(category)
	}
	b.WriteString("\n\nRejected tags: ")
	if len(failedTags) > 0 {
		b.WriteString(strings.Join(failedTags, ", "))
	} else {
		b.WriteString("(none)")
	}
	b.WriteString("\n\nValidation failures:\n")
	for _, failure := range failures {
		b.WriteString("- ")
		b.WriteString(failure)
		b.WriteString("\n")
	}
	if mandatory := validate.MandatoryDimensions(category); len(mandatory) > 0 {
		b.WriteString("\nA valid ")
		b.WriteString(category)
		b.WriteString(" product must include at least one tag from each of these dimensions: ")
		b.WriteString(strings.Join(mandatory, ", "))
		b.WriteString(".\n")
	}
	b.WriteString("\nAllowed vocabulary:\n")
	b.WriteString(cascade.VocabularyBlock(s, category))
	b.WriteString("\nProduce a corrected tag set that resolves every failure above, using only the allowed vocabulary.")
	return b.String()
}
