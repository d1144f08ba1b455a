package cascade

import (
	"context"
	"log/slog"

	"tagforge/internal/llm"
	"tagforge/internal/logging"
	"tagforge/internal/products"
	"tagforge/internal/schema"
)

// ModelNone marks a result produced without any successful model call.
const ModelNone = "none"

// PolicyAlwaysProduce names the acceptance rule for the last model in the
// chain: its answer is kept even under the confidence threshold so every
// product receives a best-effort tag set rather than none.
const PolicyAlwaysProduce = "always_produce"

// Suggester is the inference surface the cascade needs. *llm.Client
// satisfies it; tests substitute recordings.
type Suggester interface {
	SuggestTags(ctx context.Context, req llm.Request) (llm.Suggestion, error)
}

// Config holds the model chain and acceptance settings.
type Config struct {
	PrimaryModel        string
	SecondaryModel      string
	TertiaryModel       string
	ConfidenceThreshold float64
	Temperature         float64
}

// Result is the accepted cascade outcome for one product.
type Result struct {
	Tags        []string
	Confidence  float64
	ModelUsed   string
	Reasoning   string
	NeedsReview bool
}

// Cascade drives the primary/secondary/tertiary fallback chain.
type Cascade struct {
	client Suggester
	cfg    Config
	logger *slog.Logger
}

// New constructs a Cascade over the given inference client.
func New(client Suggester, cfg Config, logger *slog.Logger) *Cascade {
	return &Cascade{
		client: client,
		cfg:    cfg,
		logger: logging.WithComponent(logger, "cascade"),
	}
}

// Suggest runs the fallback chain for one product. The first model clearing
// the confidence threshold short-circuits the chain. The tertiary model's
// answer is always accepted, flagged for review when under threshold. When
// every call fails the result is empty with model "none" and a review flag;
// the cascade itself never returns an error.
func (c *Cascade) Suggest(ctx context.Context, record products.Record, category string, s *schema.Schema) Result {
	userPrompt := BuildUserPrompt(record, category, s)
	models := []string{c.cfg.PrimaryModel, c.cfg.SecondaryModel, c.cfg.TertiaryModel}

	for i, model := range models {
		suggestion, err := c.client.SuggestTags(ctx, llm.Request{
			Model:        model,
			SystemPrompt: SystemPrompt,
			UserPrompt:   userPrompt,
			Temperature:  c.cfg.Temperature,
		})
		if err != nil {
			c.logger.Warn("model call failed, falling through",
				logging.String(logging.FieldHandle, record.Handle),
				logging.String(logging.FieldModel, model),
				logging.Error(err),
			)
			continue
		}

		accepted := suggestion.Confidence >= c.cfg.ConfidenceThreshold
		tertiary := i == len(models)-1
		if !accepted && !tertiary {
			c.logger.Debug("confidence below threshold, cascading",
				logging.String(logging.FieldHandle, record.Handle),
				logging.String(logging.FieldModel, model),
				logging.Float64("confidence", suggestion.Confidence),
				logging.Float64("threshold", c.cfg.ConfidenceThreshold),
			)
			continue
		}

		if !accepted {
			c.logger.Debug("keeping low-confidence result",
				logging.String(logging.FieldHandle, record.Handle),
				logging.String(logging.FieldModel, model),
				logging.Float64("confidence", suggestion.Confidence),
				logging.String("policy", PolicyAlwaysProduce),
			)
		}
		return Result{
			Tags:        suggestion.Tags,
			Confidence:  suggestion.Confidence,
			ModelUsed:   model,
			Reasoning:   suggestion.Reasoning,
			NeedsReview: !accepted,
		}
	}

	c.logger.Warn("all models failed",
		logging.String(logging.FieldHandle, record.Handle),
		logging.String(logging.FieldModel, ModelNone),
	)
	return Result{
		Tags:        nil,
		Confidence:  0,
		ModelUsed:   ModelNone,
		NeedsReview: true,
	}
}
