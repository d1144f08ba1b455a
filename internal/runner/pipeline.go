package runner

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"tagforge/internal/auditstore"
	"tagforge/internal/cascade"
	"tagforge/internal/logging"
	"tagforge/internal/products"
	"tagforge/internal/recovery"
	"tagforge/internal/rules"
	"tagforge/internal/schema"
	"tagforge/internal/validate"
)

// productState tracks a product's position in the pipeline state machine.
type productState string

const (
	statePending           productState = "pending"
	stateRuleExtracted     productState = "rule_extracted"
	stateAIAttempted       productState = "ai_attempted"
	stateValidated         productState = "validated"
	stateRecoveryAttempted productState = "recovery_attempted"
	statePersisted         productState = "persisted"
)

// workerSession is the per-worker pipeline context. Each worker holds its
// own cascade and recoverer (and therefore its own inference connection).
type workerSession struct {
	runID     string
	aiEnabled bool
	extractor *rules.Extractor
	cascade   *cascade.Cascade
	recoverer *recovery.Recoverer
	store     *auditstore.Store
	cache     *schema.Cache
	logger    *slog.Logger
}

// process takes one product from pending to persisted and reports its final
// disposition. Every failure mode short of a persistence error still yields
// a persisted row; a persistence error aborts this product only.
func (ws *workerSession) process(ctx context.Context, record products.Record) disposition {
	state := statePending
	snapshot := ws.cache.Current()

	extraction := ws.extractor.Extract(record, snapshot)
	state = stateRuleExtracted
	category := extraction.Category

	var (
		aiTags      []string
		confidence  float64
		modelUsed   string
		reasoning   string
		needsReview bool
	)

	merged := extraction.Tags
	if ws.aiEnabled {
		aiResult := ws.cascade.Suggest(ctx, record, category, snapshot)
		state = stateAIAttempted
		aiTags = aiResult.Tags
		confidence = aiResult.Confidence
		modelUsed = aiResult.ModelUsed
		reasoning = aiResult.Reasoning
		needsReview = aiResult.NeedsReview
		merged = mergeTags(extraction.Tags, aiResult.Tags)
	}

	report := validate.Check(merged, category, snapshot)
	state = stateValidated

	finalTags := merged
	failures := report.Failures
	if !report.Valid {
		if ws.aiEnabled {
			outcome := ws.recoverer.Attempt(ctx, record, category, merged, report.Failures, snapshot)
			state = stateRecoveryAttempted
			finalTags = outcome.Tags
			failures = outcome.Failures
			if outcome.Recovered {
				confidence = outcome.Confidence
				modelUsed = outcome.ModelUsed
				reasoning = outcome.Reasoning
			}
		}
		needsReview = true
	}

	result := &auditstore.Result{
		RunID:          ws.runID,
		Handle:         record.Handle,
		Category:       category,
		RuleTags:       extraction.Tags,
		AITags:         aiTags,
		FinalTags:      finalTags,
		Confidence:     confidence,
		ModelUsed:      modelUsed,
		NeedsReview:    needsReview,
		FailureReasons: failures,
		Reasoning:      reasoning,
	}

	if err := ws.store.InsertResult(ctx, result); err != nil {
		if errors.Is(err, auditstore.ErrDuplicateResult) {
			ws.logger.Warn("result already persisted, skipping",
				logging.String(logging.FieldRunID, ws.runID),
				logging.String(logging.FieldHandle, record.Handle),
			)
			return dispositionSkipped
		}
		// A lost audit row breaks resume correctness, so this product is
		// aborted loudly rather than counted as done.
		ws.logger.Error("audit write failed, aborting product",
			logging.String(logging.FieldRunID, ws.runID),
			logging.String(logging.FieldHandle, record.Handle),
			logging.String("state", string(state)),
			logging.Error(err),
		)
		return dispositionFailed
	}
	state = statePersisted

	ws.logger.Debug("product persisted",
		logging.String(logging.FieldRunID, ws.runID),
		logging.String(logging.FieldHandle, record.Handle),
		logging.String("state", string(state)),
		logging.String(logging.FieldModel, modelUsed),
		logging.Bool("needs_review", needsReview),
	)

	switch {
	case len(finalTags) == 0:
		return dispositionUntagged
	case needsReview:
		return dispositionReview
	default:
		return dispositionClean
	}
}

// mergeTags unions the rule and AI tag sets, deduplicated and sorted.
func mergeTags(ruleTags, aiTags []string) []string {
	seen := make(map[string]struct{}, len(ruleTags)+len(aiTags))
	merged := make([]string, 0, len(ruleTags)+len(aiTags))
	for _, tags := range [][]string{ruleTags, aiTags} {
		for _, tag := range tags {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			merged = append(merged, tag)
		}
	}
	sort.Strings(merged)
	return merged
}
