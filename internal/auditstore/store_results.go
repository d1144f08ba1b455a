package auditstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const resultColumns = "id, run_id, handle, category, rule_tags, ai_tags, final_tags, confidence, model_used, needs_review, failure_reasons, reasoning, created_at"

// InsertResult records one tagging result as a single atomic write.
// ErrDuplicateResult is returned when the (run id, handle) pair already has
// a row; callers use this to detect racing duplicates during resume.
func (s *Store) InsertResult(ctx context.Context, result *Result) error {
	if result == nil {
		return fmt.Errorf("insert result: result is nil")
	}
	if result.RunID == "" || result.Handle == "" {
		return fmt.Errorf("insert result: run id and handle required")
	}

	ruleTags, err := marshalTags(result.RuleTags)
	if err != nil {
		return fmt.Errorf("insert result: marshal rule tags: %w", err)
	}
	aiTags, err := marshalTags(result.AITags)
	if err != nil {
		return fmt.Errorf("insert result: marshal ai tags: %w", err)
	}
	finalTags, err := marshalTags(result.FinalTags)
	if err != nil {
		return fmt.Errorf("insert result: marshal final tags: %w", err)
	}
	failureReasons, err := marshalTags(result.FailureReasons)
	if err != nil {
		return fmt.Errorf("insert result: marshal failure reasons: %w", err)
	}

	createdAt := result.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO results (
            run_id, handle, category, rule_tags, ai_tags, final_tags,
            confidence, model_used, needs_review, failure_reasons, reasoning, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.Handle,
		result.Category,
		ruleTags,
		aiTags,
		finalTags,
		result.Confidence,
		result.ModelUsed,
		boolToInt(result.NeedsReview),
		failureReasons,
		result.Reasoning,
		createdAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %s handle %s: %w", result.RunID, result.Handle, ErrDuplicateResult)
		}
		return fmt.Errorf("insert result: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert result: last insert id: %w", err)
	}
	result.ID = id
	result.CreatedAt = createdAt
	return nil
}

// ProcessedHandles returns the handles already persisted for a run. Resume
// logic depends only on membership in this set.
func (s *Store) ProcessedHandles(ctx context.Context, runID string) (map[string]struct{}, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT handle FROM results WHERE run_id = ?`, runID)
	if err != nil {
		return nil, fmt.Errorf("processed handles: %w", err)
	}
	defer rows.Close()

	handles := make(map[string]struct{})
	for rows.Next() {
		var handle string
		if err := rows.Scan(&handle); err != nil {
			return nil, fmt.Errorf("scan handle: %w", err)
		}
		handles[handle] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate handles: %w", err)
	}
	return handles, nil
}

// ResultsForRun returns every result persisted for a run, ordered by handle.
func (s *Store) ResultsForRun(ctx context.Context, runID string) ([]*Result, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM results WHERE run_id = ? ORDER BY handle`, runID)
	if err != nil {
		return nil, fmt.Errorf("results for run: %w", err)
	}
	defer rows.Close()

	var results []*Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// CountResults returns the number of persisted results for a run.
func (s *Store) CountResults(ctx context.Context, runID string) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM results WHERE run_id = ?`, runID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count results: %w", err)
	}
	return count, nil
}

func scanResult(row rowScanner) (*Result, error) {
	var (
		result         Result
		ruleTags       string
		aiTags         string
		finalTags      string
		failureReasons string
		needsReview    int
		createdAt      string
	)
	if err := row.Scan(
		&result.ID,
		&result.RunID,
		&result.Handle,
		&result.Category,
		&ruleTags,
		&aiTags,
		&finalTags,
		&result.Confidence,
		&result.ModelUsed,
		&needsReview,
		&failureReasons,
		&result.Reasoning,
		&createdAt,
	); err != nil {
		return nil, err
	}

	var err error
	if result.RuleTags, err = unmarshalTags(ruleTags); err != nil {
		return nil, fmt.Errorf("decode rule tags: %w", err)
	}
	if result.AITags, err = unmarshalTags(aiTags); err != nil {
		return nil, fmt.Errorf("decode ai tags: %w", err)
	}
	if result.FinalTags, err = unmarshalTags(finalTags); err != nil {
		return nil, fmt.Errorf("decode final tags: %w", err)
	}
	if result.FailureReasons, err = unmarshalTags(failureReasons); err != nil {
		return nil, fmt.Errorf("decode failure reasons: %w", err)
	}
	result.NeedsReview = needsReview != 0

	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	result.CreatedAt = created
	return &result, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalTags(data string) ([]string, error) {
	if data == "" {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, err
	}
	if len(tags) == 0 {
		return nil, nil
	}
	return tags, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
