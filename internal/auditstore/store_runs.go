package auditstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "id, started_at, completed_at, config_json, status"

// StartRun creates a run row, or resumes an existing one with the same id.
// Resuming a completed run is refused with ErrRunCompleted.
func (s *Store) StartRun(ctx context.Context, runID, configJSON string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		runID = NewRunID()
	}
	now := time.Now().UTC()

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (id, started_at, config_json, status) VALUES (?, ?, ?, ?)`,
		runID,
		now.Format(time.RFC3339Nano),
		configJSON,
		string(StatusRunning),
	)
	if err != nil {
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("insert run: %w", err)
		}
		existing, getErr := s.GetRun(ctx, runID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Completed() {
			return nil, fmt.Errorf("run %s: %w", runID, ErrRunCompleted)
		}
		return existing, nil
	}

	return s.GetRun(ctx, runID)
}

// CompleteRun seals a run. Completing an already sealed run is a no-op.
func (s *Store) CompleteRun(ctx context.Context, runID string) error {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(StatusCompleted),
		now.Format(time.RFC3339Nano),
		runID,
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		existing, getErr := s.GetRun(ctx, runID)
		if getErr != nil {
			return getErr
		}
		if existing.Completed() {
			return nil
		}
		return fmt.Errorf("complete run %s: no row updated", runID)
	}
	return nil
}

// GetRun fetches a run by identifier.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// RunStatus answers "is this run completed?" without loading results.
func (s *Store) RunStatus(ctx context.Context, runID string) (Status, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	return run.Status, nil
}

// LatestRun returns the most recently started run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC LIMIT 1`)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]*Run, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run         Run
		startedAt   string
		completedAt sql.NullString
		status      string
	)
	if err := row.Scan(&run.ID, &startedAt, &completedAt, &run.ConfigJSON, &status); err != nil {
		return nil, err
	}
	started, err := time.Parse(time.RFC3339Nano, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = started
	if completedAt.Valid && completedAt.String != "" {
		completed, err := time.Parse(time.RFC3339Nano, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &completed
	}
	run.Status = Status(status)
	return &run, nil
}
