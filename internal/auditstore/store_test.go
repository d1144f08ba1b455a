package auditstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStartRunAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.StartRun(ctx, "run-1", `{"workers":4}`)
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if run.ID != "run-1" || run.Status != StatusRunning {
		t.Fatalf("unexpected run: %+v", run)
	}
	if run.ConfigJSON != `{"workers":4}` {
		t.Fatalf("unexpected config json: %q", run.ConfigJSON)
	}

	status, err := store.RunStatus(ctx, "run-1")
	if err != nil {
		t.Fatalf("run status: %v", err)
	}
	if status != StatusRunning {
		t.Fatalf("expected running, got %q", status)
	}
}

func TestStartRunGeneratesID(t *testing.T) {
	store := newTestStore(t)

	run, err := store.StartRun(context.Background(), "", "{}")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	if run.ID == "" {
		t.Fatal("expected generated run id")
	}
}

func TestStartRunResumesRunningRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.StartRun(ctx, "run-1", "{}")
	if err != nil {
		t.Fatalf("start run: %v", err)
	}
	second, err := store.StartRun(ctx, "run-1", `{"changed":true}`)
	if err != nil {
		t.Fatalf("resume run: %v", err)
	}
	if second.ID != first.ID || second.Status != StatusRunning {
		t.Fatalf("expected resumed run, got %+v", second)
	}
	// The original configuration is kept on resume.
	if second.ConfigJSON != "{}" {
		t.Fatalf("resume must not overwrite config, got %q", second.ConfigJSON)
	}
}

func TestCompleteRunSealsAndRefusesResume(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.CompleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("complete run: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !run.Completed() || run.CompletedAt == nil {
		t.Fatalf("expected sealed run, got %+v", run)
	}

	if err := store.CompleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("complete must be idempotent: %v", err)
	}
	if _, err := store.StartRun(ctx, "run-1", "{}"); !errors.Is(err, ErrRunCompleted) {
		t.Fatalf("expected ErrRunCompleted, got %v", err)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestInsertResultRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}

	result := &Result{
		RunID:          "run-1",
		Handle:         "straw-ice-10ml",
		Category:       "e-liquid",
		RuleTags:       []string{"3mg", "fruity"},
		AITags:         []string{"3mg", "fruity", "ice"},
		FinalTags:      []string{"3mg", "fruity", "ice"},
		Confidence:     0.92,
		ModelUsed:      "primary",
		NeedsReview:    false,
		FailureReasons: nil,
		Reasoning:      "strength and flavors in title",
	}
	if err := store.InsertResult(ctx, result); err != nil {
		t.Fatalf("insert result: %v", err)
	}
	if result.ID == 0 || result.CreatedAt.IsZero() {
		t.Fatalf("insert must populate id and timestamp: %+v", result)
	}

	results, err := store.ResultsForRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("results for run: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	got := results[0]
	if got.Handle != result.Handle || got.Category != result.Category {
		t.Fatalf("unexpected result: %+v", got)
	}
	if len(got.FinalTags) != 3 || got.FinalTags[2] != "ice" {
		t.Fatalf("unexpected final tags: %v", got.FinalTags)
	}
	if got.Confidence != 0.92 || got.ModelUsed != "primary" || got.NeedsReview {
		t.Fatalf("unexpected result fields: %+v", got)
	}
	if got.Reasoning != result.Reasoning {
		t.Fatalf("unexpected reasoning: %q", got.Reasoning)
	}
}

func TestInsertResultDuplicate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	first := &Result{RunID: "run-1", Handle: "dup"}
	if err := store.InsertResult(ctx, first); err != nil {
		t.Fatalf("insert result: %v", err)
	}

	second := &Result{RunID: "run-1", Handle: "dup"}
	if err := store.InsertResult(ctx, second); !errors.Is(err, ErrDuplicateResult) {
		t.Fatalf("expected ErrDuplicateResult, got %v", err)
	}

	// Same handle under a different run is fine.
	if _, err := store.StartRun(ctx, "run-2", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	other := &Result{RunID: "run-2", Handle: "dup"}
	if err := store.InsertResult(ctx, other); err != nil {
		t.Fatalf("insert under second run: %v", err)
	}
}

func TestProcessedHandles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	for _, handle := range []string{"a", "b", "c"} {
		if err := store.InsertResult(ctx, &Result{RunID: "run-1", Handle: handle}); err != nil {
			t.Fatalf("insert %s: %v", handle, err)
		}
	}

	handles, err := store.ProcessedHandles(ctx, "run-1")
	if err != nil {
		t.Fatalf("processed handles: %v", err)
	}
	if len(handles) != 3 {
		t.Fatalf("expected 3 handles, got %d", len(handles))
	}
	if _, ok := handles["b"]; !ok {
		t.Fatalf("expected handle b in %v", handles)
	}

	count, err := store.CountResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("count results: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}
}

func TestLatestRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if latest, err := store.LatestRun(ctx); err != nil || latest != nil {
		t.Fatalf("expected no latest run, got %v err %v", latest, err)
	}

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run-1: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, err := store.StartRun(ctx, "run-2", "{}"); err != nil {
		t.Fatalf("start run-2: %v", err)
	}

	latest, err := store.LatestRun(ctx)
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if latest == nil || latest.ID != "run-2" {
		t.Fatalf("expected run-2 latest, got %+v", latest)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-2" {
		t.Fatalf("expected newest-first listing, got %+v", runs)
	}
}

func TestConcurrentInsertsDistinctHandles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}

	const writers = 8
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(n int) {
			errCh <- store.InsertResult(ctx, &Result{
				RunID:  "run-1",
				Handle: string(rune('a' + n)),
			})
		}(i)
	}
	for i := 0; i < writers; i++ {
		if err := <-errCh; err != nil {
			t.Fatalf("concurrent insert: %v", err)
		}
	}

	count, err := store.CountResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != writers {
		t.Fatalf("expected %d rows, got %d", writers, count)
	}
}
