package runner

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	_ "modernc.org/sqlite"

	"tagforge/internal/auditstore"
	"tagforge/internal/cascade"
	"tagforge/internal/llm"
	"tagforge/internal/logging"
	"tagforge/internal/products"
	"tagforge/internal/testsupport"
)

type fakeSuggester struct {
	mu         sync.Mutex
	calls      int
	suggestion llm.Suggestion
	err        error
}

func (f *fakeSuggester) SuggestTags(_ context.Context, _ llm.Request) (llm.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.suggestion, f.err
}

func (f *fakeSuggester) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestRunner(t *testing.T, suggester cascade.Suggester) (*Runner, *auditstore.Store) {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	store := testsupport.OpenStore(t, cfg)
	cache := testsupport.NewSchemaCache(t, cfg)

	runner := New(cfg, store, cache, logging.NewNop(), WithSuggesterFactory(func() cascade.Suggester {
		return suggester
	}))
	return runner, store
}

func testRecords() []products.Record {
	return []products.Record{
		{Handle: "straw-ice-10ml", Title: "Strawberry Ice 10ml 3mg Nic Salt E-Liquid"},
		{Handle: "widget", Title: "Widget Thing"},
		{Handle: "cbd-oil-1000", Title: "CBD Oil 1000mg Full Spectrum 30ml"},
		{Handle: "cbd-gummies-500", Title: "CBD Gummies 500mg"},
	}
}

func TestRunProcessesAndPartitions(t *testing.T) {
	suggester := &fakeSuggester{suggestion: llm.Suggestion{Confidence: 0.9}}
	runner, store := newTestRunner(t, suggester)

	summary, err := runner.Run(context.Background(), testRecords(), RunOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if !summary.Completed || summary.Processed != 4 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Clean != 2 || summary.Review != 1 || summary.Untagged != 1 {
		t.Fatalf("unexpected partitions: %+v", summary)
	}

	status, err := store.RunStatus(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("run status: %v", err)
	}
	if status != auditstore.StatusCompleted {
		t.Fatalf("expected completed run, got %q", status)
	}

	results, err := store.ResultsForRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 persisted rows, got %d", len(results))
	}
	for _, result := range results {
		for _, tag := range result.FinalTags {
			if tag == "25mg" {
				t.Fatalf("illegal strength persisted: %+v", result)
			}
		}
	}
}

func TestRunRecoveryFlagsReview(t *testing.T) {
	suggester := &fakeSuggester{suggestion: llm.Suggestion{Confidence: 0.9}}
	runner, store := newTestRunner(t, suggester)

	record := products.Record{Handle: "cbd-gummies-500", Title: "CBD Gummies 500mg"}
	if _, err := runner.Run(context.Background(), []products.Record{record}, RunOptions{RunID: "run-1"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	results, err := store.ResultsForRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	got := results[0]
	if !got.NeedsReview {
		t.Fatalf("product that reached recovery must be flagged: %+v", got)
	}
	if len(got.FailureReasons) == 0 {
		t.Fatalf("failure reasons must be preserved: %+v", got)
	}
}

func TestRunResumeSkipsPersistedHandles(t *testing.T) {
	suggester := &fakeSuggester{suggestion: llm.Suggestion{Confidence: 0.9}}
	runner, store := newTestRunner(t, suggester)
	ctx := context.Background()

	if _, err := store.StartRun(ctx, "run-1", "{}"); err != nil {
		t.Fatalf("start run: %v", err)
	}
	if err := store.InsertResult(ctx, &auditstore.Result{RunID: "run-1", Handle: "straw-ice-10ml"}); err != nil {
		t.Fatalf("seed result: %v", err)
	}

	summary, err := runner.Run(ctx, testRecords(), RunOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Skipped != 1 {
		t.Fatalf("expected one skipped handle, got %+v", summary)
	}

	count, err := store.CountResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected exactly one row per handle, got %d", count)
	}
}

type cancellingSuggester struct {
	once   sync.Once
	cancel context.CancelFunc
}

func (s *cancellingSuggester) SuggestTags(ctx context.Context, _ llm.Request) (llm.Suggestion, error) {
	s.once.Do(s.cancel)
	select {
	case <-ctx.Done():
		return llm.Suggestion{}, ctx.Err()
	default:
		return llm.Suggestion{}, errors.New("endpoint unavailable")
	}
}

func TestRunCancelledLeavesRunStatusRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	suggester := &cancellingSuggester{cancel: cancel}
	runner, store := newTestRunner(t, suggester)

	_, err := runner.Run(ctx, testRecords(), RunOptions{RunID: "run-1"})
	if err == nil {
		t.Fatal("expected error from cancelled run")
	}

	status, err := store.RunStatus(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("run status: %v", err)
	}
	if status != auditstore.StatusRunning {
		t.Fatalf("interrupted run must stay running, got %q", status)
	}

	// Resume finishes the work and seals the run.
	summary, err := runner.Run(context.Background(), testRecords(), RunOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if !summary.Completed {
		t.Fatalf("expected completed resume, got %+v", summary)
	}
	if status, _ := store.RunStatus(context.Background(), "run-1"); status != auditstore.StatusCompleted {
		t.Fatalf("expected completed status, got %q", status)
	}
}

func TestRunFailedPersistLeavesRunOpen(t *testing.T) {
	suggester := &fakeSuggester{suggestion: llm.Suggestion{Confidence: 0.9}}
	runner, store := newTestRunner(t, suggester)
	ctx := context.Background()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if _, err := db.Exec(`CREATE TRIGGER reject_widget BEFORE INSERT ON results
		WHEN NEW.handle = 'widget'
		BEGIN SELECT RAISE(ABORT, 'write rejected'); END`); err != nil {
		t.Fatalf("create trigger: %v", err)
	}

	summary, err := runner.Run(ctx, testRecords(), RunOptions{RunID: "run-1"})
	if err == nil {
		t.Fatal("expected error when a product fails to persist")
	}
	if summary.Failed != 1 || summary.Completed {
		t.Fatalf("expected one failed product and an unsealed run, got %+v", summary)
	}
	status, err := store.RunStatus(ctx, "run-1")
	if err != nil {
		t.Fatalf("run status: %v", err)
	}
	if status != auditstore.StatusRunning {
		t.Fatalf("run with failed persists must stay running, got %q", status)
	}

	// Once the write path recovers, rerunning the same run id fills the gap
	// and seals the run.
	if _, err := db.Exec(`DROP TRIGGER reject_widget`); err != nil {
		t.Fatalf("drop trigger: %v", err)
	}
	summary, err = runner.Run(ctx, testRecords(), RunOptions{RunID: "run-1"})
	if err != nil {
		t.Fatalf("retry run: %v", err)
	}
	if !summary.Completed {
		t.Fatalf("expected sealed run after retry, got %+v", summary)
	}
	count, err := store.CountResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected every handle persisted exactly once, got %d", count)
	}
}

func TestRunDisableAISkipsModelCalls(t *testing.T) {
	suggester := &fakeSuggester{suggestion: llm.Suggestion{Confidence: 0.9}}
	runner, store := newTestRunner(t, suggester)

	records := []products.Record{
		{Handle: "straw-ice-10ml", Title: "Strawberry Ice 10ml 3mg Nic Salt E-Liquid"},
		{Handle: "cbd-gummies-500", Title: "CBD Gummies 500mg"},
	}
	summary, err := runner.Run(context.Background(), records, RunOptions{RunID: "run-1", DisableAI: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if suggester.callCount() != 0 {
		t.Fatalf("no model calls expected, got %d", suggester.callCount())
	}
	if summary.Clean != 1 || summary.Review != 1 {
		t.Fatalf("unexpected partitions: %+v", summary)
	}

	results, err := store.ResultsForRun(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	for _, result := range results {
		if result.ModelUsed != "" {
			t.Fatalf("rule-only result must have empty model, got %q", result.ModelUsed)
		}
		if result.Handle == "cbd-gummies-500" && !result.NeedsReview {
			t.Fatalf("invalid rule-only result must be flagged: %+v", result)
		}
	}
}

func TestMergeTags(t *testing.T) {
	got := mergeTags([]string{"3mg", "fruity"}, []string{"fruity", "ice"})
	want := []string{"3mg", "fruity", "ice"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
