package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"tagforge/internal/auditstore"
	"tagforge/internal/cascade"
	"tagforge/internal/config"
	"tagforge/internal/llm"
	"tagforge/internal/logging"
	"tagforge/internal/products"
	"tagforge/internal/recovery"
	"tagforge/internal/rules"
	"tagforge/internal/schema"
)

// SuggesterFactory builds one inference client per worker so connections are
// never shared across workers.
type SuggesterFactory func() cascade.Suggester

// Runner coordinates a tagging run end to end.
type Runner struct {
	cfg          *config.Config
	store        *auditstore.Store
	cache        *schema.Cache
	logger       *slog.Logger
	newSuggester SuggesterFactory
}

// Option configures optional Runner behavior.
type Option func(*Runner)

// WithSuggesterFactory overrides how worker inference clients are built
// (used in tests).
func WithSuggesterFactory(factory SuggesterFactory) Option {
	return func(r *Runner) {
		if factory != nil {
			r.newSuggester = factory
		}
	}
}

// New constructs a Runner.
func New(cfg *config.Config, store *auditstore.Store, cache *schema.Cache, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		store:  store,
		cache:  cache,
		logger: logging.WithComponent(logger, "runner"),
	}
	limiter := llm.NewLimiter(cfg.Inference.RequestsPerSecond)
	r.newSuggester = defaultSuggesterFactory(cfg, limiter)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func defaultSuggesterFactory(cfg *config.Config, limiter *rate.Limiter) SuggesterFactory {
	return func() cascade.Suggester {
		return llm.NewClient(llm.Config{
			APIKey:         cfg.Inference.APIKey,
			BaseURL:        cfg.Inference.BaseURL,
			TimeoutSeconds: cfg.Inference.TimeoutSeconds,
		}, llm.WithLimiter(limiter))
	}
}

// RunOptions control one invocation of Run.
type RunOptions struct {
	// RunID resumes an existing run when it matches a prior invocation;
	// empty generates a fresh id.
	RunID string
	// Workers overrides the configured pool size when positive.
	Workers int
	// DisableAI forces the rule-only path regardless of configuration.
	DisableAI bool
}

// Run processes records through the pipeline. Products already persisted
// under the run id are skipped. A cancelled context stops the pool and
// leaves the run status as running so it can be resumed; only a fully
// drained queue seals the run.
func (r *Runner) Run(ctx context.Context, records []products.Record, opts RunOptions) (*Summary, error) {
	workers := r.cfg.Runner.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}
	if workers < 1 {
		workers = 1
	}
	aiEnabled := r.cfg.Inference.Enabled && !opts.DisableAI

	lock := flock.New(r.store.Path() + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is already active on %s", r.store.Path())
	}
	defer func() {
		_ = lock.Unlock()
	}()

	run, err := r.store.StartRun(ctx, opts.RunID, r.configJSON())
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	processed, err := r.store.ProcessedHandles(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("load processed handles: %w", err)
	}
	pending := make([]products.Record, 0, len(records))
	for _, record := range records {
		if _, done := processed[record.Handle]; done {
			continue
		}
		pending = append(pending, record)
	}
	skipped := len(records) - len(pending)

	r.logger.Info("run started",
		logging.String(logging.FieldRunID, run.ID),
		logging.Int("products", len(records)),
		logging.Int("resumed", skipped),
		logging.Int("workers", workers),
		logging.Bool("ai_enabled", aiEnabled),
	)

	window := time.Duration(r.cfg.Runner.ThroughputWindowSeconds) * time.Second
	agg := newAggregator(run.ID, len(records), skipped, window, r.logger)
	go agg.run()

	jobs := make(chan products.Record)
	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer close(jobs)
		for _, record := range pending {
			select {
			case jobs <- record:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		worker := i
		group.Go(func() error {
			session := r.newSession(run.ID, worker, aiEnabled)
			for record := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				agg.events <- completionEvent{
					handle:      record.Handle,
					disposition: session.process(gctx, record),
				}
			}
			return nil
		})
	}

	runErr := group.Wait()
	close(agg.events)
	summary := <-agg.done

	if runErr != nil {
		r.logger.Warn("run interrupted, leaving status running",
			logging.String(logging.FieldRunID, run.ID),
			logging.Int("processed", summary.Processed),
			logging.Error(runErr),
		)
		return &summary, runErr
	}

	// Sealing with failed products would strand them: a completed run
	// refuses resume, so the missing rows could never be written.
	if summary.Failed > 0 {
		r.logger.Warn("run left open, products failed to persist",
			logging.String(logging.FieldRunID, run.ID),
			logging.Int("failed", summary.Failed),
		)
		return &summary, fmt.Errorf("%d products failed to persist; rerun with run id %s to retry them", summary.Failed, run.ID)
	}

	if err := r.store.CompleteRun(ctx, run.ID); err != nil {
		return &summary, fmt.Errorf("complete run: %w", err)
	}
	summary.Completed = true

	r.logger.Info("run completed",
		logging.String(logging.FieldRunID, run.ID),
		logging.Int("processed", summary.Processed),
		logging.Int("clean", summary.Clean),
		logging.Int("review", summary.Review),
		logging.Int("untagged", summary.Untagged),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", summary.Elapsed),
	)
	return &summary, nil
}

func (r *Runner) newSession(runID string, worker int, aiEnabled bool) *workerSession {
	logger := r.logger.With(logging.Int(logging.FieldWorker, worker))
	session := &workerSession{
		runID:     runID,
		aiEnabled: aiEnabled,
		extractor: rules.NewExtractor(logger),
		store:     r.store,
		cache:     r.cache,
		logger:    logger,
	}
	if aiEnabled {
		client := r.newSuggester()
		session.cascade = cascade.New(client, cascade.Config{
			PrimaryModel:        r.cfg.Inference.PrimaryModel,
			SecondaryModel:      r.cfg.Inference.SecondaryModel,
			TertiaryModel:       r.cfg.Inference.TertiaryModel,
			ConfidenceThreshold: r.cfg.Inference.ConfidenceThreshold,
			Temperature:         r.cfg.Inference.Temperature,
		}, logger)
		session.recoverer = recovery.New(client, recovery.Config{
			Model:       r.cfg.Inference.TertiaryModel,
			Temperature: r.cfg.Inference.RecoveryTemperature,
		}, logger)
	}
	return session
}

// configJSON serializes the run configuration for the audit trail with the
// API key redacted.
func (r *Runner) configJSON() string {
	redacted := *r.cfg
	redacted.Inference.APIKey = ""
	data, err := json.Marshal(redacted)
	if err != nil {
		return "{}"
	}
	return string(data)
}
