package runner

import (
	"log/slog"
	"time"

	"tagforge/internal/logging"
)

// disposition is the final bucket a product lands in.
type disposition string

const (
	dispositionClean    disposition = "clean"
	dispositionReview   disposition = "review"
	dispositionUntagged disposition = "untagged"
	dispositionSkipped  disposition = "skipped"
	dispositionFailed   disposition = "failed"
)

// progressLogEvery controls how often the aggregator logs a progress line.
const progressLogEvery = 25

type completionEvent struct {
	handle      string
	disposition disposition
}

// Summary is the run outcome reported to the caller.
type Summary struct {
	RunID     string
	Total     int
	Skipped   int
	Processed int
	Clean     int
	Review    int
	Untagged  int
	Failed    int
	Elapsed   time.Duration
	Completed bool
}

// slidingWindow tracks completion instants inside a fixed window so the
// throughput estimate is not skewed by a slow start or a stall long past.
type slidingWindow struct {
	window time.Duration
	times  []time.Time
}

func newSlidingWindow(window time.Duration) *slidingWindow {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &slidingWindow{window: window}
}

func (w *slidingWindow) add(now time.Time) {
	w.times = append(w.times, now)
	w.trim(now)
}

func (w *slidingWindow) trim(now time.Time) {
	cutoff := now.Add(-w.window)
	idx := 0
	for idx < len(w.times) && w.times[idx].Before(cutoff) {
		idx++
	}
	if idx > 0 {
		w.times = append(w.times[:0], w.times[idx:]...)
	}
}

// rate returns completions per second over the window.
func (w *slidingWindow) rate(now time.Time) float64 {
	w.trim(now)
	if len(w.times) == 0 {
		return 0
	}
	span := now.Sub(w.times[0])
	if span <= 0 {
		span = time.Second
	}
	if span > w.window {
		span = w.window
	}
	return float64(len(w.times)) / span.Seconds()
}

// eta estimates time to drain the remaining items at the current rate.
// Zero remaining or a zero rate yields zero.
func (w *slidingWindow) eta(now time.Time, remaining int) time.Duration {
	if remaining <= 0 {
		return 0
	}
	rate := w.rate(now)
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(remaining)/rate*float64(time.Second)).Round(time.Second)
}

// aggregator owns every run-level counter. Workers report completions over
// a channel; nothing else touches the counts, so no locking is needed.
type aggregator struct {
	events  chan completionEvent
	done    chan Summary
	logger  *slog.Logger
	window  *slidingWindow
	now     func() time.Time
	pending int
	summary Summary
}

func newAggregator(runID string, total, skipped int, window time.Duration, logger *slog.Logger) *aggregator {
	return &aggregator{
		events: make(chan completionEvent, 64),
		done:   make(chan Summary, 1),
		logger: logging.WithComponent(logger, "progress"),
		window: newSlidingWindow(window),
		now:    time.Now,
		summary: Summary{
			RunID:   runID,
			Total:   total,
			Skipped: skipped,
		},
		pending: total - skipped,
	}
}

// run consumes completion events until the channel closes, then delivers the
// final summary.
func (a *aggregator) run() {
	started := a.now()
	for event := range a.events {
		a.apply(event)
		if a.summary.Processed%progressLogEvery == 0 {
			a.logProgress()
		}
	}
	a.summary.Elapsed = a.now().Sub(started)
	a.done <- a.summary
}

func (a *aggregator) apply(event completionEvent) {
	switch event.disposition {
	case dispositionClean:
		a.summary.Clean++
	case dispositionReview:
		a.summary.Review++
	case dispositionUntagged:
		a.summary.Untagged++
	case dispositionSkipped:
		a.summary.Skipped++
	case dispositionFailed:
		a.summary.Failed++
	}
	a.summary.Processed++
	a.window.add(a.now())
}

func (a *aggregator) logProgress() {
	now := a.now()
	remaining := a.pending - a.summary.Processed
	a.logger.Info("run progress",
		logging.String(logging.FieldRunID, a.summary.RunID),
		logging.Int("processed", a.summary.Processed),
		logging.Int("remaining", remaining),
		logging.Float64("rate_per_sec", a.window.rate(now)),
		logging.Duration("eta", a.window.eta(now, remaining)),
	)
}
