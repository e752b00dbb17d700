package bridge

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	// backoffSleepCap bounds each sleep while a rate-limit backoff is
	// active. The worker keeps re-entering collection between sleeps so
	// intake never starves for the full penalty duration.
	backoffSleepCap = 500 * time.Millisecond
	// panicPause is how long the worker pauses after recovering from an
	// unexpected panic before resuming the loop.
	panicPause = time.Second
)

// Recorder archives successfully delivered events. Best-effort: errors are
// logged by the worker, never retried.
type Recorder interface {
	Record(events []Event) error
}

// Notifier delivers operator alerts. Implementations must be non-blocking
// best-effort.
type Notifier interface {
	Notify(kind, title, text string)
}

// Worker is the dispatch loop: it drains the intake queue into time-boxed
// batches, splits them under the character budget, sends them in order, and
// carries undeliverable events into the next cycle. It is the queue's only
// consumer; the retry backlog is private to the loop and needs no locking.
type Worker struct {
	queue  *Queue
	stats  *Stats
	sender BatchSender
	format FormatFunc

	window       time.Duration
	maxBatch     int
	interDelay   time.Duration
	maxRequests  int // per cycle, 0 = unlimited
	maxBacklog   int
	safeLimit    int
	hardLimit    int
	summaryEvery time.Duration

	recorder Recorder // optional
	notifier Notifier // optional

	backlog      []Event
	backoffUntil time.Time
	lastSummary  time.Time
}

// WorkerOpts holds parameters for creating a Worker.
type WorkerOpts struct {
	Queue  *Queue
	Stats  *Stats
	Sender BatchSender
	Format FormatFunc

	Window          time.Duration // batch collection window
	MaxBatch        int           // max events collected per cycle
	InterDelay      time.Duration // pause between requests within a cycle
	MaxRequests     int           // max requests per cycle, 0 = unlimited
	MaxBacklog      int           // retry backlog cap
	SafeLimit       int           // character budget per request
	HardLimit       int           // transport character ceiling
	SummaryInterval time.Duration // periodic stats log interval

	Recorder Recorder // optional message archive
	Notifier Notifier // optional operator alerts
}

// NewWorker creates a dispatch worker.
func NewWorker(opts WorkerOpts) (*Worker, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("worker: queue is required")
	}
	if opts.Stats == nil {
		return nil, fmt.Errorf("worker: stats is required")
	}
	if opts.Sender == nil {
		return nil, fmt.Errorf("worker: sender is required")
	}
	if opts.Format == nil {
		return nil, fmt.Errorf("worker: format is required")
	}
	if opts.Window <= 0 {
		return nil, fmt.Errorf("worker: window must be positive")
	}
	if opts.MaxBatch <= 0 {
		return nil, fmt.Errorf("worker: max batch must be positive")
	}
	return &Worker{
		queue:        opts.Queue,
		stats:        opts.Stats,
		sender:       opts.Sender,
		format:       opts.Format,
		window:       opts.Window,
		maxBatch:     opts.MaxBatch,
		interDelay:   opts.InterDelay,
		maxRequests:  opts.MaxRequests,
		maxBacklog:   opts.MaxBacklog,
		safeLimit:    opts.SafeLimit,
		hardLimit:    opts.HardLimit,
		summaryEvery: opts.SummaryInterval,
		recorder:     opts.Recorder,
		notifier:     opts.Notifier,
		lastSummary:  time.Now(),
	}, nil
}

// Run executes the dispatch loop until ctx is cancelled. Any panic inside a
// cycle is logged and followed by a short pause; the loop itself never exits
// on error.
func (w *Worker) Run(ctx context.Context) {
	log.Printf("worker: started (window %s, max batch %d)", w.window, w.maxBatch)
	for ctx.Err() == nil {
		w.runCycle(ctx)
	}
	log.Printf("worker: stopped (%d events abandoned in backlog)", len(w.backlog))
}

// runCycle performs one collect-then-send iteration.
func (w *Worker) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker: cycle panic: %v", r)
			sleepCtx(ctx, panicPause)
		}
	}()

	events := w.collect(ctx)
	w.stats.UpdateQueueSize(w.queue.Len())

	if remaining := time.Until(w.backoffUntil); remaining > 0 {
		// Backoff active: hold everything, keep collecting next cycle.
		w.backlog = events
		sleepCtx(ctx, minDuration(backoffSleepCap, remaining))
		return
	}

	if len(events) > 0 {
		w.sendCycle(ctx, events)
		w.trimBacklog()
	}

	w.maybeLogSummary()
}

// collect starts from the previous cycle's backlog (oldest first) and drains
// the intake queue until the window elapses or the batch cap is reached.
func (w *Worker) collect(ctx context.Context) []Event {
	events := w.backlog
	w.backlog = nil

	deadline := time.Now().Add(w.window)
	for len(events) < w.maxBatch {
		if ctx.Err() != nil {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		ev, ok := w.queue.Dequeue(remaining)
		if !ok {
			break
		}
		events = append(events, ev)
	}
	return events
}

// sendCycle splits the cycle's events into batches and sends them in order,
// pausing between requests to stay under Discord's burst limit. On failure
// the unsent remainder is carried into the backlog in original order.
func (w *Worker) sendCycle(ctx context.Context, events []Event) {
	batches := BuildBatches(events, w.format, w.safeLimit, w.hardLimit)
	requests := 0

	for i, batch := range batches {
		if w.maxRequests > 0 && requests >= w.maxRequests {
			deferred := remainingEvents(batches[i:])
			w.backlog = append(w.backlog, deferred...)
			log.Printf("worker: request cap (%d/cycle) reached, %d message(s) deferred", w.maxRequests, len(deferred))
			return
		}

		if requests > 0 && w.interDelay > 0 {
			sleepCtx(ctx, w.interDelay)
		}

		outcome := w.sender.Send(ctx, batch.Content)
		requests++

		switch outcome.Kind {
		case OutcomeSuccess:
			w.stats.RecordSent(len(batch.Events))
			now := time.Now()
			for _, ev := range batch.Events {
				w.stats.RecordLatency(now.Sub(ev.ReceivedAt))
			}
			if w.recorder != nil {
				if err := w.recorder.Record(batch.Events); err != nil {
					log.Printf("worker: archive: %v", err)
				}
			}
			log.Printf("worker: sent %d message(s) [req %d] | queue: %d", len(batch.Events), requests, w.queue.Len())

		case OutcomeRateLimited:
			w.stats.RecordRateLimit(outcome.Scope)
			w.backlog = append(w.backlog, remainingEvents(batches[i:])...)
			w.backoffUntil = time.Now().Add(outcome.RetryAfter)
			log.Printf("worker: rate limited (%s), resuming in %s | queue: %d", outcome.Scope, outcome.RetryAfter, w.queue.Len())
			if outcome.Scope == ScopeGlobal && w.notifier != nil {
				w.notifier.Notify("rate-limit-global", "Global rate limit hit",
					fmt.Sprintf("Discord global rate limit, backing off %s. Reduce traffic.", outcome.RetryAfter))
			}
			return

		case OutcomeTransientFailure:
			w.backlog = append(w.backlog, remainingEvents(batches[i:])...)
			w.backoffUntil = time.Now().Add(outcome.RetryAfter)
			log.Printf("worker: transient send failure, retrying in %s | queue: %d", outcome.RetryAfter, w.queue.Len())
			return

		case OutcomePermanentReject:
			// This batch will never be accepted. Drop it, keep going with
			// the rest so one poisoned payload cannot dam the pipeline.
			w.stats.RecordFailed(len(batch.Events))
			log.Printf("worker: %d message(s) permanently rejected by Discord, abandoned", len(batch.Events))
			if w.notifier != nil {
				w.notifier.Notify("permanent-reject", "Messages rejected by Discord",
					fmt.Sprintf("%d message(s) permanently rejected and abandoned.", len(batch.Events)))
			}
		}
	}
}

// trimBacklog evicts the oldest backlog entries above the cap, accounting
// every eviction as a drop.
func (w *Worker) trimBacklog() {
	if w.maxBacklog <= 0 || len(w.backlog) <= w.maxBacklog {
		return
	}
	dropped := len(w.backlog) - w.maxBacklog
	w.backlog = w.backlog[dropped:]
	w.stats.RecordDropped(dropped)
	log.Printf("worker: retry backlog full, %d message(s) abandoned", dropped)
	if w.notifier != nil {
		w.notifier.Notify("backlog-overflow", "Retry backlog overflow",
			fmt.Sprintf("%d message(s) dropped from the retry backlog.", dropped))
	}
}

// maybeLogSummary emits the periodic throughput summary.
func (w *Worker) maybeLogSummary() {
	if w.summaryEvery <= 0 || time.Since(w.lastSummary) < w.summaryEvery {
		return
	}
	recv, sent := w.stats.PerMinute()
	t := w.stats.Totals()
	log.Printf("worker: [stats] recv %.1f/min | sent %.1f/min | req %.1f/min | queue %d (peak %d) | lost %d | rate limits %d (G:%d/S:%d/U:%d)",
		recv, sent, w.stats.RequestsPerMinute(), w.queue.Len(), t.PeakQueue, t.Dropped,
		t.RateLimits, t.Global, t.Shared, t.User)
	w.lastSummary = time.Now()
}

// remainingEvents flattens the events of the given batches in order.
func remainingEvents(batches []Batch) []Event {
	var events []Event
	for _, b := range batches {
		events = append(events, b.Events...)
	}
	return events
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
