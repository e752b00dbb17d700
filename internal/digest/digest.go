// Package digest schedules a periodic activity summary posted through the
// normal relay pipeline, so it obeys the same ordering and rate limits as
// player chat.
package digest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/semaphore/internal/bridge"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Scheduler enqueues a stats digest on a cron schedule.
type Scheduler struct {
	expr     string
	queue    *bridge.Queue
	stats    *bridge.Stats
	maxQueue int
	sender   string
}

// SchedulerOpts holds parameters for creating a digest Scheduler.
type SchedulerOpts struct {
	Cron     string // 5-field cron expression
	Queue    *bridge.Queue
	Stats    *bridge.Stats
	MaxQueue int    // intake occupancy cap, respected like any producer
	Sender   string // display name for the digest message
}

// NewScheduler creates a digest scheduler. The cron expression is validated
// up front so a bad schedule fails at startup, not at fire time.
func NewScheduler(opts SchedulerOpts) (*Scheduler, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("digest: queue is required")
	}
	if opts.Stats == nil {
		return nil, fmt.Errorf("digest: stats is required")
	}
	if _, err := cronParser.Parse(opts.Cron); err != nil {
		return nil, fmt.Errorf("digest: parse cron %q: %w", opts.Cron, err)
	}
	sender := opts.Sender
	if sender == "" {
		sender = "Semaphore"
	}
	return &Scheduler{
		expr:     opts.Cron,
		queue:    opts.Queue,
		stats:    opts.Stats,
		maxQueue: opts.MaxQueue,
		sender:   sender,
	}, nil
}

// Run fires digests until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	sched, err := cronParser.Parse(s.expr)
	if err != nil {
		return // validated in NewScheduler
	}

	timer := time.NewTimer(time.Until(sched.Next(time.Now())))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.fire()
			timer.Reset(time.Until(sched.Next(time.Now())))
		}
	}
}

// fire enqueues one digest event, skipping when the queue is at capacity —
// a summary is not worth displacing player chat.
func (s *Scheduler) fire() {
	if s.maxQueue > 0 && s.queue.Len() >= s.maxQueue {
		log.Printf("digest: queue full, digest skipped")
		return
	}

	s.queue.Enqueue(bridge.Event{
		Sender:     s.sender,
		Radius:     "system",
		Message:    s.Build(),
		ReceivedAt: time.Now(),
	})
	log.Printf("digest: activity digest queued")
}

// Build renders the digest text from the current stats.
func (s *Scheduler) Build() string {
	t := s.stats.Totals()
	recv, sent := s.stats.PerMinute()
	return fmt.Sprintf(
		"Activity digest — uptime %s. Received %d, sent %d, dropped %d, failed %d. "+
			"Current throughput %.1f recv/min, %.1f sent/min. Rate limits: %d.",
		bridge.FormatUptime(s.stats.Uptime()), t.Received, t.Sent, t.Dropped, t.Failed,
		recv, sent, t.RateLimits,
	)
}
