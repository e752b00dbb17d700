package bridge

import (
	"sync"
	"time"
)

// Queue is the intake buffer between the HTTP layer and the dispatch worker.
// It is a strict FIFO: any number of producers may Enqueue concurrently, and
// exactly one consumer (the worker) calls Dequeue. The queue itself never
// rejects — callers enforce the configured occupancy cap by checking Len
// before enqueueing and accounting a drop when full.
type Queue struct {
	mu    sync.Mutex
	items []Event
	ready chan struct{} // buffered(1) wakeup signal for the single consumer
}

// NewQueue creates an empty intake queue.
func NewQueue() *Queue {
	return &Queue{
		ready: make(chan struct{}, 1),
	}
}

// Enqueue appends an event to the tail of the queue and wakes the consumer.
func (q *Queue) Enqueue(ev Event) {
	q.mu.Lock()
	q.items = append(q.items, ev)
	q.mu.Unlock()

	// Non-blocking signal: one pending wakeup is enough for one consumer.
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the oldest event. It blocks up to timeout when
// the queue is empty; the second return value is false on timeout.
func (q *Queue) Dequeue(timeout time.Duration) (Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, true
		}
		q.mu.Unlock()

		select {
		case <-q.ready:
		case <-timer.C:
			return Event{}, false
		}
	}
}

// Len returns the current number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
