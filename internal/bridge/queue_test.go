package bridge

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	for i := 0; i < 5; i++ {
		q.Enqueue(Event{Message: fmt.Sprintf("msg-%d", i)})
	}

	for i := 0; i < 5; i++ {
		ev, ok := q.Dequeue(time.Second)
		if !ok {
			t.Fatalf("dequeue %d timed out", i)
		}
		want := fmt.Sprintf("msg-%d", i)
		if ev.Message != want {
			t.Errorf("dequeue %d = %q, want %q", i, ev.Message, want)
		}
	}
	if q.Len() != 0 {
		t.Errorf("len = %d after draining, want 0", q.Len())
	}
}

func TestQueueDequeueTimeout(t *testing.T) {
	q := NewQueue()

	start := time.Now()
	_, ok := q.Dequeue(50 * time.Millisecond)
	elapsed := time.Since(start)

	if ok {
		t.Fatal("dequeue on empty queue returned an event")
	}
	if elapsed < 40*time.Millisecond {
		t.Errorf("dequeue returned after %v, want it to wait ~50ms", elapsed)
	}
}

func TestQueueDequeueWakesOnEnqueue(t *testing.T) {
	q := NewQueue()

	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Enqueue(Event{Message: "late"})
	}()

	ev, ok := q.Dequeue(time.Second)
	if !ok {
		t.Fatal("dequeue timed out waiting for enqueue")
	}
	if ev.Message != "late" {
		t.Errorf("message = %q, want %q", ev.Message, "late")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewQueue()

	const producers = 8
	const perProducer = 50

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(Event{Sender: fmt.Sprintf("p%d", p), Message: fmt.Sprintf("%d", i)})
			}
		}(p)
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Fatalf("len = %d, want %d", q.Len(), producers*perProducer)
	}

	// Per-producer order must be preserved even though producers interleave.
	lastSeen := make(map[string]int)
	for i := 0; i < producers*perProducer; i++ {
		ev, ok := q.Dequeue(time.Second)
		if !ok {
			t.Fatalf("dequeue %d timed out", i)
		}
		var n int
		fmt.Sscanf(ev.Message, "%d", &n)
		if last, seen := lastSeen[ev.Sender]; seen && n <= last {
			t.Fatalf("producer %s: got %d after %d", ev.Sender, n, last)
		}
		lastSeen[ev.Sender] = n
	}
}
