package bridge

import (
	"strings"
	"testing"
)

// identityFormat renders the message body as-is, skipping empty bodies.
func identityFormat(ev Event) (string, bool) {
	if ev.Message == "" {
		return "", false
	}
	return ev.Message, true
}

func eventsFromBodies(bodies ...string) []Event {
	events := make([]Event, 0, len(bodies))
	for _, b := range bodies {
		events = append(events, Event{Message: b})
	}
	return events
}

func TestBuildBatchesSingle(t *testing.T) {
	batches := BuildBatches(eventsFromBodies("one", "two", "three"), identityFormat, 1900, 2000)
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	if batches[0].Content != "one\ntwo\nthree" {
		t.Errorf("content = %q", batches[0].Content)
	}
	if len(batches[0].Events) != 3 {
		t.Errorf("events = %d, want 3", len(batches[0].Events))
	}
}

func TestBuildBatchesFlushAtLimit(t *testing.T) {
	// Lines of 40 chars (+1 joiner) against a 100-char budget: two fit per batch.
	line := strings.Repeat("x", 40)
	batches := BuildBatches(eventsFromBodies(line, line, line, line, line), identityFormat, 100, 2000)

	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	for i, b := range batches[:2] {
		if len(b.Events) != 2 {
			t.Errorf("batch %d events = %d, want 2", i, len(b.Events))
		}
		if len(b.Content) > 100 {
			t.Errorf("batch %d content length = %d, exceeds limit", i, len(b.Content))
		}
	}
	if len(batches[2].Events) != 1 {
		t.Errorf("last batch events = %d, want 1", len(batches[2].Events))
	}
}

func TestBuildBatchesPreservesOrder(t *testing.T) {
	bodies := make([]string, 50)
	for i := range bodies {
		bodies[i] = strings.Repeat("m", 20+i%30)
	}
	batches := BuildBatches(eventsFromBodies(bodies...), identityFormat, 120, 2000)

	var flat []string
	for _, b := range batches {
		for _, ev := range b.Events {
			flat = append(flat, ev.Message)
		}
	}
	if len(flat) != len(bodies) {
		t.Fatalf("flattened %d events, want %d", len(flat), len(bodies))
	}
	for i := range bodies {
		if flat[i] != bodies[i] {
			t.Fatalf("order broken at %d: got %q, want %q", i, flat[i], bodies[i])
		}
	}
}

func TestBuildBatchesNeverEmpty(t *testing.T) {
	batches := BuildBatches(eventsFromBodies("", "", "hello", ""), identityFormat, 100, 2000)
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	for i, b := range batches {
		if len(b.Events) == 0 || b.Content == "" {
			t.Errorf("batch %d is empty", i)
		}
	}

	if got := BuildBatches(nil, identityFormat, 100, 2000); got != nil {
		t.Errorf("no input should produce no batches, got %d", len(got))
	}
}

func TestBuildBatchesTruncatesOversizeLine(t *testing.T) {
	long := strings.Repeat("a", 2500)
	batches := BuildBatches(eventsFromBodies("before", long, "after"), identityFormat, 1900, 2000)

	var truncated string
	for _, b := range batches {
		for _, line := range strings.Split(b.Content, "\n") {
			if strings.HasSuffix(line, "...") && len(line) > 100 {
				truncated = line
			}
		}
	}
	if truncated == "" {
		t.Fatal("oversize line not found in any batch")
	}
	if len(truncated) != 2000 {
		t.Errorf("truncated length = %d, want 2000", len(truncated))
	}
	if !strings.HasPrefix(truncated, strings.Repeat("a", 1997)) {
		t.Errorf("truncated content lost its prefix")
	}
}

func TestBuildBatchesOversizeLineIsAlone(t *testing.T) {
	long := strings.Repeat("a", 2500)
	batches := BuildBatches(eventsFromBodies("before", long, "after"), identityFormat, 1900, 2000)

	if len(batches) != 3 {
		t.Fatalf("batches = %d, want 3", len(batches))
	}
	if len(batches[1].Events) != 1 {
		t.Errorf("oversize line should sit in its own batch, got %d events", len(batches[1].Events))
	}
}

func TestTruncateRespectsRuneBoundary(t *testing.T) {
	// Multi-byte runes must not be cut in half.
	line := strings.Repeat("é", 1200) // 2400 bytes
	got := truncate(line, 2000)

	if len(got) > 2000 {
		t.Fatalf("truncated length = %d, want <= 2000", len(got))
	}
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("missing truncation marker: %q", got[len(got)-8:])
	}
	trimmed := strings.TrimSuffix(got, "...")
	for _, r := range trimmed {
		if r != 'é' {
			t.Fatalf("found mangled rune %q", r)
		}
	}
}
