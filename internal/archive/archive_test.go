package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/semaphore/internal/bridge"
)

func openTestArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return a
}

func TestRecordAndRecent(t *testing.T) {
	a := openTestArchive(t)

	base := time.Now().Add(-time.Minute)
	events := []bridge.Event{
		{Sender: "Varek", Character: "Ember", Message: "first", Radius: "say", ReceivedAt: base},
		{Sender: "Thorne", Message: "second", Radius: "shout", Channel: "1", ReceivedAt: base.Add(time.Second)},
	}
	if err := a.Record(events); err != nil {
		t.Fatalf("Record: %v", err)
	}

	msgs, err := a.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	// Newest first.
	if msgs[0].Body != "second" || msgs[1].Body != "first" {
		t.Errorf("order = %q, %q", msgs[0].Body, msgs[1].Body)
	}
	if msgs[1].Sender != "Varek" || msgs[1].Character != "Ember" {
		t.Errorf("first message = %+v", msgs[1])
	}
	if msgs[0].Channel != "1" {
		t.Errorf("channel = %q, want 1", msgs[0].Channel)
	}
	if msgs[0].SentAt.IsZero() {
		t.Error("SentAt not stamped")
	}
}

func TestRecordEmpty(t *testing.T) {
	a := openTestArchive(t)
	if err := a.Record(nil); err != nil {
		t.Fatalf("Record(nil): %v", err)
	}
	msgs, err := a.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
}

func TestRecentLimit(t *testing.T) {
	a := openTestArchive(t)

	var events []bridge.Event
	for i := 0; i < 5; i++ {
		events = append(events, bridge.Event{
			Sender:     "Varek",
			Message:    "msg",
			Radius:     "say",
			ReceivedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
	}
	if err := a.Record(events); err != nil {
		t.Fatalf("Record: %v", err)
	}

	msgs, err := a.Recent(3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(msgs) != 3 {
		t.Errorf("got %d messages, want 3", len(msgs))
	}
}

func TestRecorderInterface(t *testing.T) {
	var _ bridge.Recorder = (*Archive)(nil)
}
