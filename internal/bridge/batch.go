package bridge

import "unicode/utf8"

// Batch is an ordered, non-empty group of events whose formatted lines are
// delivered in one webhook request. Content never exceeds the safe character
// limit except for a single truncated oversize line.
type Batch struct {
	Events  []Event
	Content string
}

// truncationMarker terminates a line cut down to the hard transport limit.
const truncationMarker = "..."

// FormatFunc renders an event to its output line; false means the event
// produces no output and is skipped.
type FormatFunc func(Event) (string, bool)

// BuildBatches splits an ordered event sequence into character-bounded
// batches. Relative order is preserved within and across batches and no event
// is ever split across two batches. A batch is flushed when appending the
// next line would push its length past safeLimit; a single line longer than
// hardLimit is truncated with a marker so it still fits one request.
func BuildBatches(events []Event, format FormatFunc, safeLimit, hardLimit int) []Batch {
	var batches []Batch

	var cur Batch
	curLen := 0

	flush := func() {
		if len(cur.Events) > 0 {
			batches = append(batches, cur)
			cur = Batch{}
			curLen = 0
		}
	}

	for _, ev := range events {
		line, ok := format(ev)
		if !ok {
			continue
		}
		if len(line) > hardLimit {
			line = truncate(line, hardLimit)
		}

		// +1 accounts for the joining newline.
		lineLen := len(line) + 1
		if curLen+lineLen > safeLimit {
			flush()
		}

		if curLen > 0 {
			cur.Content += "\n"
		}
		cur.Content += line
		cur.Events = append(cur.Events, ev)
		curLen += lineLen
	}
	flush()

	return batches
}

// truncate cuts line to fit limit bytes including the marker, backing up to a
// rune boundary so no multi-byte character is split.
func truncate(line string, limit int) string {
	cut := limit - len(truncationMarker)
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut] + truncationMarker
}
