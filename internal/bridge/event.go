// Package bridge implements the chat relay pipeline: an intake queue fed by
// the HTTP layer, a background dispatch worker that batches messages over
// fixed time windows, and a rate-limit-aware Discord webhook sender.
package bridge

import "time"

// Event is one chat message as received from the game server. ReceivedAt is
// assigned once at intake, before queueing, and is the basis for the
// timestamp rendered in Discord and for latency measurement.
type Event struct {
	Sender     string // player account name
	Character  string // optional roleplay character name
	Message    string // message body
	Radius     string // say, shout, whisper, ... (free-form)
	Location   string // optional player coordinates
	Channel    string // optional channel identifier
	ReceivedAt time.Time
}
