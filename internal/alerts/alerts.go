// Package alerts delivers best-effort operator notifications to a Slack
// webhook. Failures are logged, never returned — an unreachable alert channel
// must not disturb the relay.
package alerts

import (
	"log"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

// defaultCooldown suppresses repeats of the same alert kind.
const defaultCooldown = 5 * time.Minute

// postWebhook is the Slack webhook call, replaceable in tests.
var postWebhook = slack.PostWebhook

// Notifier sends operator alerts with a per-kind cooldown.
type Notifier struct {
	webhookURL string
	cooldown   time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewNotifier creates a Notifier for the given Slack webhook URL. An empty
// URL yields a nil Notifier, which callers treat as alerts-disabled.
func NewNotifier(webhookURL string) *Notifier {
	if webhookURL == "" {
		return nil
	}
	return &Notifier{
		webhookURL: webhookURL,
		cooldown:   defaultCooldown,
		lastSent:   make(map[string]time.Time),
	}
}

// Notify posts one alert. Alerts of the same kind inside the cooldown window
// are dropped so a sustained incident does not flood the ops channel.
func (n *Notifier) Notify(kind, title, text string) {
	n.mu.Lock()
	if last, ok := n.lastSent[kind]; ok && time.Since(last) < n.cooldown {
		n.mu.Unlock()
		return
	}
	n.lastSent[kind] = time.Now()
	n.mu.Unlock()

	msg := &slack.WebhookMessage{
		Text: "*Semaphore: " + title + "*\n" + text,
	}
	if err := postWebhook(n.webhookURL, msg); err != nil {
		log.Printf("alerts: post %s: %v", kind, err)
	}
}
