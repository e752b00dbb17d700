package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// OutcomeKind discriminates the closed set of delivery results.
type OutcomeKind int

const (
	// OutcomeSuccess: the batch was accepted by Discord.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRateLimited: 429 with a retry-after duration and scope.
	OutcomeRateLimited
	// OutcomePermanentReject: the request will never succeed (bad webhook,
	// rejected payload). Never retried.
	OutcomePermanentReject
	// OutcomeTransientFailure: network error, timeout or 5xx. Retryable
	// after a fixed short delay.
	OutcomeTransientFailure
)

// Scope is the granularity at which a Discord rate limit applies.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeShared Scope = "shared"
	ScopeUser   Scope = "user"
)

// Outcome is the result of one delivery attempt for one batch.
type Outcome struct {
	Kind       OutcomeKind
	RetryAfter time.Duration // set for RateLimited and TransientFailure
	Scope      Scope         // set for RateLimited
}

// transientRetryDelay is the fixed suggested backoff after a transient failure.
const transientRetryDelay = 2 * time.Second

// sendTimeout bounds one webhook request.
const sendTimeout = 10 * time.Second

// BatchSender performs one outbound delivery attempt per call. It never
// sleeps or retries internally — waiting and retry policy belong to the
// dispatch worker.
type BatchSender interface {
	Send(ctx context.Context, content string) Outcome
}

// WebhookSender delivers batch content to a Discord webhook and classifies
// the response. One HTTP request per Send, one request-attempted stat
// increment per call regardless of outcome.
type WebhookSender struct {
	url       string
	botName   string
	avatarURL string
	hardLimit int
	stats     *Stats
	client    *http.Client
}

// WebhookSenderOpts holds parameters for creating a WebhookSender.
type WebhookSenderOpts struct {
	WebhookURL string
	BotName    string
	AvatarURL  string
	HardLimit  int    // transport character ceiling, for defensive truncation
	Stats      *Stats // required
	// For testing: inject a custom HTTP client.
	Client *http.Client
}

// NewWebhookSender creates a sender for the given webhook.
func NewWebhookSender(opts WebhookSenderOpts) *WebhookSender {
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: sendTimeout}
	}
	return &WebhookSender{
		url:       opts.WebhookURL,
		botName:   opts.BotName,
		avatarURL: opts.AvatarURL,
		hardLimit: opts.HardLimit,
		stats:     opts.Stats,
		client:    client,
	}
}

// Send posts content to the webhook and classifies the result. Content longer
// than the hard limit is truncated defensively; the splitter should already
// have kept it below the safe budget.
func (s *WebhookSender) Send(ctx context.Context, content string) Outcome {
	if content == "" {
		return Outcome{Kind: OutcomeSuccess}
	}
	if s.hardLimit > 0 && len(content) > s.hardLimit {
		content = truncate(content, s.hardLimit)
		log.Printf("sender: payload truncated to %d characters", s.hardLimit)
	}

	params := discordgo.WebhookParams{
		Username: s.botName,
		Content:  content,
		// Suppress every ping a relayed message could trigger.
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	}
	if s.avatarURL != "" {
		params.AvatarURL = s.avatarURL
	}

	body, err := json.Marshal(params)
	if err != nil {
		log.Printf("sender: marshal payload: %v", err)
		return Outcome{Kind: OutcomePermanentReject}
	}

	s.stats.RecordRequest()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		log.Printf("sender: build request: %v", err)
		return Outcome{Kind: OutcomePermanentReject}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("sender: webhook request failed: %v", err)
		return Outcome{Kind: OutcomeTransientFailure, RetryAfter: transientRetryDelay}
	}
	defer resp.Body.Close()

	return s.classify(resp)
}

// classify maps an HTTP response onto the Outcome variant set.
func (s *WebhookSender) classify(resp *http.Response) Outcome {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Outcome{Kind: OutcomeSuccess}

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter, scope := parseRateLimit(resp)
		switch scope {
		case ScopeGlobal:
			log.Printf("sender: GLOBAL rate limit, wait %s — reduce traffic", retryAfter)
		case ScopeShared:
			log.Printf("sender: rate limit (shared resource), wait %s — other bots may share this channel", retryAfter)
		default:
			log.Printf("sender: rate limit (webhook), wait %s", retryAfter)
		}
		return Outcome{Kind: OutcomeRateLimited, RetryAfter: retryAfter, Scope: scope}

	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized:
		log.Printf("sender: webhook invalid or deleted (HTTP %d) — check discord.webhook_url", resp.StatusCode)
		return Outcome{Kind: OutcomePermanentReject}

	case resp.StatusCode >= 500:
		log.Printf("sender: Discord server error %d", resp.StatusCode)
		return Outcome{Kind: OutcomeTransientFailure, RetryAfter: transientRetryDelay}

	default:
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("sender: Discord rejected request: %d %s", resp.StatusCode, bytes.TrimSpace(text))
		return Outcome{Kind: OutcomePermanentReject}
	}
}

// parseRateLimit extracts the retry-after duration from a 429 body and the
// limit scope from the X-RateLimit-Scope header. Scope defaults to "user"
// when absent.
func parseRateLimit(resp *http.Response) (time.Duration, Scope) {
	retryAfter := transientRetryDelay

	var tooMany discordgo.TooManyRequests
	if err := json.NewDecoder(resp.Body).Decode(&tooMany); err == nil && tooMany.RetryAfter > 0 {
		retryAfter = tooMany.RetryAfter
	}

	switch resp.Header.Get("X-RateLimit-Scope") {
	case "global":
		return retryAfter, ScopeGlobal
	case "shared":
		return retryAfter, ScopeShared
	default:
		return retryAfter, ScopeUser
	}
}
