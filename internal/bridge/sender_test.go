package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

func newTestSender(t *testing.T, handler http.HandlerFunc) (*WebhookSender, *Stats, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	stats := NewStats()
	sender := NewWebhookSender(WebhookSenderOpts{
		WebhookURL: srv.URL,
		BotName:    "Semaphore",
		HardLimit:  2000,
		Stats:      stats,
		Client:     srv.Client(),
	})
	return sender, stats, srv
}

func TestSenderSuccess(t *testing.T) {
	var got discordgo.WebhookParams
	sender, stats, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	outcome := sender.Send(context.Background(), "**Varek**: hello")
	if outcome.Kind != OutcomeSuccess {
		t.Fatalf("kind = %v, want success", outcome.Kind)
	}
	if got.Content != "**Varek**: hello" {
		t.Errorf("content = %q", got.Content)
	}
	if got.Username != "Semaphore" {
		t.Errorf("username = %q", got.Username)
	}
	if got.AllowedMentions == nil || len(got.AllowedMentions.Parse) != 0 {
		t.Errorf("mentions are not suppressed: %+v", got.AllowedMentions)
	}
	if stats.Totals().Requests != 1 {
		t.Errorf("requests = %d, want 1", stats.Totals().Requests)
	}
}

func TestSenderRateLimited(t *testing.T) {
	sender, stats, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Scope", "global")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message":     "You are being rate limited.",
			"retry_after": 5.0,
			"global":      true,
		})
	})

	outcome := sender.Send(context.Background(), "hello")
	if outcome.Kind != OutcomeRateLimited {
		t.Fatalf("kind = %v, want rate limited", outcome.Kind)
	}
	if outcome.Scope != ScopeGlobal {
		t.Errorf("scope = %q, want global", outcome.Scope)
	}
	if outcome.RetryAfter != 5*time.Second {
		t.Errorf("retry after = %v, want 5s", outcome.RetryAfter)
	}
	if stats.Totals().Requests != 1 {
		t.Errorf("requests = %d, want 1 (counted even on failure)", stats.Totals().Requests)
	}
}

func TestSenderRateLimitScopeDefaultsToUser(t *testing.T) {
	sender, _, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]interface{}{"retry_after": 1.5})
	})

	outcome := sender.Send(context.Background(), "hello")
	if outcome.Scope != ScopeUser {
		t.Errorf("scope = %q, want user", outcome.Scope)
	}
	if outcome.RetryAfter != 1500*time.Millisecond {
		t.Errorf("retry after = %v, want 1.5s", outcome.RetryAfter)
	}
}

func TestSenderPermanentReject(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusBadRequest} {
		sender, _, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})
		outcome := sender.Send(context.Background(), "hello")
		if outcome.Kind != OutcomePermanentReject {
			t.Errorf("status %d: kind = %v, want permanent reject", status, outcome.Kind)
		}
	}
}

func TestSenderTransientFailure(t *testing.T) {
	sender, _, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	outcome := sender.Send(context.Background(), "hello")
	if outcome.Kind != OutcomeTransientFailure {
		t.Fatalf("kind = %v, want transient", outcome.Kind)
	}
	if outcome.RetryAfter != transientRetryDelay {
		t.Errorf("retry after = %v, want %v", outcome.RetryAfter, transientRetryDelay)
	}
}

func TestSenderNetworkError(t *testing.T) {
	stats := NewStats()
	sender := NewWebhookSender(WebhookSenderOpts{
		WebhookURL: "http://127.0.0.1:1/webhook", // nothing listens here
		Stats:      stats,
		Client:     &http.Client{Timeout: time.Second},
	})

	outcome := sender.Send(context.Background(), "hello")
	if outcome.Kind != OutcomeTransientFailure {
		t.Fatalf("kind = %v, want transient", outcome.Kind)
	}
	if stats.Totals().Requests != 1 {
		t.Errorf("requests = %d, want 1", stats.Totals().Requests)
	}
}

func TestSenderEmptyContent(t *testing.T) {
	called := false
	sender, stats, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	outcome := sender.Send(context.Background(), "")
	if outcome.Kind != OutcomeSuccess {
		t.Errorf("kind = %v, want success", outcome.Kind)
	}
	if called {
		t.Error("empty content should not hit the webhook")
	}
	if stats.Totals().Requests != 0 {
		t.Errorf("requests = %d, want 0", stats.Totals().Requests)
	}
}

func TestSenderDefensiveTruncation(t *testing.T) {
	var got discordgo.WebhookParams
	sender, _, _ := newTestSender(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	})

	sender.Send(context.Background(), strings.Repeat("z", 2500))
	if len(got.Content) != 2000 {
		t.Errorf("content length = %d, want 2000", len(got.Content))
	}
	if !strings.HasSuffix(got.Content, "...") {
		t.Error("truncated payload missing marker")
	}
}
