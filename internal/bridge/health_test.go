package bridge

import "testing"

func TestEvaluateHealth(t *testing.T) {
	tests := []struct {
		name       string
		queueLen   int
		maxQueue   int
		rateLimits int64
		sent       int64
		want       Health
	}{
		{"empty queue", 0, 500, 0, 0, HealthOK},
		{"half full", 250, 500, 0, 100, HealthOK},
		{"warning above 50 percent", 251, 500, 0, 100, HealthWarning},
		{"critical above 80 percent", 401, 500, 0, 100, HealthCritical},
		{"critical wins over rate limits", 450, 500, 90, 100, HealthCritical},
		{"rate limited", 0, 500, 11, 100, HealthRateLimited},
		{"rate limits at threshold are ok", 0, 500, 10, 100, HealthOK},
		{"rate limits without sends are ok", 0, 500, 5, 0, HealthOK},
		{"zero max queue", 10, 0, 0, 0, HealthOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateHealth(tt.queueLen, tt.maxQueue, tt.rateLimits, tt.sent)
			if got != tt.want {
				t.Errorf("EvaluateHealth(%d, %d, %d, %d) = %s, want %s",
					tt.queueLen, tt.maxQueue, tt.rateLimits, tt.sent, got, tt.want)
			}
		})
	}
}

func TestHealthColor(t *testing.T) {
	if HealthOK.Color() != "#43b581" {
		t.Errorf("OK color = %q", HealthOK.Color())
	}
	if HealthCritical.Color() != "#f04747" {
		t.Errorf("critical color = %q", HealthCritical.Color())
	}
	if HealthWarning.Color() != HealthRateLimited.Color() {
		t.Errorf("warning and rate-limited should share a color")
	}
}
