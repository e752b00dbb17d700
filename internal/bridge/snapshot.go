package bridge

import (
	"fmt"
	"time"

	"github.com/zulandar/semaphore/internal/config"
)

// Snapshot is the point-in-time view of the relay exposed to the monitoring
// page and the /stats JSON endpoint.
type Snapshot struct {
	Status        string              `json:"status"`
	Uptime        string              `json:"uptime"`
	UptimeSeconds int64               `json:"uptime_seconds"`
	Queue         QueueSnapshot       `json:"queue"`
	Messages      MessageSnapshot     `json:"messages"`
	Performance   PerformanceSnapshot `json:"performance"`
	Config        ConfigSnapshot      `json:"config"`
}

// QueueSnapshot reports intake queue occupancy.
type QueueSnapshot struct {
	Current  int     `json:"current"`
	Max      int     `json:"max"`
	Percent  float64 `json:"percent"`
	Peak     int     `json:"peak"`
	PeakTime string  `json:"peak_time,omitempty"`
}

// MessageSnapshot reports message totals and throughput.
type MessageSnapshot struct {
	TotalReceived     int64   `json:"total_received"`
	TotalSent         int64   `json:"total_sent"`
	TotalDropped      int64   `json:"total_dropped"`
	TotalFailed       int64   `json:"total_failed"`
	ReceivedPerMinute float64 `json:"received_per_minute"`
	SentPerMinute     float64 `json:"sent_per_minute"`
	PeakPerMinute     float64 `json:"peak_per_minute"`
}

// PerformanceSnapshot reports request volume, rate limits and latency.
type PerformanceSnapshot struct {
	TotalRequests     int64   `json:"total_requests"`
	RequestsPerMinute float64 `json:"requests_per_minute"`
	RateLimits        int64   `json:"rate_limits"`
	RateLimitsGlobal  int64   `json:"rate_limits_global"`
	RateLimitsShared  int64   `json:"rate_limits_shared"`
	RateLimitsUser    int64   `json:"rate_limits_user"`
	AverageLatencyMS  float64 `json:"average_latency_ms"`
}

// ConfigSnapshot echoes the dispatch settings behind the observed numbers.
type ConfigSnapshot struct {
	BatchWindowMS       int `json:"batch_window_ms"`
	MaxBatchSize        int `json:"max_batch_size"`
	InterRequestDelayMS int `json:"inter_request_delay_ms"`
	MaxRequestsPerCycle int `json:"max_requests_per_cycle"`
	TheoreticalCapacity int `json:"theoretical_capacity"`
}

// BuildSnapshot assembles a consistent snapshot from the stats aggregator,
// the current queue occupancy, and the static configuration.
func BuildSnapshot(stats *Stats, queueLen int, cfg *config.Config) Snapshot {
	recvMin, sentMin := stats.PerMinute()
	t := stats.Totals()
	uptime := stats.Uptime()

	var percent float64
	if cfg.Queue.MaxSize > 0 {
		percent = round1(float64(queueLen) / float64(cfg.Queue.MaxSize) * 100)
	}

	peakTime := ""
	if !t.PeakQueueTime.IsZero() {
		peakTime = t.PeakQueueTime.Format(time.RFC3339)
	}

	return Snapshot{
		Status:        string(EvaluateHealth(queueLen, cfg.Queue.MaxSize, t.RateLimits, t.Sent)),
		Uptime:        FormatUptime(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		Queue: QueueSnapshot{
			Current:  queueLen,
			Max:      cfg.Queue.MaxSize,
			Percent:  percent,
			Peak:     t.PeakQueue,
			PeakTime: peakTime,
		},
		Messages: MessageSnapshot{
			TotalReceived:     t.Received,
			TotalSent:         t.Sent,
			TotalDropped:      t.Dropped,
			TotalFailed:       t.Failed,
			ReceivedPerMinute: round1(recvMin),
			SentPerMinute:     round1(sentMin),
			PeakPerMinute:     round1(t.PeakPerMinute),
		},
		Performance: PerformanceSnapshot{
			TotalRequests:     t.Requests,
			RequestsPerMinute: round1(stats.RequestsPerMinute()),
			RateLimits:        t.RateLimits,
			RateLimitsGlobal:  t.Global,
			RateLimitsShared:  t.Shared,
			RateLimitsUser:    t.User,
			AverageLatencyMS:  round1(float64(stats.AverageLatency().Microseconds()) / 1000),
		},
		Config: ConfigSnapshot{
			BatchWindowMS:       cfg.Batch.WindowMS,
			MaxBatchSize:        cfg.Batch.MaxSize,
			InterRequestDelayMS: cfg.Batch.InterRequestDelayMS,
			MaxRequestsPerCycle: cfg.Batch.MaxRequestsPerCycle,
			TheoreticalCapacity: cfg.TheoreticalCapacity(),
		},
	}
}

// FormatUptime renders a duration as "2h 13m 5s" style text.
func FormatUptime(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// round1 rounds to one decimal place.
func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
