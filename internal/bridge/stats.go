package bridge

import (
	"sync"
	"time"
)

const (
	// slotWidth is the width of one throughput history slot.
	slotWidth = 10 * time.Second
	// slotHistory is how many archived slots the rolling window keeps
	// (30 slots x 10s = 5 minutes).
	slotHistory = 30
	// latencySamples caps the recent-latency sample set.
	latencySamples = 100
)

// Stats holds process-wide relay metrics: monotonic counters, a sliding
// 5-minute throughput window, a capped latency sample set, and historical
// peaks. All fields mutate under one mutex; readers never observe a torn
// slot rotation. One instance is created at startup and handed to every
// component — there is no package-level singleton.
type Stats struct {
	mu sync.Mutex

	// Totals since startup.
	totalReceived   int64
	totalSent       int64
	totalDropped    int64
	totalFailed     int64
	totalRateLimits int64
	totalRequests   int64

	// Rate limit breakdown by scope.
	rateLimitsGlobal int64
	rateLimitsShared int64
	rateLimitsUser   int64

	// Historical peaks.
	peakQueueSize int
	peakQueueTime time.Time
	peakPerMinute float64

	startTime time.Time

	// Sliding history: archived slots plus the in-progress slot.
	receivedHistory []int
	sentHistory     []int
	currentSlot     int64
	slotReceived    int
	slotSent        int

	latencies []time.Duration

	now func() time.Time // injectable clock for tests
}

// NewStats creates a Stats aggregator with the startup time set to now.
func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
		now:       time.Now,
	}
}

// slot returns the current history slot index.
func (s *Stats) slot() int64 {
	return s.now().Unix() / int64(slotWidth/time.Second)
}

// rotate archives the in-progress slot when the clock has moved past it.
// Must be called with the mutex held.
func (s *Stats) rotate() {
	current := s.slot()
	if current == s.currentSlot {
		return
	}
	s.receivedHistory = append(s.receivedHistory, s.slotReceived)
	s.sentHistory = append(s.sentHistory, s.slotSent)
	if len(s.receivedHistory) > slotHistory {
		s.receivedHistory = s.receivedHistory[len(s.receivedHistory)-slotHistory:]
		s.sentHistory = s.sentHistory[len(s.sentHistory)-slotHistory:]
	}
	s.slotReceived = 0
	s.slotSent = 0
	s.currentSlot = current
}

// RecordReceived records one message received from the game server.
func (s *Stats) RecordReceived() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate()
	s.totalReceived++
	s.slotReceived++
}

// RecordSent records n messages successfully delivered to Discord.
func (s *Stats) RecordSent(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate()
	s.totalSent += int64(n)
	s.slotSent += n
}

// RecordDropped records n messages lost to a full queue or backlog eviction.
func (s *Stats) RecordDropped(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalDropped += int64(n)
}

// RecordFailed records n messages abandoned after a permanent Discord rejection.
func (s *Stats) RecordFailed(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalFailed += int64(n)
}

// RecordRequest records one outbound Discord API request, whatever its outcome.
func (s *Stats) RecordRequest() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRequests++
}

// RecordRateLimit records a rate limit response with its scope.
func (s *Stats) RecordRateLimit(scope Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalRateLimits++
	switch scope {
	case ScopeGlobal:
		s.rateLimitsGlobal++
	case ScopeShared:
		s.rateLimitsShared++
	default:
		s.rateLimitsUser++
	}
}

// RecordLatency records the delay between an event's reception and its
// successful delivery. Only the most recent samples are kept.
func (s *Stats) RecordLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, d)
	if len(s.latencies) > latencySamples {
		s.latencies = s.latencies[len(s.latencies)-latencySamples:]
	}
}

// UpdateQueueSize raises the historical queue peak if size exceeds it.
func (s *Stats) UpdateQueueSize(size int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if size > s.peakQueueSize {
		s.peakQueueSize = size
		s.peakQueueTime = s.now()
	}
}

// PerMinute returns the received and sent throughput over the rolling window
// (archived slots plus the in-progress one). Reading does not advance totals,
// so repeated calls without new writes return the same values.
func (s *Stats) PerMinute() (received, sent float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotate()

	recvSum := s.slotReceived
	sentSum := s.slotSent
	for _, n := range s.receivedHistory {
		recvSum += n
	}
	for _, n := range s.sentHistory {
		sentSum += n
	}

	slots := len(s.receivedHistory) + 1
	minutes := float64(slots) * slotWidth.Seconds() / 60
	if minutes <= 0 {
		return 0, 0
	}

	received = float64(recvSum) / minutes
	sent = float64(sentSum) / minutes
	if received > s.peakPerMinute {
		s.peakPerMinute = received
	}
	return received, sent
}

// AverageLatency returns the mean of the recent latency samples.
func (s *Stats) AverageLatency() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.latencies) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range s.latencies {
		sum += d
	}
	return sum / time.Duration(len(s.latencies))
}

// Uptime returns the time elapsed since startup.
func (s *Stats) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Sub(s.startTime)
}

// RequestsPerMinute returns the average Discord request rate since startup.
func (s *Stats) RequestsPerMinute() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	secs := s.now().Sub(s.startTime).Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.totalRequests) / secs * 60
}

// Totals is a consistent snapshot of every counter and peak.
type Totals struct {
	Received      int64
	Sent          int64
	Dropped       int64
	Failed        int64
	RateLimits    int64
	Requests      int64
	Global        int64
	Shared        int64
	User          int64
	PeakQueue     int
	PeakQueueTime time.Time
	PeakPerMinute float64
}

// Totals returns all counters under one lock acquisition.
func (s *Stats) Totals() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Totals{
		Received:      s.totalReceived,
		Sent:          s.totalSent,
		Dropped:       s.totalDropped,
		Failed:        s.totalFailed,
		RateLimits:    s.totalRateLimits,
		Requests:      s.totalRequests,
		Global:        s.rateLimitsGlobal,
		Shared:        s.rateLimitsShared,
		User:          s.rateLimitsUser,
		PeakQueue:     s.peakQueueSize,
		PeakQueueTime: s.peakQueueTime,
		PeakPerMinute: s.peakPerMinute,
	}
}
