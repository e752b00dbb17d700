package bridge

// Health is the qualitative status of the relay, derived on demand from queue
// occupancy and rate-limit frequency.
type Health string

const (
	HealthOK          Health = "OK"
	HealthWarning     Health = "WARNING"
	HealthCritical    Health = "CRITICAL"
	HealthRateLimited Health = "RATE LIMITED"
)

// rateLimitRatio is the rate-limits-per-sent threshold above which the relay
// reports RATE LIMITED.
const rateLimitRatio = 0.10

// EvaluateHealth derives the relay status. Occupancy above 80% of the cap is
// CRITICAL, above 50% WARNING; otherwise a rate-limit count exceeding 10% of
// sent messages (with at least one sent) reports RATE LIMITED.
func EvaluateHealth(queueLen, maxQueue int, rateLimits, sent int64) Health {
	var percent float64
	if maxQueue > 0 {
		percent = float64(queueLen) / float64(maxQueue) * 100
	}

	switch {
	case percent > 80:
		return HealthCritical
	case percent > 50:
		return HealthWarning
	case rateLimits > 0 && sent > 0 && float64(rateLimits)/float64(sent) > rateLimitRatio:
		return HealthRateLimited
	default:
		return HealthOK
	}
}

// Color returns the hex color used for this status on the monitoring page.
func (h Health) Color() string {
	switch h {
	case HealthCritical:
		return "#f04747"
	case HealthWarning, HealthRateLimited:
		return "#faa61a"
	default:
		return "#43b581"
	}
}
