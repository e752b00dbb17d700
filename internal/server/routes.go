package server

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/semaphore/internal/bridge"
)

// recentMessages is how many archived messages /messages returns.
const recentMessages = 50

// registerRoutes sets up all HTTP routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	// Intake endpoint for the game-server mod. The mod issues GETs with
	// query parameters; POST is accepted for completeness.
	router.GET("/message", handleMessage(opts))
	router.POST("/message", handleMessage(opts))

	// Monitoring.
	router.GET("/", handleStatus(opts))
	router.GET("/stats", handleStats(opts))

	if opts.Archive != nil {
		router.GET("/messages", handleMessages(opts))
	}
}

// handleMessage receives one chat event. The reception time is captured
// before anything else so the timestamp rendered in Discord reflects arrival,
// not send time.
func handleMessage(opts StartOpts) gin.HandlerFunc {
	cfg := opts.Config
	return func(c *gin.Context) {
		receivedAt := time.Now()

		ev := bridge.Event{
			Sender:     param(c, "sender", "Unknown"),
			Character:  param(c, "character", ""),
			Message:    param(c, "message", ""),
			Radius:     param(c, "radius", "say"),
			Location:   param(c, "location", ""),
			Channel:    param(c, "channel", ""),
			ReceivedAt: receivedAt,
		}

		if !cfg.ChannelAllowed(ev.Channel) {
			log.Printf("server: [channel %s ignored] %s: %s", ev.Channel, ev.Sender, preview(ev.Message))
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}

		opts.Stats.RecordReceived()

		size := opts.Queue.Len()
		opts.Stats.UpdateQueueSize(size)

		log.Printf("server: [%s] %s: %s", ev.Radius, ev.Sender, preview(ev.Message))

		if size >= cfg.Queue.MaxSize {
			opts.Stats.RecordDropped(1)
			log.Printf("server: queue full (%d), message dropped", cfg.Queue.MaxSize)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "queue_full"})
			return
		}

		// Empty bodies are accepted but produce no Discord output.
		if strings.TrimSpace(ev.Message) != "" {
			opts.Queue.Enqueue(ev)
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// handleStats serves the JSON snapshot for external monitoring.
func handleStats(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := bridge.BuildSnapshot(opts.Stats, opts.Queue.Len(), opts.Config)
		c.JSON(http.StatusOK, snap)
	}
}

// handleStatus serves the monitoring HTML page.
func handleStatus(opts StartOpts) gin.HandlerFunc {
	cfg := opts.Config
	return func(c *gin.Context) {
		snap := bridge.BuildSnapshot(opts.Stats, opts.Queue.Len(), cfg)
		health := bridge.Health(snap.Status)

		channels := "All"
		if len(cfg.Filter.Channels) > 0 {
			channels = strings.Join(cfg.Filter.Channels, ", ")
		}

		c.HTML(http.StatusOK, "status.html", gin.H{
			"Snap":        snap,
			"StatusColor": health.Color(),
			"QueueColor":  queueColor(snap.Queue.Percent),
			"QueueBar":    queueBar(snap.Queue.Percent),
			"Channels":    channels,
			"Port":        cfg.Server.Port,
		})
	}
}

// handleMessages returns the most recently archived messages.
func handleMessages(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		msgs, err := opts.Archive.Recent(recentMessages)
		if err != nil {
			log.Printf("server: archive query: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "archive unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}

// param reads a parameter from the query string or form body.
func param(c *gin.Context, name, fallback string) string {
	if v := c.Request.FormValue(name); v != "" {
		return v
	}
	return fallback
}

// preview shortens a message body for log lines.
func preview(msg string) string {
	if msg == "" {
		return "(empty)"
	}
	if len(msg) > 80 {
		return msg[:80]
	}
	return msg
}

// queueColor picks the gauge color for the current occupancy.
func queueColor(percent float64) string {
	switch {
	case percent < 50:
		return "#43b581"
	case percent < 80:
		return "#faa61a"
	default:
		return "#f04747"
	}
}

// queueBar renders a text gauge for the queue occupancy.
func queueBar(percent float64) string {
	const width = 20
	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
