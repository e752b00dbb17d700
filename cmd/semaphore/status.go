package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/semaphore/internal/bridge"
)

func newStatusCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show relay status",
		Long:  "Queries a running relay's /stats endpoint and prints a summary.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 3000, "relay HTTP port")
	return cmd
}

// statsBaseURL allows tests to point the status command at a test server.
var statsBaseURL = func(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

func runStatus(cmd *cobra.Command, port int) error {
	out := cmd.OutOrStdout()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(statsBaseURL(port) + "/stats")
	if err != nil {
		return fmt.Errorf("status: relay not reachable on port %d: %w", port, err)
	}
	defer resp.Body.Close()

	var snap bridge.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("status: decode response: %w", err)
	}

	fmt.Fprintf(out, "Status   : %s\n", snap.Status)
	fmt.Fprintf(out, "Uptime   : %s\n", snap.Uptime)
	fmt.Fprintf(out, "Queue    : %d/%d (peak %d)\n", snap.Queue.Current, snap.Queue.Max, snap.Queue.Peak)
	fmt.Fprintf(out, "Messages : %d received, %d sent, %d dropped, %d failed\n",
		snap.Messages.TotalReceived, snap.Messages.TotalSent, snap.Messages.TotalDropped, snap.Messages.TotalFailed)
	fmt.Fprintf(out, "Requests : %d total, %.1f/min, %d rate limits\n",
		snap.Performance.TotalRequests, snap.Performance.RequestsPerMinute, snap.Performance.RateLimits)
	return nil
}
