package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/semaphore/internal/alerts"
	"github.com/zulandar/semaphore/internal/archive"
	"github.com/zulandar/semaphore/internal/bridge"
	"github.com/zulandar/semaphore/internal/config"
	"github.com/zulandar/semaphore/internal/digest"
	"github.com/zulandar/semaphore/internal/server"
)

func newStartCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the relay",
		Long:  "Starts the intake HTTP server and the background dispatch worker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "semaphore.yaml", "path to Semaphore config file")
	return cmd
}

func runStart(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	queue := bridge.NewQueue()
	stats := bridge.NewStats()
	formatter := bridge.NewFormatter(cfg.Display)

	sender := bridge.NewWebhookSender(bridge.WebhookSenderOpts{
		WebhookURL: cfg.Discord.WebhookURL,
		BotName:    cfg.Discord.BotName,
		AvatarURL:  cfg.Discord.AvatarURL,
		HardLimit:  cfg.Limits.HardChars,
		Stats:      stats,
	})

	notifier := alerts.NewNotifier(cfg.Alerts.SlackWebhookURL)

	var store *archive.Archive
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Message archive at %s\n", cfg.Archive.Path)
	}

	workerOpts := bridge.WorkerOpts{
		Queue:           queue,
		Stats:           stats,
		Sender:          sender,
		Format:          formatter.Format,
		Window:          cfg.BatchWindow(),
		MaxBatch:        cfg.Batch.MaxSize,
		InterDelay:      cfg.InterRequestDelay(),
		MaxRequests:     cfg.Batch.MaxRequestsPerCycle,
		MaxBacklog:      cfg.Queue.MaxRetry,
		SafeLimit:       cfg.Limits.SafeChars,
		HardLimit:       cfg.Limits.HardChars,
		SummaryInterval: cfg.StatsLogInterval(),
	}
	if store != nil {
		workerOpts.Recorder = store
	}
	if notifier != nil {
		workerOpts.Notifier = notifier
	}

	worker, err := bridge.NewWorker(workerOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	printBanner(out, cfg)

	go worker.Run(ctx)

	if cfg.Digest.Enabled {
		sched, err := digest.NewScheduler(digest.SchedulerOpts{
			Cron:     cfg.Digest.Cron,
			Queue:    queue,
			Stats:    stats,
			MaxQueue: cfg.Queue.MaxSize,
			Sender:   cfg.Discord.BotName,
		})
		if err != nil {
			return err
		}
		go sched.Run(ctx)
		fmt.Fprintf(out, "Daily digest scheduled (%s)\n", cfg.Digest.Cron)
	}

	return server.Start(ctx, server.StartOpts{
		Config:  cfg,
		Queue:   queue,
		Stats:   stats,
		Archive: store,
		Out:     out,
	})
}

// printBanner writes the startup summary.
func printBanner(out io.Writer, cfg *config.Config) {
	fmt.Fprintf(out, "Semaphore starting\n")
	fmt.Fprintf(out, "  Server     : http://localhost:%d\n", cfg.Server.Port)
	fmt.Fprintf(out, "  Batch      : %s / %d msg\n", cfg.BatchWindow(), cfg.Batch.MaxSize)
	if cfg.Batch.MaxRequestsPerCycle > 0 {
		fmt.Fprintf(out, "  Rate limit : %s delay, max %d req/cycle\n", cfg.InterRequestDelay(), cfg.Batch.MaxRequestsPerCycle)
	} else {
		fmt.Fprintf(out, "  Rate limit : %s delay\n", cfg.InterRequestDelay())
	}
	fmt.Fprintf(out, "  Max queue  : %d\n", cfg.Queue.MaxSize)
	if len(cfg.Filter.Channels) > 0 {
		fmt.Fprintf(out, "  Channels   : %v\n", cfg.Filter.Channels)
	} else {
		fmt.Fprintf(out, "  Channels   : all\n")
	}
}
