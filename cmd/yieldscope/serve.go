package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/config"
	"yieldScope/internal/relay"
	"yieldScope/internal/schedule"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the aggregator relay and strategy API",
		RunE:  runServe,
	}
	addScanFlags(cmd)
	cmd.Flags().String("listen", ":8787", "listen address")
	cmd.Flags().String("schedule", "", "cron spec (with seconds) for periodic strategy refresh")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadServe(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The relay itself talks to 1inch directly; relay-url only applies to clients.
	cfg.RelayURL = ""
	a, err := newApp(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	relayCfg := relay.Config{
		Upstream: cfg.AggregatorURL,
		APIKey:   cfg.AggregatorKey,
		Defaults: scanRequest(cfg.ScanConfig),
	}

	if cfg.Schedule != "" {
		refresher := schedule.NewRefresher(a.optimizer, scanRequest(cfg.ScanConfig), 0, logger.Named("refresh"))
		runner := schedule.NewRunner(ctx, logger.Named("cron"))
		if _, err := runner.Add(cfg.Schedule, refresher.Run); err != nil {
			return err
		}
		runner.Start()
		defer runner.Stop()
		go refresher.Run(ctx)
		relayCfg.Latest = refresher.Latest
		logger.Info("strategy refresh scheduled", zap.String("schedule", cfg.Schedule))
	}

	server, err := relay.NewServer(relayCfg, a.optimizer, logger.Named("relay"))
	if err != nil {
		return err
	}
	return server.Run(ctx, cfg.Listen)
}
