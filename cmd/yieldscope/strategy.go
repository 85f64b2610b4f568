package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/config"
)

func newStrategyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Generate an allocation strategy for the given amount and risk profile",
		RunE:  runStrategy,
	}
	addScanFlags(cmd)
	return cmd
}

func runStrategy(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	a, err := newApp(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	strategy, err := a.optimizer.GenerateStrategy(ctx, scanRequest(cfg))
	if err != nil {
		return err
	}
	logger.Info("strategy generated",
		zap.String("strategy_id", strategy.ID),
		zap.Float64("target_apy", strategy.TargetAPY),
		zap.Int("allocations", len(strategy.Allocations)),
	)
	return printJSON(os.Stdout, strategy)
}
