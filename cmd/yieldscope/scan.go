package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/config"
	"yieldScope/internal/model"
	"yieldScope/internal/optimizer"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan every protocol and chain and print ranked opportunities",
		RunE:  runScan,
	}
	addScanFlags(cmd)
	return cmd
}

type scanOutput struct {
	Asset         string                   `json:"asset"`
	Amount        decimal.Decimal          `json:"amount"`
	RiskProfile   model.RiskProfile        `json:"risk_profile"`
	FromChainID   uint64                   `json:"from_chain_id,omitempty"`
	Chains        []uint64                 `json:"chains"`
	Opportunities []model.YieldOpportunity `json:"opportunities"`
	ScannedAt     time.Time                `json:"scanned_at"`
}

func runScan(cmd *cobra.Command, _ []string) error {
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

	req := scanRequest(cfg)
	scanner := a.optimizer.Scanner()
	logger.Info("scan start",
		zap.String("asset", req.Asset),
		zap.String("risk", string(req.RiskProfile)),
		zap.Uint64s("chains", scanner.Chains()),
	)
	ops := scanner.ScanAllOpportunities(ctx, req)
	logger.Info("scan done", zap.Int("opportunities", len(ops)))

	return printJSON(os.Stdout, scanOutput{
		Asset:         req.Asset,
		Amount:        req.Amount,
		RiskProfile:   req.RiskProfile,
		FromChainID:   req.FromChainID,
		Chains:        scanner.Chains(),
		Opportunities: ops,
		ScannedAt:     time.Now().UTC(),
	})
}

func scanRequest(cfg config.ScanConfig) optimizer.ScanRequest {
	return optimizer.ScanRequest{
		Asset:       cfg.Asset,
		Amount:      cfg.Amount,
		RiskProfile: cfg.Risk,
		FromChainID: cfg.FromChain,
	}
}
