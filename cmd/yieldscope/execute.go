package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldScope/internal/config"
	"yieldScope/internal/execution"
	"yieldScope/internal/model"
)

func newExecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Route funds to the strategy's top opportunity and deposit them",
		RunE:  runExecute,
	}
	addScanFlags(cmd)
	flags := cmd.Flags()
	flags.String("mode", config.ModeSimulated, "execution mode (simulated, live)")
	flags.String("wallet", "", "user wallet address")
	flags.String("private-key", "", "hex signing key for live mode")
	flags.Duration("swap-delay", execution.DefaultSimulatedDelay, "simulated swap duration (negative disables)")
	flags.String("protocol", "", "deposit into this protocol instead of the strategy's top pick")
	flags.Uint64("to-chain", 0, "destination chain when --protocol is set")
	return cmd
}

func runExecute(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadExecute(cfgFile, cmd.Flags())
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

	executor, user, err := newExecutor(a, cfg, logger)
	if err != nil {
		return err
	}

	opts := []execution.Option{
		execution.WithLogger(logger.Named("execution")),
		execution.WithProgress(func(state model.ExecutionState) {
			fmt.Fprintf(os.Stderr, "execution: %s\n", state)
		}),
	}
	if a.journal != nil {
		opts = append(opts, execution.WithRecorder(a.journal))
	}
	orchestrator := execution.NewOrchestrator(a.adapters, a.aggregator, executor, opts...)

	var rec *model.ExecutionRecord
	protocolID, _ := cmd.Flags().GetString("protocol")
	if protocolID = strings.TrimSpace(protocolID); protocolID != "" {
		toChain, _ := cmd.Flags().GetUint64("to-chain")
		if !model.KnownChain(toChain) {
			return fmt.Errorf("to-chain: unsupported chain %d", toChain)
		}
		from := cfg.FromChain
		if from == 0 {
			from = toChain
		}
		rec, err = orchestrator.Execute(ctx, execution.Request{
			FromChainID: from,
			ToChainID:   toChain,
			Protocol:    protocolID,
			Asset:       cfg.Asset,
			Amount:      cfg.Amount,
			UserAddress: user,
		})
	} else {
		strategy, genErr := a.optimizer.GenerateStrategy(ctx, scanRequest(cfg.ScanConfig))
		if genErr != nil {
			return genErr
		}
		logger.Info("executing strategy",
			zap.String("strategy_id", strategy.ID),
			zap.String("protocol", strategy.Allocations[0].Opportunity.Protocol),
			zap.Uint64("chain_id", strategy.Allocations[0].Opportunity.ChainID),
		)
		rec, err = orchestrator.ExecuteStrategy(ctx, strategy, cfg.FromChain, user)
	}

	if rec != nil {
		if printErr := printJSON(os.Stdout, rec); printErr != nil && err == nil {
			err = printErr
		}
	}
	return err
}

func newExecutor(a *app, cfg config.ExecuteConfig, logger *zap.Logger) (execution.Executor, common.Address, error) {
	if cfg.Mode == config.ModeSimulated {
		return execution.NewSimulatedExecutor(cfg.SwapDelay), common.HexToAddress(cfg.Wallet), nil
	}

	executor, err := execution.NewChainExecutor(a.backends(), cfg.PrivateKey, execution.DefaultPollConfig, logger.Named("executor"))
	if err != nil {
		return nil, common.Address{}, err
	}
	if cfg.Wallet != "" && common.HexToAddress(cfg.Wallet) != executor.Address() {
		return nil, common.Address{}, fmt.Errorf("wallet %s does not match signer %s", cfg.Wallet, executor.Address().Hex())
	}
	return executor, executor.Address(), nil
}
