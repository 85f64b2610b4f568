package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yieldScope/internal/aggregator"
	"yieldScope/internal/chain"
	"yieldScope/internal/config"
	"yieldScope/internal/execution"
	"yieldScope/internal/optimizer"
	"yieldScope/internal/protocol"
	"yieldScope/internal/storage"
	"yieldScope/internal/storage/postgres"
	"yieldScope/internal/subgraph"
)

// app holds the components shared by every command.
type app struct {
	logger     *zap.Logger
	registry   *chain.Registry
	aggregator *aggregator.Client
	adapters   []protocol.Adapter
	optimizer  *optimizer.Optimizer
	journal    storage.Journal
	closers    []func()
}

func newApp(ctx context.Context, cfg config.Common, logger *zap.Logger) (*app, error) {
	a := &app{logger: logger}

	a.registry = chain.NewRegistry(cfg.RPCURLs, cfg.RPCTemplate)
	a.closers = append(a.closers, a.registry.Close)

	aggCfg := aggregator.Config{
		BaseURL:      cfg.AggregatorURL,
		APIKey:       cfg.AggregatorKey,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}
	if cfg.RelayURL != "" {
		aggCfg.BaseURL = cfg.RelayURL
		aggCfg.Relay = true
	}
	agg, err := aggregator.NewClient(aggCfg, logger.Named("aggregator"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.aggregator = agg
	a.closers = append(a.closers, agg.Close)

	journal, closeJournal, err := openJournal(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.journal = journal
	a.closers = append(a.closers, closeJournal)

	readers := protocol.ReaderFunc(func(ctx context.Context, chainID uint64) (protocol.ChainReader, error) {
		c, err := a.registry.Client(ctx, chainID)
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	opts := []protocol.Option{protocol.WithLogger(logger.Named("protocol")), protocol.WithPricer(agg)}

	var reserves protocol.ReserveSource
	if graph := subgraph.NewClient(cfg.AaveSubgraphs); !graph.Empty() {
		reserves = graph
	}
	a.adapters = []protocol.Adapter{
		protocol.NewAave(readers, reserves, opts...),
		protocol.NewCompound(readers, opts...),
		protocol.NewYearn(readers, opts...),
	}

	seed := cfg.SignalSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	scanner := optimizer.NewScanner(a.adapters, optimizer.NewRanker(optimizer.NewRandomSignals(seed)), optimizer.ScannerConfig{
		Chains:            cfg.Chains,
		MaxParallel:       cfg.MaxParallel,
		SynthesizeMissing: cfg.Mock,
	}, logger.Named("scanner"))

	optOpts := []optimizer.OptimizerOption{
		optimizer.WithGasPricer(agg),
		optimizer.WithOptimizerLogger(logger.Named("optimizer")),
	}
	if a.journal != nil {
		optOpts = append(optOpts, optimizer.WithStrategySink(a.journal))
	}
	a.optimizer = optimizer.NewOptimizer(scanner, optOpts...)

	return a, nil
}

// openJournal combines the configured journals. The returned func closes any pool it opened.
func openJournal(ctx context.Context, cfg config.Common, logger *zap.Logger) (storage.Journal, func(), error) {
	noop := func() {}
	var journals storage.Multi
	if cfg.Journal != "" {
		journals = append(journals, storage.NewJsonlJournal(cfg.Journal))
	}
	closer := noop
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, noop, fmt.Errorf("ensure journal schema: %w", err)
		}
		journals = append(journals, store)
		closer = store.Close
	}
	switch len(journals) {
	case 0:
		return nil, closer, nil
	case 1:
		return journals[0], closer, nil
	default:
		logger.Debug("journaling to multiple sinks", zap.Int("sinks", len(journals)))
		return journals, closer, nil
	}
}

// Close releases every component in reverse order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func (a *app) backends() execution.BackendSource {
	return func(ctx context.Context, chainID uint64) (execution.Backend, error) {
		c, err := a.registry.Client(ctx, chainID)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}
