package schedule

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"yieldScope/internal/model"
	"yieldScope/internal/optimizer"
)

// StrategyGenerator produces a strategy for a request.
type StrategyGenerator interface {
	GenerateStrategy(ctx context.Context, req optimizer.ScanRequest) (*model.SmartStrategy, error)
}

// Refresher regenerates a strategy for fixed inputs and keeps the latest result.
type Refresher struct {
	gen     StrategyGenerator
	req     optimizer.ScanRequest
	timeout time.Duration
	logger  *zap.Logger

	running sync.Mutex
	mu      sync.RWMutex
	latest  *model.SmartStrategy
	lastErr error
}

// NewRefresher builds a refresher. A zero timeout defaults to one minute.
func NewRefresher(gen StrategyGenerator, req optimizer.ScanRequest, timeout time.Duration, logger *zap.Logger) *Refresher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{gen: gen, req: req, timeout: timeout, logger: logger}
}

// Run generates one strategy. Overlapping runs are skipped.
func (r *Refresher) Run(ctx context.Context) {
	if !r.running.TryLock() {
		r.logger.Warn("strategy refresh still running, skipping")
		return
	}
	defer r.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	strategy, err := r.gen.GenerateStrategy(ctx, r.req)

	r.mu.Lock()
	r.lastErr = err
	if err == nil {
		r.latest = strategy
	}
	r.mu.Unlock()

	if err != nil {
		r.logger.Warn("strategy refresh failed",
			zap.String("asset", r.req.Asset),
			zap.String("risk", string(r.req.RiskProfile)),
			zap.Error(err),
		)
		return
	}
	r.logger.Info("strategy refreshed",
		zap.String("strategy_id", strategy.ID),
		zap.Float64("target_apy", strategy.TargetAPY),
		zap.Int("allocations", len(strategy.Allocations)),
		zap.Duration("duration", time.Since(start)),
	)
}

// Latest returns the most recent successful strategy, or nil.
func (r *Refresher) Latest() *model.SmartStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// LastError returns the error of the most recent run.
func (r *Refresher) LastError() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastErr
}
