package optimizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"yieldScope/internal/aggregator"
	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

// ErrNoOpportunities is returned when nothing survives the risk filter.
var ErrNoOpportunities = errors.New("no opportunities match the risk profile")

// GasPricer quotes current gas prices per chain.
type GasPricer interface {
	GasPrice(ctx context.Context, chainID uint64) (*aggregator.GasPrice, error)
}

// StrategySink persists generated strategies.
type StrategySink interface {
	RecordStrategy(ctx context.Context, s *model.SmartStrategy) error
}

// Optimizer turns a scan into a SmartStrategy.
type Optimizer struct {
	scanner *Scanner
	gas     GasPricer
	sink    StrategySink
	logger  *zap.Logger
	now     func() time.Time
}

// OptimizerOption configures an Optimizer.
type OptimizerOption func(*Optimizer)

// WithGasPricer prices the gas estimate.
func WithGasPricer(g GasPricer) OptimizerOption {
	return func(o *Optimizer) { o.gas = g }
}

// WithStrategySink records every generated strategy.
func WithStrategySink(s StrategySink) OptimizerOption {
	return func(o *Optimizer) { o.sink = s }
}

// WithOptimizerLogger sets the logger.
func WithOptimizerLogger(logger *zap.Logger) OptimizerOption {
	return func(o *Optimizer) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOptimizer builds an optimizer over a scanner.
func NewOptimizer(scanner *Scanner, opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{scanner: scanner, logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Scanner exposes the underlying scanner.
func (o *Optimizer) Scanner() *Scanner {
	return o.scanner
}

// GenerateStrategy scans, allocates and explains a strategy for the request.
func (o *Optimizer) GenerateStrategy(ctx context.Context, req ScanRequest) (*model.SmartStrategy, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", req.Amount.String())
	}
	if req.RiskProfile == "" {
		req.RiskProfile = model.ProfileBalanced
	}
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" {
		asset = "USDC"
	}
	req.Asset = asset

	ranked := o.scanner.ScanAllOpportunities(ctx, req)
	if len(ranked) == 0 {
		return nil, fmt.Errorf("%s %s: %w", req.RiskProfile, asset, ErrNoOpportunities)
	}

	allocations := OptimizePortfolio(ranked, req.Amount, req.RiskProfile)
	summary := Summarize(allocations)

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("strategy id: %w", err)
	}

	strategy := &model.SmartStrategy{
		ID:            id.String(),
		Name:          strategyName(req.RiskProfile),
		Description:   describe(req, allocations),
		Asset:         asset,
		TotalAmount:   req.Amount,
		RiskProfile:   req.RiskProfile,
		TargetAPY:     summary.TargetAPY,
		RiskScore:     summary.RiskScore,
		Allocations:   allocations,
		EstimatedGas:  o.estimateGas(ctx, allocations),
		EstimatedTime: estimatedTime(allocations),
		Reasoning:     reasoning(ranked, allocations, summary),
		Confidence:    summary.Confidence,
		CreatedAt:     o.now().UTC(),
	}

	if o.sink != nil {
		if err := o.sink.RecordStrategy(ctx, strategy); err != nil {
			o.logger.Warn("record strategy failed", zap.String("strategy_id", strategy.ID), zap.Error(err))
		}
	}
	o.logger.Info("strategy generated",
		zap.String("strategy_id", strategy.ID),
		zap.String("risk", string(req.RiskProfile)),
		zap.Int("allocations", len(allocations)),
		zap.Float64("target_apy", strategy.TargetAPY),
	)
	return strategy, nil
}

// estimateGas sums deposit and approval gas, priced at the first allocation's chain.
func (o *Optimizer) estimateGas(ctx context.Context, allocations []model.Allocation) model.GasEstimate {
	var est model.GasEstimate
	for _, a := range allocations {
		info, ok := protocol.InfoFor(a.Opportunity.Protocol)
		if !ok {
			continue
		}
		est.Units += info.DepositGas + protocol.ApprovalGas
	}
	if o.gas == nil || len(allocations) == 0 {
		return est
	}
	chainID := allocations[0].Opportunity.ChainID
	gp, err := o.gas.GasPrice(ctx, chainID)
	if err != nil {
		o.logger.Debug("gas price unavailable", zap.Uint64("chain_id", chainID), zap.Error(err))
		return est
	}
	est.GweiPrice = gp.MediumGwei()
	est.Native = float64(est.Units) * est.GweiPrice / 1e9
	return est
}

func estimatedTime(allocations []model.Allocation) int {
	max := 0
	for _, a := range allocations {
		if a.Opportunity.TimeToOptimal > max {
			max = a.Opportunity.TimeToOptimal
		}
	}
	return max
}

func strategyName(profile model.RiskProfile) string {
	switch profile {
	case model.ProfileConservative:
		return "Capital Preservation"
	case model.ProfileAggressive:
		return "Yield Maximizer"
	default:
		return "Balanced Growth"
	}
}

func describe(req ScanRequest, allocations []model.Allocation) string {
	chains := make(map[uint64]struct{})
	for _, a := range allocations {
		chains[a.Opportunity.ChainID] = struct{}{}
	}
	return fmt.Sprintf("%s allocation of %s %s across %d positions on %d chains",
		req.RiskProfile, req.Amount.String(), req.Asset, len(allocations), len(chains))
}

func reasoning(ranked []model.YieldOpportunity, allocations []model.Allocation, summary Summary) []string {
	chains := make(map[uint64]struct{})
	live := 0
	for _, o := range ranked {
		chains[o.ChainID] = struct{}{}
		if !o.Degraded() {
			live++
		}
	}
	top := allocations[0].Opportunity
	lines := []string{
		fmt.Sprintf("Ranked %d opportunities across %d chains", len(ranked), len(chains)),
		fmt.Sprintf("%d backed by live reads, %d from fallback or synthesized data", live, len(ranked)-live),
		fmt.Sprintf("Top pick %s on %s: %.2f%% APY, score %.3f", top.ProtocolName, top.ChainName, top.APY, top.Score),
		fmt.Sprintf("Blended target APY %.2f%% at risk score %.2f", summary.TargetAPY, summary.RiskScore),
	}
	if top.Degraded() {
		lines = append(lines, fmt.Sprintf("Top pick is %s data; verify rates before depositing", top.Source))
	}
	return lines
}
