package optimizer

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

func TestScanRespectsRiskAndCap(t *testing.T) {
	var chains []uint64
	for id := uint64(1); id <= 20; id++ {
		chains = append(chains, id)
	}
	adapters := []protocol.Adapter{
		newStub(t, protocol.AaveV3, map[uint64]model.LiveData{0: liveData(3.8)}),
		newStub(t, protocol.CompoundV3, map[uint64]model.LiveData{0: liveData(4.2)}),
		newStub(t, protocol.YearnV3, map[uint64]model.LiveData{0: liveData(8.5)}),
	}
	scanner := NewScanner(adapters, NewRanker(nil), ScannerConfig{Chains: chains, MaxParallel: 4}, nil)

	for _, profile := range []model.RiskProfile{model.ProfileConservative, model.ProfileBalanced, model.ProfileAggressive} {
		ops := scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "usdc", RiskProfile: profile})
		if len(ops) == 0 || len(ops) > MaxOpportunities {
			t.Fatalf("%s: unexpected length %d", profile, len(ops))
		}
		for i, o := range ops {
			if !profile.Allows(o.Risk) {
				t.Fatalf("%s: disallowed tier %s for %s", profile, o.Risk, o.Protocol)
			}
			if i > 0 && ops[i-1].Score < o.Score {
				t.Fatalf("%s: not sorted at %d", profile, i)
			}
		}
	}
}

func TestScanCallsEveryAdapterPerChain(t *testing.T) {
	adapters := polygonStubs(t)
	scanner := NewScanner(adapters, nil, ScannerConfig{Chains: []uint64{1, 137, 42161}}, nil)
	scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC", RiskProfile: model.ProfileAggressive})

	for _, a := range adapters {
		if got := a.(*stubAdapter).calls; got != 3 {
			t.Fatalf("%s: expected 3 calls, got %d", a.Name(), got)
		}
	}
}

func TestScanCrossChainFees(t *testing.T) {
	scanner := NewScanner(polygonStubs(t), nil, ScannerConfig{Chains: []uint64{137}}, nil)

	ops := scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC", RiskProfile: model.ProfileAggressive, FromChainID: 1})
	for _, o := range ops {
		if o.Fees.CrossChain != CrossChainFee || o.TimeToOptimal != 15 {
			t.Fatalf("expected cross-chain terms, got %+v %d", o.Fees, o.TimeToOptimal)
		}
	}

	ops = scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC", RiskProfile: model.ProfileAggressive, FromChainID: 137})
	for _, o := range ops {
		if o.Fees.CrossChain != 0 || o.TimeToOptimal != 2 {
			t.Fatalf("expected same-chain terms, got %+v %d", o.Fees, o.TimeToOptimal)
		}
	}
}

func TestScanAllAdaptersFailing(t *testing.T) {
	failing := protocol.ReaderFunc(func(ctx context.Context, chainID uint64) (protocol.ChainReader, error) {
		return nil, errors.New("rpc unreachable")
	})
	adapters := []protocol.Adapter{
		protocol.NewAave(failing, nil),
		protocol.NewCompound(failing),
		protocol.NewYearn(failing),
	}
	scanner := NewScanner(adapters, NewRanker(NewRandomSignals(7)), ScannerConfig{SynthesizeMissing: true, MockSeed: 7}, nil)

	ops := scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC", RiskProfile: model.ProfileBalanced})
	if len(ops) == 0 {
		t.Fatalf("expected fallback opportunities")
	}
	for _, o := range ops {
		if o.Confidence > 0.8 {
			t.Fatalf("%s confidence %v above 0.8", o.Key(), o.Confidence)
		}
		if !o.Degraded() {
			t.Fatalf("%s must be tagged degraded, got %s", o.Key(), o.Source)
		}
	}
}

func TestScanSynthesizesMissingChains(t *testing.T) {
	adapters := polygonStubs(t)
	scanner := NewScanner(adapters, nil, ScannerConfig{Chains: []uint64{137, 56}, SynthesizeMissing: true, MockSeed: 1}, nil)

	ops := scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC", RiskProfile: model.ProfileBalanced})
	var mocks int
	for _, o := range ops {
		if o.ChainID != 56 {
			continue
		}
		mocks++
		if o.Source != model.SourceMock || o.Confidence > 0.6 {
			t.Fatalf("expected mock with confidence <= 0.6, got %s %v", o.Source, o.Confidence)
		}
		if o.APY < 0.1 {
			t.Fatalf("mock apy below floor: %v", o.APY)
		}
	}
	if mocks != 2 {
		t.Fatalf("expected 2 mock opportunities on chain 56, got %d", mocks)
	}

	disabled := NewScanner(adapters, nil, ScannerConfig{Chains: []uint64{56}}, nil)
	if ops := disabled.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC"}); len(ops) != 0 {
		t.Fatalf("expected no opportunities with synthesis disabled, got %d", len(ops))
	}
}

func TestConservativeStrategyOnPolygon(t *testing.T) {
	scanner := NewScanner(polygonStubs(t), NewRanker(StaticSignals{}), ScannerConfig{Chains: []uint64{137}}, nil)
	opt := NewOptimizer(scanner)

	strategy, err := opt.GenerateStrategy(context.Background(), ScanRequest{
		Asset:       "USDC",
		Amount:      decimal.NewFromInt(1000),
		RiskProfile: model.ProfileConservative,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategy.Allocations) == 0 || len(strategy.Allocations) > 3 {
		t.Fatalf("allocation count out of range: %d", len(strategy.Allocations))
	}

	ranked := scanner.ScanAllOpportunities(context.Background(), ScanRequest{Asset: "USDC", RiskProfile: model.ProfileConservative})
	best := ranked[0]
	for _, o := range ranked {
		if o.Score > best.Score {
			best = o
		}
	}
	top := strategy.Allocations[0].Opportunity
	if top.Key() != best.Key() {
		t.Fatalf("top allocation %s is not the highest scoring %s", top.Key(), best.Key())
	}
	if top.Protocol != protocol.CompoundV3 {
		t.Fatalf("expected compound to lead at equal confidence, got %s", top.Protocol)
	}
	for _, a := range strategy.Allocations {
		if a.Opportunity.Protocol == protocol.YearnV3 {
			t.Fatalf("medium-risk yearn must not appear in a conservative strategy")
		}
	}
}

func TestSingleLiveCombination(t *testing.T) {
	adapters := []protocol.Adapter{
		newStub(t, protocol.AaveV3, map[uint64]model.LiveData{137: liveData(3.8)}),
		newStub(t, protocol.CompoundV3, nil),
		newStub(t, protocol.YearnV3, nil),
	}
	scanner := NewScanner(adapters, nil, ScannerConfig{Chains: []uint64{137}}, nil)
	strategy, err := NewOptimizer(scanner).GenerateStrategy(context.Background(), ScanRequest{
		Asset:       "USDC",
		Amount:      decimal.NewFromInt(1000),
		RiskProfile: model.ProfileConservative,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategy.Allocations) != 1 || strategy.Allocations[0].Percentage != 100 {
		t.Fatalf("expected one full allocation, got %+v", strategy.Allocations)
	}
	if !strategy.Allocations[0].Amount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("amount mismatch: %s", strategy.Allocations[0].Amount)
	}
}
