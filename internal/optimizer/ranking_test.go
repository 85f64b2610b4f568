package optimizer

import (
	"math"
	"testing"

	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCalculateConfidenceClamps(t *testing.T) {
	high := model.YieldOpportunity{Protocol: protocol.AaveV3, TVL: 500_000_000, Liquidity: 100_000_000, HistoricalVolatility: 0.05}
	if got := CalculateConfidence(high); got != 0.95 {
		t.Fatalf("expected ceiling 0.95, got %v", got)
	}

	low := model.YieldOpportunity{Protocol: "unknown", HistoricalVolatility: 1}
	if got := CalculateConfidence(low); !near(got, 0.18) {
		t.Fatalf("expected 0.18, got %v", got)
	}

	floor := model.YieldOpportunity{Protocol: "unknown", HistoricalVolatility: 5}
	floor.TVL = 0
	if got := CalculateConfidence(floor); !near(got, 0.18) {
		t.Fatalf("volatility above 1 must saturate, got %v", got)
	}
}

func TestPredictAPYChange(t *testing.T) {
	neutral := MarketSignal{}
	if got := PredictAPYChange(model.YieldOpportunity{APY: 20}, neutral); !near(got, -0.5) {
		t.Fatalf("mean reversion mismatch: %v", got)
	}
	yearn := model.YieldOpportunity{Protocol: protocol.YearnV3, APY: 8}
	if got := PredictAPYChange(yearn, MarketSignal{Sentiment: 0.1}); !near(got, 0.18) {
		t.Fatalf("yearn bullish mismatch: %v", got)
	}
	if got := PredictAPYChange(yearn, MarketSignal{Sentiment: 5, Trend: 5}); got != 2 {
		t.Fatalf("expected clamp at 2, got %v", got)
	}
	if got := PredictAPYChange(model.YieldOpportunity{APY: 200}, neutral); got != -2 {
		t.Fatalf("expected clamp at -2, got %v", got)
	}
}

func TestCalculateAIScore(t *testing.T) {
	o := model.YieldOpportunity{
		APY:        10,
		Confidence: 0.8,
		Liquidity:  25_000_000,
		Fees:       model.Fees{CrossChain: 0.3},
	}
	want := 0.40*0.5 + 0.25*0.8 + 0.15*0.5 + 0.10*(1-0.15) + 0.10*0.5
	if got := CalculateAIScore(o); !near(got, want) {
		t.Fatalf("score mismatch: got %v want %v", got, want)
	}
}

func TestFilterByRisk(t *testing.T) {
	ops := []model.YieldOpportunity{
		{Protocol: "a", Risk: model.RiskLow},
		{Protocol: "b", Risk: model.RiskMedium},
		{Protocol: "c", Risk: model.RiskHigh},
	}
	cases := map[model.RiskProfile]int{
		model.ProfileConservative: 1,
		model.ProfileBalanced:     2,
		model.ProfileAggressive:   3,
	}
	for profile, want := range cases {
		got := FilterByRisk(ops, profile)
		if len(got) != want {
			t.Fatalf("%s: expected %d, got %d", profile, want, len(got))
		}
		for _, o := range got {
			if !profile.Allows(o.Risk) {
				t.Fatalf("%s: disallowed tier %s", profile, o.Risk)
			}
		}
	}
}

func TestRankCapsConfidenceBySource(t *testing.T) {
	base := model.YieldOpportunity{
		Protocol:             protocol.AaveV3,
		Risk:                 model.RiskLow,
		APY:                  4,
		TVL:                  500_000_000,
		Liquidity:            100_000_000,
		HistoricalVolatility: 0.05,
	}
	live, fallback, mock := base, base, base
	live.Source, live.ChainID = model.SourceLive, 1
	fallback.Source, fallback.ChainID = model.SourceFallback, 10
	mock.Source, mock.ChainID = model.SourceMock, 137

	ranked := NewRanker(nil).Rank([]model.YieldOpportunity{mock, fallback, live}, model.ProfileBalanced)
	if len(ranked) != 3 {
		t.Fatalf("expected 3, got %d", len(ranked))
	}
	for _, o := range ranked {
		if o.Confidence > o.Source.ConfidenceCeiling() {
			t.Fatalf("%s confidence %v above ceiling", o.Source, o.Confidence)
		}
	}
	if ranked[0].Source != model.SourceLive || ranked[2].Source != model.SourceMock {
		t.Fatalf("expected live first and mock last, got %s..%s", ranked[0].Source, ranked[2].Source)
	}
}

func TestRankDeterministicOrder(t *testing.T) {
	a := model.YieldOpportunity{Protocol: protocol.CompoundV3, ChainID: 137, Risk: model.RiskLow, Source: model.SourceLive}
	b := a
	b.Protocol = protocol.AaveV3
	c := a
	c.ChainID = 1

	first := NewRanker(nil).Rank([]model.YieldOpportunity{a, b, c}, model.ProfileBalanced)
	second := NewRanker(nil).Rank([]model.YieldOpportunity{c, a, b}, model.ProfileBalanced)
	for i := range first {
		if first[i].Key() != second[i].Key() {
			t.Fatalf("order differs at %d: %s vs %s", i, first[i].Key(), second[i].Key())
		}
	}
}

func TestRandomSignalsBounded(t *testing.T) {
	s := NewRandomSignals(42)
	for i := 0; i < 100; i++ {
		sig := s.Signal(model.YieldOpportunity{})
		if math.Abs(sig.Sentiment) > 0.2 || math.Abs(sig.Trend) > 0.1 {
			t.Fatalf("signal out of range: %+v", sig)
		}
	}
}
