package optimizer

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
)

func rankedFixture(n int) []model.YieldOpportunity {
	ops := make([]model.YieldOpportunity, n)
	for i := range ops {
		ops[i] = model.YieldOpportunity{
			Protocol:     "p",
			ProtocolName: "Protocol",
			ChainID:      uint64(i + 1),
			ChainName:    "Chain",
			APY:          float64(10 - i),
			Risk:         model.RiskLow,
			Confidence:   0.9,
		}
	}
	return ops
}

func TestOptimizePortfolioSumsToHundred(t *testing.T) {
	profiles := []model.RiskProfile{model.ProfileConservative, model.ProfileBalanced, model.ProfileAggressive}
	for _, profile := range profiles {
		for n := 1; n <= 10; n++ {
			allocs := OptimizePortfolio(rankedFixture(n), decimal.NewFromInt(1000), profile)
			if len(allocs) > profile.MaxPositions() {
				t.Fatalf("%s n=%d: %d allocations above cap", profile, n, len(allocs))
			}
			want := n
			if want > profile.MaxPositions() {
				want = profile.MaxPositions()
			}
			if len(allocs) != want {
				t.Fatalf("%s n=%d: expected %d allocations, got %d", profile, n, want, len(allocs))
			}
			sum := 0.0
			for _, a := range allocs {
				sum += a.Percentage
				if a.Reason == "" {
					t.Fatalf("%s n=%d: empty reason", profile, n)
				}
			}
			if math.Abs(sum-100) > 1e-6 {
				t.Fatalf("%s n=%d: percentages sum to %v", profile, n, sum)
			}
		}
	}
}

func TestOptimizePortfolioRoundsEveryShare(t *testing.T) {
	allocs := OptimizePortfolio(rankedFixture(7), decimal.NewFromInt(1000), model.ProfileAggressive)
	if len(allocs) != 7 {
		t.Fatalf("expected 7 allocations, got %d", len(allocs))
	}
	for i, a := range allocs {
		if a.Percentage != math.Round(a.Percentage*100)/100 {
			t.Fatalf("allocation %d not rounded to 2 dp: %v", i, a.Percentage)
		}
	}
	if last := allocs[6].Percentage; last != 11.65 {
		t.Fatalf("last share mismatch: %v", last)
	}
}

func TestOptimizePortfolioTopShare(t *testing.T) {
	allocs := OptimizePortfolio(rankedFixture(5), decimal.NewFromInt(1000), model.ProfileBalanced)
	want := []float64{40, 15, 15, 15, 15}
	for i, a := range allocs {
		if !near(a.Percentage, want[i]) {
			t.Fatalf("allocation %d: expected %v, got %v", i, want[i], a.Percentage)
		}
	}
	if !allocs[0].Amount.Equal(decimal.NewFromInt(400)) {
		t.Fatalf("top amount mismatch: %s", allocs[0].Amount)
	}

	allocs = OptimizePortfolio(rankedFixture(3), decimal.NewFromInt(1000), model.ProfileConservative)
	if !near(allocs[0].Percentage, 60) || !near(allocs[1].Percentage, 20) {
		t.Fatalf("conservative split mismatch: %v %v", allocs[0].Percentage, allocs[1].Percentage)
	}
}

func TestOptimizePortfolioEmpty(t *testing.T) {
	if allocs := OptimizePortfolio(nil, decimal.NewFromInt(1), model.ProfileBalanced); allocs != nil {
		t.Fatalf("expected nil, got %v", allocs)
	}
}

func TestSummarize(t *testing.T) {
	allocs := []model.Allocation{
		{Percentage: 60, Opportunity: model.YieldOpportunity{APY: 4, Risk: model.RiskLow, Confidence: 0.9}},
		{Percentage: 40, Opportunity: model.YieldOpportunity{APY: 9, Risk: model.RiskMedium, Confidence: 0.7}},
	}
	s := Summarize(allocs)
	if !near(s.TargetAPY, 6) || !near(s.RiskScore, 1.4) || !near(s.Confidence, 0.82) {
		t.Fatalf("summary mismatch: %+v", s)
	}
}
