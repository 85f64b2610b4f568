package optimizer

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
)

// OptimizePortfolio splits totalAmount across the best ranked opportunities.
// The top pick gets the profile's lead share, the rest split the remainder evenly,
// and percentages always sum to exactly 100.
func OptimizePortfolio(ranked []model.YieldOpportunity, totalAmount decimal.Decimal, profile model.RiskProfile) []model.Allocation {
	n := profile.MaxPositions()
	if len(ranked) < n {
		n = len(ranked)
	}
	if n == 0 {
		return nil
	}

	pcts := splitPercentages(n, profile.TopAllocation())
	allocations := make([]model.Allocation, n)
	for i := 0; i < n; i++ {
		o := ranked[i]
		allocations[i] = model.Allocation{
			Opportunity: o,
			Percentage:  pcts[i],
			Amount:      totalAmount.Mul(decimal.NewFromFloat(pcts[i])).Div(decimal.NewFromInt(100)).Round(6),
			Reason:      allocationReason(i, o),
		}
	}
	return allocations
}

func splitPercentages(n int, top float64) []float64 {
	if n == 1 {
		return []float64{100}
	}
	raw := make([]float64, n)
	raw[0] = top
	rest := (100 - top) / float64(n-1)
	sum := top
	for i := 1; i < n; i++ {
		raw[i] = rest
		sum += rest
	}

	out := make([]float64, n)
	assigned := 0.0
	for i := 0; i < n-1; i++ {
		out[i] = math.Round(raw[i]*100/sum*100) / 100
		assigned += out[i]
	}
	out[n-1] = math.Round((100-assigned)*100) / 100
	return out
}

func allocationReason(rank int, o model.YieldOpportunity) string {
	switch rank {
	case 0:
		return fmt.Sprintf("Top pick: %s on %s at %.2f%% APY with %.0f%% confidence",
			o.ProtocolName, o.ChainName, o.APY, o.Confidence*100)
	case 1:
		return fmt.Sprintf("Diversifies into %s on %s at %.2f%% APY",
			o.ProtocolName, o.ChainName, o.APY)
	default:
		return fmt.Sprintf("Adds %s exposure on %s for stability at %.2f%% APY",
			o.ProtocolName, o.ChainName, o.APY)
	}
}

// Summary holds the percentage-weighted aggregates of an allocation set.
type Summary struct {
	TargetAPY  float64
	RiskScore  float64
	Confidence float64
}

// Summarize weights APY, risk tier and confidence by allocation percentage.
func Summarize(allocations []model.Allocation) Summary {
	var s Summary
	for _, a := range allocations {
		w := a.Percentage / 100
		s.TargetAPY += w * a.Opportunity.APY
		s.RiskScore += w * a.Opportunity.Risk.Weight()
		s.Confidence += w * a.Opportunity.Confidence
	}
	return s
}
