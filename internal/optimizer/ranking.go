package optimizer

import (
	"math"
	"sort"

	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

// MaxOpportunities caps the ranked scan output.
const MaxOpportunities = 15

const (
	tvlScale       = 100_000_000.0
	liquidityScale = 50_000_000.0
)

var maturity = map[string]float64{
	protocol.AaveV3:     0.95,
	protocol.CompoundV3: 0.90,
	protocol.YearnV3:    0.85,
	"beefy":             0.75,
}

func protocolMaturity(id string) float64 {
	if m, ok := maturity[id]; ok {
		return m
	}
	return 0.6
}

// CalculateConfidence scores how much an observation can be trusted, in [0.1, 0.95].
func CalculateConfidence(o model.YieldOpportunity) float64 {
	score := 0.3*math.Min(o.TVL/tvlScale, 1) +
		0.2*math.Min(o.Liquidity/liquidityScale, 1) +
		0.2*(1-math.Min(o.HistoricalVolatility, 1)) +
		0.3*protocolMaturity(o.Protocol)
	return clamp(score, 0.1, 0.95)
}

// PredictAPYChange estimates the near-term APY delta in percentage points, in [-2, 2].
func PredictAPYChange(o model.YieldOpportunity, signal MarketSignal) float64 {
	change := 0.8*signal.Sentiment + 0.6*signal.Trend
	if o.APY > 10 {
		change -= 0.05 * (o.APY - 10)
	}
	if o.Protocol == protocol.YearnV3 && signal.Sentiment > 0 {
		change += 0.1
	}
	return clamp(change, -2, 2)
}

// CalculateAIScore combines yield, confidence, liquidity, fee drag and outlook into a sort key.
func CalculateAIScore(o model.YieldOpportunity) float64 {
	return 0.40*math.Min(o.APY/20, 1) +
		0.25*o.Confidence +
		0.15*math.Min(o.Liquidity/liquidityScale, 1) +
		0.10*(1-math.Min(o.Fees.Total()/2, 1)) +
		0.10*(o.PredictedAPYChange+2)/4
}

// FilterByRisk keeps the opportunities whose tier the profile allows.
func FilterByRisk(ops []model.YieldOpportunity, profile model.RiskProfile) []model.YieldOpportunity {
	out := make([]model.YieldOpportunity, 0, len(ops))
	for _, o := range ops {
		if profile.Allows(o.Risk) {
			out = append(out, o)
		}
	}
	return out
}

// Ranker scores, filters and orders opportunities.
type Ranker struct {
	signals MarketSignalProvider
}

// NewRanker builds a ranker; a nil provider yields a neutral signal.
func NewRanker(signals MarketSignalProvider) *Ranker {
	if signals == nil {
		signals = StaticSignals{}
	}
	return &Ranker{signals: signals}
}

// Rank filters by risk, scores each opportunity and returns at most MaxOpportunities, best first.
func (r *Ranker) Rank(ops []model.YieldOpportunity, profile model.RiskProfile) []model.YieldOpportunity {
	ranked := FilterByRisk(ops, profile)
	for i := range ranked {
		o := &ranked[i]
		o.Confidence = math.Min(CalculateConfidence(*o), o.Source.ConfidenceCeiling())
		o.PredictedAPYChange = PredictAPYChange(*o, r.signals.Signal(*o))
		o.Score = CalculateAIScore(*o)
	}
	SortOpportunities(ranked)
	if len(ranked) > MaxOpportunities {
		ranked = ranked[:MaxOpportunities]
	}
	return ranked
}

// SortOpportunities orders by score, then APY, then chain and protocol.
func SortOpportunities(ops []model.YieldOpportunity) {
	sort.SliceStable(ops, func(i, j int) bool {
		a, b := ops[i], ops[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.APY != b.APY {
			return a.APY > b.APY
		}
		if a.ChainID != b.ChainID {
			return a.ChainID < b.ChainID
		}
		return a.Protocol < b.Protocol
	})
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
