package optimizer

import (
	"math/rand"
	"sync"

	"yieldScope/internal/model"
)

// MarketSignal is a short-term outlook for one opportunity.
// Sentiment and Trend are in [-1, 1]; positive is bullish.
type MarketSignal struct {
	Sentiment float64 `json:"sentiment"`
	Trend     float64 `json:"trend"`
}

// MarketSignalProvider supplies the market term of the APY prediction.
type MarketSignalProvider interface {
	Signal(o model.YieldOpportunity) MarketSignal
}

// RandomSignals draws small uniform sentiment and trend values.
type RandomSignals struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSignals seeds a random provider.
func NewRandomSignals(seed int64) *RandomSignals {
	return &RandomSignals{rng: rand.New(rand.NewSource(seed))}
}

func (r *RandomSignals) Signal(o model.YieldOpportunity) MarketSignal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return MarketSignal{
		Sentiment: (r.rng.Float64() - 0.5) * 0.4,
		Trend:     (r.rng.Float64() - 0.5) * 0.2,
	}
}

// StaticSignals returns the same signal for every opportunity.
type StaticSignals MarketSignal

func (s StaticSignals) Signal(model.YieldOpportunity) MarketSignal {
	return MarketSignal(s)
}
