package optimizer

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

const (
	mockTVL       = 25_000_000.0
	mockLiquidity = 10_000_000.0
	mockMinAPY    = 0.1
)

var mockProtocols = []string{protocol.AaveV3, protocol.CompoundV3}

type mockSynth struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func newMockSynth(seed int64) *mockSynth {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &mockSynth{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

func (m *mockSynth) noise() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64() - 0.5
}

// synthesize returns one placeholder per mock protocol, priced off the fallback table.
func (m *mockSynth) synthesize(chainID uint64, asset string, fromChainID uint64) []model.YieldOpportunity {
	factor := model.LookupChain(chainID).YieldFactor
	out := make([]model.YieldOpportunity, 0, len(mockProtocols))
	for _, id := range mockProtocols {
		info, ok := protocol.InfoFor(id)
		if !ok {
			continue
		}
		var tokenAddress string
		if token, ok := protocol.TokenAddress(chainID, asset); ok {
			tokenAddress = token.Hex()
		}
		data := model.LiveData{
			Protocol:     id,
			ChainID:      chainID,
			Asset:        asset,
			TokenAddress: tokenAddress,
			APY:          math.Max(info.FallbackAPY*factor+m.noise(), mockMinAPY),
			TVL:          mockTVL,
			Liquidity:    mockLiquidity,
			Confidence:   model.SourceMock.ConfidenceCeiling(),
			Source:       model.SourceMock,
			FetchedAt:    m.now().UTC(),
		}
		out = append(out, Normalize(data, info, fromChainID))
	}
	return out
}
