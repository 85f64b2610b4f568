package optimizer

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

// stubAdapter serves fixed LiveData per chain; chainID 0 matches any chain.
type stubAdapter struct {
	info  protocol.Info
	data  map[uint64]model.LiveData
	calls int32
}

func newStub(t *testing.T, id string, byChain map[uint64]model.LiveData) *stubAdapter {
	t.Helper()
	info, ok := protocol.InfoFor(id)
	if !ok {
		t.Fatalf("unknown protocol %s", id)
	}
	return &stubAdapter{info: info, data: byChain}
}

func (s *stubAdapter) Name() string        { return s.info.ID }
func (s *stubAdapter) Info() protocol.Info { return s.info }

func (s *stubAdapter) LiveAPY(ctx context.Context, chainID uint64, asset string) *model.LiveData {
	atomic.AddInt32(&s.calls, 1)
	d, ok := s.data[chainID]
	if !ok {
		d, ok = s.data[0]
	}
	if !ok {
		return nil
	}
	d.Protocol = s.info.ID
	d.ChainID = chainID
	d.Asset = asset
	return &d
}

func (s *stubAdapter) BuildDepositTransaction(chainID uint64, asset string, amount decimal.Decimal, user common.Address) (*model.DepositTx, error) {
	return nil, protocol.ErrMarketNotConfigured
}

func (s *stubAdapter) Spender(chainID uint64, asset string) (common.Address, error) {
	return common.Address{}, protocol.ErrMarketNotConfigured
}

func liveData(apy float64) model.LiveData {
	return model.LiveData{
		APY:        apy,
		TVL:        200_000_000,
		Liquidity:  100_000_000,
		Confidence: 0.95,
		Source:     model.SourceLive,
	}
}

func polygonStubs(t *testing.T) []protocol.Adapter {
	t.Helper()
	return []protocol.Adapter{
		newStub(t, protocol.AaveV3, map[uint64]model.LiveData{137: liveData(3.8)}),
		newStub(t, protocol.CompoundV3, map[uint64]model.LiveData{137: liveData(4.2)}),
		newStub(t, protocol.YearnV3, map[uint64]model.LiveData{137: liveData(8.5)}),
	}
}
