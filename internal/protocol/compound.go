package protocol

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
)

// Compound reads Compound V3 Comet markets.
type Compound struct {
	base
}

// NewCompound builds the Compound V3 adapter over the default Comet tables.
func NewCompound(readers ReaderSource, opts ...Option) *Compound {
	return &Compound{base: newBase(compoundInfo, readers, DefaultCompoundMarkets(), opts)}
}

// LiveAPY reads getSupplyRate(getUtilization()) from the Comet.
func (c *Compound) LiveAPY(ctx context.Context, chainID uint64, asset string) *model.LiveData {
	m, ok := c.market(chainID, asset)
	if !ok {
		return nil
	}
	data, err := c.readComet(ctx, m)
	if err != nil {
		return c.fallback(m, err)
	}
	return data
}

func (c *Compound) readComet(ctx context.Context, m Market) (*model.LiveData, error) {
	reader, err := c.reader(ctx, m.ChainID)
	if err != nil {
		return nil, err
	}
	cometABI, err := CometABI()
	if err != nil {
		return nil, fmt.Errorf("parse comet abi: %w", err)
	}

	utilization, err := callBigInt(ctx, reader, m.Contract, cometABI, "getUtilization", nil)
	if err != nil {
		return nil, err
	}
	if !utilization.IsUint64() {
		return nil, fmt.Errorf("utilization out of range: %s", utilization.String())
	}
	rate, err := callBigInt(ctx, reader, m.Contract, cometABI, "getSupplyRate", nil, utilization.Uint64())
	if err != nil {
		return nil, err
	}
	supply, err := callBigInt(ctx, reader, m.Contract, cometABI, "totalSupply", nil)
	if err != nil {
		return nil, err
	}
	borrow, err := callBigInt(ctx, reader, m.Contract, cometABI, "totalBorrow", nil)
	if err != nil {
		return nil, err
	}

	available := new(big.Int).Sub(supply, borrow)
	if available.Sign() < 0 {
		available.SetInt64(0)
	}
	util, _ := new(big.Float).Quo(new(big.Float).SetInt(utilization), wad).Float64()

	return c.live(m, WadRateToAPY(rate), c.usd(ctx, m, supply), c.usd(ctx, m, available), util)
}

// BuildDepositTransaction encodes Comet.supply(asset, amount).
func (c *Compound) BuildDepositTransaction(chainID uint64, asset string, amount decimal.Decimal, user common.Address) (*model.DepositTx, error) {
	m, units, err := c.depositMarket(chainID, asset, amount)
	if err != nil {
		return nil, err
	}
	cometABI, err := CometABI()
	if err != nil {
		return nil, fmt.Errorf("parse comet abi: %w", err)
	}
	data, err := cometABI.Pack("supply", m.Token, units)
	if err != nil {
		return nil, fmt.Errorf("pack supply: %w", err)
	}
	return c.depositTx(m, units, data), nil
}
