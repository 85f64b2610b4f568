package protocol

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/model"
)

// ReserveRates is an off-chain view of an Aave reserve.
type ReserveRates struct {
	LiquidityRate      *big.Int
	TotalSupply        *big.Int
	AvailableLiquidity *big.Int
}

// ReserveSource serves Aave reserve rates from an indexer.
type ReserveSource interface {
	ReserveRates(ctx context.Context, chainID uint64, asset common.Address) (ReserveRates, error)
}

// Aave reads Aave V3 pools.
type Aave struct {
	base
	reserves ReserveSource
}

// NewAave builds the Aave V3 adapter over the default pool tables.
func NewAave(readers ReaderSource, reserves ReserveSource, opts ...Option) *Aave {
	return &Aave{
		base:     newBase(aaveInfo, readers, DefaultAaveMarkets(), opts),
		reserves: reserves,
	}
}

// LiveAPY reads currentLiquidityRate from the pool, then the subgraph, then the static table.
func (a *Aave) LiveAPY(ctx context.Context, chainID uint64, asset string) *model.LiveData {
	m, ok := a.market(chainID, asset)
	if !ok {
		return nil
	}

	data, err := a.readPool(ctx, m)
	if err == nil {
		return data
	}

	if a.reserves != nil {
		data, subErr := a.readReserves(ctx, m)
		if subErr == nil {
			a.logger.Debug("pool read failed, served from subgraph",
				zap.Uint64("chain_id", m.ChainID),
				zap.String("asset", m.Asset),
				zap.Error(err),
			)
			return data
		}
		err = fmt.Errorf("%w; subgraph: %v", err, subErr)
	}

	return a.fallback(m, err)
}

func (a *Aave) readPool(ctx context.Context, m Market) (*model.LiveData, error) {
	reader, err := a.reader(ctx, m.ChainID)
	if err != nil {
		return nil, err
	}
	poolABI, err := AavePoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	tokenABI, err := ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	values, err := callMethod(ctx, reader, m.Contract, poolABI, "getReserveData", nil, m.Token)
	if err != nil {
		return nil, err
	}
	if len(values) < aaveReserveFields {
		return nil, fmt.Errorf("getReserveData: expected %d values, got %d", aaveReserveFields, len(values))
	}
	rate, err := asBigInt(values[2])
	if err != nil {
		return nil, fmt.Errorf("currentLiquidityRate: %w", err)
	}
	aToken, err := asAddress(values[8])
	if err != nil {
		return nil, fmt.Errorf("aTokenAddress: %w", err)
	}
	if aToken == (common.Address{}) {
		return nil, fmt.Errorf("reserve %s is not listed", m.Token.Hex())
	}

	supply, err := callBigInt(ctx, reader, aToken, tokenABI, "totalSupply", nil)
	if err != nil {
		return nil, err
	}
	available, err := callBigInt(ctx, reader, m.Token, tokenABI, "balanceOf", nil, aToken)
	if err != nil {
		return nil, err
	}

	return a.fromRates(ctx, m, rate, supply, available)
}

func (a *Aave) readReserves(ctx context.Context, m Market) (*model.LiveData, error) {
	rates, err := a.reserves.ReserveRates(ctx, m.ChainID, m.Token)
	if err != nil {
		return nil, err
	}
	return a.fromRates(ctx, m, rates.LiquidityRate, rates.TotalSupply, rates.AvailableLiquidity)
}

func (a *Aave) fromRates(ctx context.Context, m Market, rate, supply, available *big.Int) (*model.LiveData, error) {
	tvl := a.usd(ctx, m, supply)
	liquidity := a.usd(ctx, m, available)
	var utilization float64
	if supply != nil && supply.Sign() > 0 && available != nil {
		borrowed := new(big.Int).Sub(supply, available)
		if borrowed.Sign() > 0 {
			u, _ := new(big.Float).Quo(new(big.Float).SetInt(borrowed), new(big.Float).SetInt(supply)).Float64()
			utilization = u
		}
	}
	return a.live(m, RayRateToAPY(rate), tvl, liquidity, utilization)
}

// BuildDepositTransaction encodes Pool.supply(asset, amount, user, 0).
func (a *Aave) BuildDepositTransaction(chainID uint64, asset string, amount decimal.Decimal, user common.Address) (*model.DepositTx, error) {
	m, units, err := a.depositMarket(chainID, asset, amount)
	if err != nil {
		return nil, err
	}
	poolABI, err := AavePoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	data, err := poolABI.Pack("supply", m.Token, units, user, uint16(0))
	if err != nil {
		return nil, fmt.Errorf("pack supply: %w", err)
	}
	return a.depositTx(m, units, data), nil
}
