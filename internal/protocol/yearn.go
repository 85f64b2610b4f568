package protocol

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"yieldScope/internal/model"
)

// DefaultYearnLookback is the window over which share price growth is annualized.
const DefaultYearnLookback = 7 * 24 * time.Hour

// Yearn reads Yearn V3 (ERC-4626) vaults.
type Yearn struct {
	base
	lookback time.Duration
}

// NewYearn builds the Yearn V3 adapter over the default vault tables.
func NewYearn(readers ReaderSource, opts ...Option) *Yearn {
	return &Yearn{
		base:     newBase(yearnInfo, readers, DefaultYearnMarkets(), opts),
		lookback: DefaultYearnLookback,
	}
}

// LiveAPY annualizes pricePerShare growth between the latest block and a lookback block.
func (y *Yearn) LiveAPY(ctx context.Context, chainID uint64, asset string) *model.LiveData {
	m, ok := y.market(chainID, asset)
	if !ok {
		return nil
	}
	data, err := y.readVault(ctx, m)
	if err != nil {
		return y.fallback(m, err)
	}
	return data
}

func (y *Yearn) readVault(ctx context.Context, m Market) (*model.LiveData, error) {
	reader, err := y.reader(ctx, m.ChainID)
	if err != nil {
		return nil, err
	}
	vaultABI, err := YearnVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}

	latest, err := reader.LatestBlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	past := lookbackBlock(latest, y.lookback, model.LookupChain(m.ChainID).BlockTimeMillis)
	if past >= latest {
		return nil, fmt.Errorf("chain too short for lookback")
	}

	tsLatest, err := reader.BlockTimestamp(ctx, latest)
	if err != nil {
		return nil, fmt.Errorf("block %d timestamp: %w", latest, err)
	}
	tsPast, err := reader.BlockTimestamp(ctx, past)
	if err != nil {
		return nil, fmt.Errorf("block %d timestamp: %w", past, err)
	}
	if tsLatest <= tsPast {
		return nil, fmt.Errorf("non-increasing block timestamps %d..%d", tsPast, tsLatest)
	}

	ppsNow, err := callBigInt(ctx, reader, m.Contract, vaultABI, "pricePerShare", new(big.Int).SetUint64(latest))
	if err != nil {
		return nil, err
	}
	ppsThen, err := callBigInt(ctx, reader, m.Contract, vaultABI, "pricePerShare", new(big.Int).SetUint64(past))
	if err != nil {
		return nil, err
	}
	apy, err := GrowthToAPY(ppsNow, ppsThen, tsLatest-tsPast)
	if err != nil {
		return nil, err
	}

	assets, err := callBigInt(ctx, reader, m.Contract, vaultABI, "totalAssets", new(big.Int).SetUint64(latest))
	if err != nil {
		return nil, err
	}
	tvl := y.usd(ctx, m, assets)

	return y.live(m, apy, tvl, tvl, 0)
}

func lookbackBlock(latest uint64, lookback time.Duration, blockTimeMillis uint64) uint64 {
	if blockTimeMillis == 0 {
		blockTimeMillis = 2000
	}
	blocks := uint64(lookback.Milliseconds()) / blockTimeMillis
	if blocks >= latest {
		return 0
	}
	return latest - blocks
}

// BuildDepositTransaction encodes vault.deposit(assets, receiver).
func (y *Yearn) BuildDepositTransaction(chainID uint64, asset string, amount decimal.Decimal, user common.Address) (*model.DepositTx, error) {
	m, units, err := y.depositMarket(chainID, asset, amount)
	if err != nil {
		return nil, err
	}
	vaultABI, err := YearnVaultABI()
	if err != nil {
		return nil, fmt.Errorf("parse vault abi: %w", err)
	}
	data, err := vaultABI.Pack("deposit", units, user)
	if err != nil {
		return nil, fmt.Errorf("pack deposit: %w", err)
	}
	return y.depositTx(m, units, data), nil
}
