package protocol

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/model"
)

// ErrMarketNotConfigured is returned when an adapter has no market for a chain and asset.
var ErrMarketNotConfigured = errors.New("market not configured")

// Adapter reads yield data from one lending or vault protocol and builds deposit calls.
type Adapter interface {
	Name() string
	Info() Info
	// LiveAPY never fails: it returns nil for unknown markets and fallback data on read errors.
	LiveAPY(ctx context.Context, chainID uint64, asset string) *model.LiveData
	BuildDepositTransaction(chainID uint64, asset string, amount decimal.Decimal, user common.Address) (*model.DepositTx, error)
	Spender(chainID uint64, asset string) (common.Address, error)
}

// ChainReader is the read-only subset of a chain client the adapters need.
type ChainReader interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// ReaderSource resolves a ChainReader per chain.
type ReaderSource interface {
	Reader(ctx context.Context, chainID uint64) (ChainReader, error)
}

// ReaderFunc adapts a function to ReaderSource.
type ReaderFunc func(ctx context.Context, chainID uint64) (ChainReader, error)

func (f ReaderFunc) Reader(ctx context.Context, chainID uint64) (ChainReader, error) {
	return f(ctx, chainID)
}

// Pricer quotes a token's USD spot price.
type Pricer interface {
	PriceUSD(ctx context.Context, chainID uint64, token common.Address) (float64, error)
}

// Option configures an adapter.
type Option func(*base)

// WithLogger sets the adapter logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPricer sets the USD price source for non-stable markets.
func WithPricer(p Pricer) Option {
	return func(b *base) { b.pricer = p }
}

// WithMarkets replaces the adapter's market table.
func WithMarkets(markets []Market) Option {
	return func(b *base) { b.markets = indexMarkets(markets) }
}

// WithClock overrides the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

type base struct {
	info    Info
	readers ReaderSource
	pricer  Pricer
	logger  *zap.Logger
	markets map[uint64]map[string]Market
	now     func() time.Time
}

func newBase(info Info, readers ReaderSource, markets []Market, opts []Option) base {
	b := base{
		info:    info,
		readers: readers,
		logger:  zap.NewNop(),
		markets: indexMarkets(markets),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With(zap.String("protocol", info.ID))
	return b
}

func (b *base) Name() string { return b.info.ID }

func (b *base) Info() Info { return b.info }

func (b *base) market(chainID uint64, asset string) (Market, bool) {
	byAsset, ok := b.markets[chainID]
	if !ok {
		return Market{}, false
	}
	m, ok := byAsset[strings.ToUpper(asset)]
	return m, ok
}

func (b *base) Spender(chainID uint64, asset string) (common.Address, error) {
	m, ok := b.market(chainID, asset)
	if !ok {
		return common.Address{}, fmt.Errorf("%s on chain %d asset %s: %w", b.info.ID, chainID, asset, ErrMarketNotConfigured)
	}
	return m.Contract, nil
}

func (b *base) reader(ctx context.Context, chainID uint64) (ChainReader, error) {
	if b.readers == nil {
		return nil, fmt.Errorf("no chain reader configured")
	}
	r, err := b.readers.Reader(ctx, chainID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("no chain reader for chain %d", chainID)
	}
	return r, nil
}

// live finalizes a successful read. A non-positive APY is treated as a failed read.
func (b *base) live(m Market, apy, tvl, liquidity, utilization float64) (*model.LiveData, error) {
	if apy <= 0 || isBad(apy) {
		return nil, fmt.Errorf("implausible apy %v", apy)
	}
	return &model.LiveData{
		Protocol:     b.info.ID,
		ChainID:      m.ChainID,
		Asset:        m.Asset,
		TokenAddress: m.Token.Hex(),
		Market:       m.Contract.Hex(),
		APY:          apy,
		TVL:          tvl,
		Liquidity:    liquidity,
		Utilization:  utilization,
		Confidence:   model.SourceLive.ConfidenceCeiling(),
		Source:       model.SourceLive,
		FetchedAt:    b.now().UTC(),
	}, nil
}

// fallback logs the read failure and returns the static-table estimate.
func (b *base) fallback(m Market, cause error) *model.LiveData {
	b.logger.Warn("live read failed, using fallback data",
		zap.Uint64("chain_id", m.ChainID),
		zap.String("asset", m.Asset),
		zap.Error(cause),
	)
	factor := model.LookupChain(m.ChainID).YieldFactor
	return &model.LiveData{
		Protocol:     b.info.ID,
		ChainID:      m.ChainID,
		Asset:        m.Asset,
		TokenAddress: m.Token.Hex(),
		Market:       m.Contract.Hex(),
		APY:          b.info.FallbackAPY * factor,
		TVL:          b.info.FallbackTVL,
		Liquidity:    b.info.FallbackTVL * 0.4,
		Confidence:   model.SourceFallback.ConfidenceCeiling(),
		Source:       model.SourceFallback,
		FetchedAt:    b.now().UTC(),
	}
}

// usd converts base units of the market token into USD.
func (b *base) usd(ctx context.Context, m Market, units *big.Int) float64 {
	amount := unitsToFloat(units, m.Decimals)
	if m.Stable {
		return amount
	}
	if b.pricer == nil {
		return 0
	}
	price, err := b.pricer.PriceUSD(ctx, m.ChainID, m.Token)
	if err != nil {
		b.logger.Debug("price lookup failed", zap.String("token", m.Token.Hex()), zap.Error(err))
		return 0
	}
	return amount * price
}

func (b *base) depositTx(m Market, units *big.Int, data []byte) *model.DepositTx {
	return &model.DepositTx{
		ChainID:     m.ChainID,
		To:          m.Contract.Hex(),
		Data:        "0x" + common.Bytes2Hex(data),
		Value:       "0",
		Spender:     m.Contract.Hex(),
		Token:       m.Token.Hex(),
		AmountUnits: units.String(),
	}
}

func (b *base) depositMarket(chainID uint64, asset string, amount decimal.Decimal) (Market, *big.Int, error) {
	m, ok := b.market(chainID, asset)
	if !ok {
		return Market{}, nil, fmt.Errorf("%s on chain %d asset %s: %w", b.info.ID, chainID, asset, ErrMarketNotConfigured)
	}
	units, err := ToUnits(amount, m.Decimals)
	if err != nil {
		return Market{}, nil, err
	}
	return m, units, nil
}

func callMethod(ctx context.Context, reader ChainReader, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	resp, err := reader.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func callBigInt(ctx context.Context, reader ChainReader, to common.Address, parsed abi.ABI, method string, block *big.Int, args ...interface{}) (*big.Int, error) {
	values, err := callMethod(ctx, reader, to, parsed, method, block, args...)
	if err != nil {
		return nil, err
	}
	v, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return v, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
