package optimizer

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

// CrossChainFee is the percentage charged for bridging into another chain.
const CrossChainFee = 0.3

const (
	sameChainMinutes  = 2
	crossChainMinutes = 15
)

// ScanRequest is the user input driving a scan or strategy.
type ScanRequest struct {
	Asset       string
	Amount      decimal.Decimal
	RiskProfile model.RiskProfile
	// FromChainID is where the user's funds are; zero means unknown.
	FromChainID uint64
}

// ScannerConfig controls the scan fan-out.
type ScannerConfig struct {
	Chains []uint64
	// MaxParallel bounds concurrent adapter reads; zero or less is unbounded.
	MaxParallel int
	// SynthesizeMissing fills chains without any observation with mock opportunities.
	SynthesizeMissing bool
	MockSeed          int64
}

// Scanner queries every adapter on every chain and ranks the result.
type Scanner struct {
	adapters    []protocol.Adapter
	ranker      *Ranker
	chains      []uint64
	maxParallel int
	mock        *mockSynth
	logger      *zap.Logger
}

// NewScanner wires the adapters into a scanner.
func NewScanner(adapters []protocol.Adapter, ranker *Ranker, cfg ScannerConfig, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ranker == nil {
		ranker = NewRanker(nil)
	}
	chains := cfg.Chains
	if len(chains) == 0 {
		chains = model.DefaultChainIDs
	}
	s := &Scanner{
		adapters:    adapters,
		ranker:      ranker,
		chains:      append([]uint64(nil), chains...),
		maxParallel: cfg.MaxParallel,
		logger:      logger,
	}
	if cfg.SynthesizeMissing {
		s.mock = newMockSynth(cfg.MockSeed)
	}
	return s
}

// Chains returns the scanned chain IDs.
func (s *Scanner) Chains() []uint64 {
	return append([]uint64(nil), s.chains...)
}

// ScanAllOpportunities reads all (chain, adapter) pairs concurrently and returns ranked opportunities.
func (s *Scanner) ScanAllOpportunities(ctx context.Context, req ScanRequest) []model.YieldOpportunity {
	asset := strings.ToUpper(strings.TrimSpace(req.Asset))
	if asset == "" {
		asset = "USDC"
	}

	results := make([][]*model.LiveData, len(s.chains))
	for i := range results {
		results[i] = make([]*model.LiveData, len(s.adapters))
	}

	var g errgroup.Group
	if s.maxParallel > 0 {
		g.SetLimit(s.maxParallel)
	}
	for ci, chainID := range s.chains {
		ci, chainID := ci, chainID
		for ai, adapter := range s.adapters {
			ai, adapter := ai, adapter
			g.Go(func() error {
				results[ci][ai] = adapter.LiveAPY(ctx, chainID, asset)
				return nil
			})
		}
	}
	_ = g.Wait()

	var all []model.YieldOpportunity
	for ci, chainID := range s.chains {
		var found []model.YieldOpportunity
		for ai, data := range results[ci] {
			if data == nil {
				continue
			}
			found = append(found, Normalize(*data, s.adapters[ai].Info(), req.FromChainID))
		}
		if len(found) == 0 && s.mock != nil {
			found = s.mock.synthesize(chainID, asset, req.FromChainID)
			s.logger.Debug("no observations, synthesized mock opportunities",
				zap.Uint64("chain_id", chainID),
				zap.Int("count", len(found)),
			)
		}
		all = append(all, found...)
	}

	ranked := s.ranker.Rank(all, req.RiskProfile)
	s.logger.Info("scan complete",
		zap.String("asset", asset),
		zap.Int("chains", len(s.chains)),
		zap.Int("observed", len(all)),
		zap.Int("ranked", len(ranked)),
	)
	return ranked
}

// Normalize turns an adapter read into an unranked opportunity.
func Normalize(data model.LiveData, info protocol.Info, fromChainID uint64) model.YieldOpportunity {
	chain := model.LookupChain(data.ChainID)
	fees := model.Fees{Deposit: info.DepositFee, Withdrawal: info.WithdrawalFee}
	timeToOptimal := sameChainMinutes
	if fromChainID != 0 && fromChainID != data.ChainID {
		fees.CrossChain = CrossChainFee
		timeToOptimal = crossChainMinutes
	}
	return model.YieldOpportunity{
		Protocol:             data.Protocol,
		ProtocolName:         info.DisplayName,
		ChainID:              data.ChainID,
		ChainName:            chain.Name,
		Asset:                data.Asset,
		TokenAddress:         data.TokenAddress,
		Market:               data.Market,
		APY:                  data.APY,
		TVL:                  data.TVL,
		Liquidity:            data.Liquidity,
		Risk:                 info.Risk,
		Fees:                 fees,
		Confidence:           data.Confidence,
		HistoricalVolatility: info.Volatility,
		TimeToOptimal:        timeToOptimal,
		Source:               data.Source,
	}
}
