package model

import (
	"fmt"
	"strings"
	"time"
)

// RiskTier is the coarse risk bucket of a yield position.
type RiskTier string

const (
	RiskLow    RiskTier = "low"
	RiskMedium RiskTier = "medium"
	RiskHigh   RiskTier = "high"
)

// Weight maps a tier onto the 1..3 scale used for strategy risk scores.
func (r RiskTier) Weight() float64 {
	switch r {
	case RiskLow:
		return 1
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 3
	}
}

// Source tells where an observation came from.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceMock     Source = "mock"
)

// ConfidenceCeiling is the highest confidence an observation from this source may carry.
func (s Source) ConfidenceCeiling() float64 {
	switch s {
	case SourceLive:
		return 0.95
	case SourceFallback:
		return 0.8
	default:
		return 0.6
	}
}

// Fees are percentages charged around a position.
type Fees struct {
	Deposit    float64 `json:"deposit"`
	Withdrawal float64 `json:"withdrawal"`
	CrossChain float64 `json:"cross_chain"`
}

// Total returns the sum of all fee components.
func (f Fees) Total() float64 {
	return f.Deposit + f.Withdrawal + f.CrossChain
}

// LiveData is a normalized protocol read for one (chain, asset) market.
type LiveData struct {
	Protocol     string    `json:"protocol"`
	ChainID      uint64    `json:"chain_id"`
	Asset        string    `json:"asset"`
	TokenAddress string    `json:"token_address"`
	Market       string    `json:"market"`
	APY          float64   `json:"apy"`
	TVL          float64   `json:"tvl"`
	Liquidity    float64   `json:"liquidity"`
	Utilization  float64   `json:"utilization,omitempty"`
	Confidence   float64   `json:"confidence"`
	Source       Source    `json:"source"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// YieldOpportunity is a point-in-time observation of a yield-bearing position.
type YieldOpportunity struct {
	Protocol             string   `json:"protocol"`
	ProtocolName         string   `json:"protocol_name"`
	ChainID              uint64   `json:"chain_id"`
	ChainName            string   `json:"chain_name"`
	Asset                string   `json:"asset"`
	TokenAddress         string   `json:"token_address"`
	Market               string   `json:"market"`
	APY                  float64  `json:"apy"`
	TVL                  float64  `json:"tvl"`
	Liquidity            float64  `json:"liquidity"`
	Risk                 RiskTier `json:"risk"`
	Fees                 Fees     `json:"fees"`
	Confidence           float64  `json:"confidence"`
	PredictedAPYChange   float64  `json:"predicted_apy_change"`
	HistoricalVolatility float64  `json:"historical_volatility"`
	TimeToOptimal        int      `json:"time_to_optimal_minutes"`
	Source               Source   `json:"source"`
	Score                float64  `json:"score"`
}

// Key identifies the market an opportunity was observed on.
func (o YieldOpportunity) Key() string {
	return fmt.Sprintf("%s:%d:%s", o.Protocol, o.ChainID, strings.ToUpper(o.Asset))
}

// Degraded reports whether the observation is not backed by a live read.
func (o YieldOpportunity) Degraded() bool {
	return o.Source != SourceLive
}
