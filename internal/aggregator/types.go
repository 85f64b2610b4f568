package aggregator

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

// QuoteRequest asks for a cross-chain Fusion+ route.
type QuoteRequest struct {
	SrcChainID uint64
	DstChainID uint64
	SrcToken   common.Address
	DstToken   common.Address
	// Amount is in source token base units.
	Amount *big.Int
	Wallet common.Address
}

// Quote is the subset of a Fusion+ quote the orchestrator needs.
type Quote struct {
	QuoteID           string            `json:"quoteId"`
	SrcTokenAmount    string            `json:"srcTokenAmount"`
	DstTokenAmount    string            `json:"dstTokenAmount"`
	RecommendedPreset string            `json:"recommendedPreset"`
	Presets           map[string]Preset `json:"presets"`
}

// Preset is one auction speed offered by the quoter.
type Preset struct {
	AuctionDuration int    `json:"auctionDuration"`
	AuctionStart    string `json:"auctionStartAmount"`
	AuctionEnd      string `json:"auctionEndAmount"`
}

// GasTier is an EIP-1559 fee suggestion in wei.
type GasTier struct {
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas"`
	MaxFeePerGas         string `json:"maxFeePerGas"`
}

// GasPrice is the gas price oracle response.
type GasPrice struct {
	BaseFee string  `json:"baseFee"`
	Low     GasTier `json:"low"`
	Medium  GasTier `json:"medium"`
	High    GasTier `json:"high"`
	Instant GasTier `json:"instant"`
}

// MediumGwei returns the medium max fee in gwei, or 0 when it cannot be parsed.
func (g GasPrice) MediumGwei() float64 {
	wei, err := strconv.ParseFloat(g.Medium.MaxFeePerGas, 64)
	if err != nil {
		return 0
	}
	return wei / 1e9
}
