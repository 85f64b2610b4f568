package protocol

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"yieldScope/internal/model"
)

// Protocol identifiers.
const (
	AaveV3     = "aave-v3"
	CompoundV3 = "compound-v3"
	YearnV3    = "yearn-v3"
)

// Info is the static profile of a protocol.
type Info struct {
	ID          string
	DisplayName string
	Risk        model.RiskTier
	// Volatility is the historical APY volatility used by the confidence model.
	Volatility    float64
	DepositFee    float64
	WithdrawalFee float64
	DepositGas    uint64
	FallbackAPY   float64
	FallbackTVL   float64
}

// ApprovalGas is the gas charged for an ERC-20 approve ahead of a deposit.
const ApprovalGas uint64 = 50_000

var (
	aaveInfo = Info{
		ID:          AaveV3,
		DisplayName: "Aave V3",
		Risk:        model.RiskLow,
		Volatility:  0.05,
		DepositGas:  250_000,
		FallbackAPY: 3.8,
		FallbackTVL: 500_000_000,
	}
	compoundInfo = Info{
		ID:          CompoundV3,
		DisplayName: "Compound V3",
		Risk:        model.RiskLow,
		Volatility:  0.08,
		DepositGas:  180_000,
		FallbackAPY: 4.2,
		FallbackTVL: 300_000_000,
	}
	yearnInfo = Info{
		ID:            YearnV3,
		DisplayName:   "Yearn V3",
		Risk:          model.RiskMedium,
		Volatility:    0.25,
		WithdrawalFee: 0.1,
		DepositGas:    220_000,
		FallbackAPY:   8.5,
		FallbackTVL:   50_000_000,
	}
)

// InfoFor returns the profile of a known protocol.
func InfoFor(id string) (Info, bool) {
	switch id {
	case AaveV3:
		return aaveInfo, true
	case CompoundV3:
		return compoundInfo, true
	case YearnV3:
		return yearnInfo, true
	default:
		return Info{}, false
	}
}

// Market is one deployed (chain, asset) position of a protocol.
type Market struct {
	ChainID uint64
	Asset   string
	Token   common.Address
	// Contract is the pool, comet or vault that receives deposits.
	Contract common.Address
	Decimals uint8
	Stable   bool
}

func indexMarkets(markets []Market) map[uint64]map[string]Market {
	out := make(map[uint64]map[string]Market)
	for _, m := range markets {
		m.Asset = strings.ToUpper(m.Asset)
		if out[m.ChainID] == nil {
			out[m.ChainID] = make(map[string]Market)
		}
		out[m.ChainID][m.Asset] = m
	}
	return out
}

type token struct {
	address  common.Address
	decimals uint8
	stable   bool
}

var tokens = map[uint64]map[string]token{
	1: {
		"USDC": {common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), 6, true},
		"USDT": {common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), 6, true},
		"DAI":  {common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"), 18, true},
		"WETH": {common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), 18, false},
	},
	137: {
		"USDC":   {common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"), 6, true},
		"USDC.E": {common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), 6, true},
		"USDT":   {common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"), 6, true},
		"WETH":   {common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"), 18, false},
	},
	42161: {
		"USDC": {common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"), 6, true},
		"USDT": {common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"), 6, true},
		"WETH": {common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), 18, false},
	},
	10: {
		"USDC": {common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"), 6, true},
		"USDT": {common.HexToAddress("0x94b008aA00579c1307B0EF2c499aD98a8ce58e58"), 6, true},
		"WETH": {common.HexToAddress("0x4200000000000000000000000000000000000006"), 18, false},
	},
	8453: {
		"USDC": {common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"), 6, true},
		"WETH": {common.HexToAddress("0x4200000000000000000000000000000000000006"), 18, false},
	},
}

// TokenAddress returns the canonical token address for an asset symbol on a chain.
func TokenAddress(chainID uint64, asset string) (common.Address, bool) {
	t, ok := tokens[chainID][strings.ToUpper(asset)]
	return t.address, ok
}

// TokenDecimals returns the decimals of a known asset on a chain.
func TokenDecimals(chainID uint64, asset string) (uint8, bool) {
	t, ok := tokens[chainID][strings.ToUpper(asset)]
	return t.decimals, ok
}

func market(chainID uint64, asset, contract string) Market {
	t := tokens[chainID][asset]
	return Market{
		ChainID:  chainID,
		Asset:    asset,
		Token:    t.address,
		Contract: common.HexToAddress(contract),
		Decimals: t.decimals,
		Stable:   t.stable,
	}
}

// marketAs registers a market whose underlying differs from the canonical symbol (bridged USDC).
func marketAs(chainID uint64, asset, underlying, contract string) Market {
	m := market(chainID, underlying, contract)
	m.Asset = asset
	return m
}

var aavePools = map[uint64]string{
	1:     "0x87870Bca3F3fD6335C3F4ce8392D69350B4fA4E2",
	137:   "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	42161: "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	10:    "0x794a61358D6845594F94dc1DB02A252b5b4814aD",
	8453:  "0xA238Dd80C259a72e81d7e4664a9801593F98d1c5",
}

// DefaultAaveMarkets lists every token on every chain with an Aave V3 pool.
func DefaultAaveMarkets() []Market {
	var out []Market
	for chainID, pool := range aavePools {
		for asset := range tokens[chainID] {
			if asset == "USDC.E" {
				continue
			}
			out = append(out, market(chainID, asset, pool))
		}
	}
	return out
}

// DefaultCompoundMarkets lists the Comet deployments.
func DefaultCompoundMarkets() []Market {
	return []Market{
		market(1, "USDC", "0xc3d688B66703497DAA19211EEdff47f25384cdc3"),
		market(1, "WETH", "0xA17581A9E3356d9A858b789D68B4d866e593aE94"),
		marketAs(137, "USDC", "USDC.E", "0xF25212E676D1F7F89Cd72fFEe66158f541246445"),
		market(42161, "USDC", "0x9c4ec768c28520B50860ea7a15bd7213a9fF58bf"),
		market(10, "USDC", "0x2e44e174f7D53F0212823acC11C01A11d58c5bCB"),
		market(8453, "USDC", "0xb125E6687d4313864e53df431d5425969c15Eb2F"),
	}
}

// DefaultYearnMarkets lists the Yearn V3 vaults.
func DefaultYearnMarkets() []Market {
	return []Market{
		market(1, "USDC", "0xBe53A109B494E5c9f97b9Cd39Fe969BE68BF6204"),
		marketAs(137, "USDC", "USDC.E", "0xA013Fbd4b711f9ded6fB09C1c0d358E2FbC2EAA0"),
	}
}
