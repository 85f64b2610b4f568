package protocol

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// aaveReserveFields is the number of words in the ReserveData struct.
const aaveReserveFields = 15

// getReserveData returns a static struct; its encoding equals the flat output list below.
const aavePoolABIJSON = `[
  {
    "inputs": [{"internalType": "address", "name": "asset", "type": "address"}],
    "name": "getReserveData",
    "outputs": [
      {"internalType": "uint256", "name": "configuration", "type": "uint256"},
      {"internalType": "uint128", "name": "liquidityIndex", "type": "uint128"},
      {"internalType": "uint128", "name": "currentLiquidityRate", "type": "uint128"},
      {"internalType": "uint128", "name": "variableBorrowIndex", "type": "uint128"},
      {"internalType": "uint128", "name": "currentVariableBorrowRate", "type": "uint128"},
      {"internalType": "uint128", "name": "currentStableBorrowRate", "type": "uint128"},
      {"internalType": "uint40", "name": "lastUpdateTimestamp", "type": "uint40"},
      {"internalType": "uint16", "name": "id", "type": "uint16"},
      {"internalType": "address", "name": "aTokenAddress", "type": "address"},
      {"internalType": "address", "name": "stableDebtTokenAddress", "type": "address"},
      {"internalType": "address", "name": "variableDebtTokenAddress", "type": "address"},
      {"internalType": "address", "name": "interestRateStrategyAddress", "type": "address"},
      {"internalType": "uint128", "name": "accruedToTreasury", "type": "uint128"},
      {"internalType": "uint128", "name": "unbacked", "type": "uint128"},
      {"internalType": "uint128", "name": "isolationModeTotalDebt", "type": "uint128"}
    ],
    "stateMutability": "view",
    "type": "function"
  },
  {
    "inputs": [
      {"internalType": "address", "name": "asset", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"},
      {"internalType": "address", "name": "onBehalfOf", "type": "address"},
      {"internalType": "uint16", "name": "referralCode", "type": "uint16"}
    ],
    "name": "supply",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const cometABIJSON = `[
  {"inputs": [], "name": "getUtilization", "outputs": [{"internalType": "uint64", "name": "", "type": "uint64"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "uint64", "name": "utilization", "type": "uint64"}], "name": "getSupplyRate", "outputs": [{"internalType": "uint64", "name": "", "type": "uint64"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalBorrow", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [
      {"internalType": "address", "name": "asset", "type": "address"},
      {"internalType": "uint256", "name": "amount", "type": "uint256"}
    ],
    "name": "supply",
    "outputs": [],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const yearnVaultABIJSON = `[
  {"inputs": [], "name": "pricePerShare", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "totalAssets", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {
    "inputs": [
      {"internalType": "uint256", "name": "assets", "type": "uint256"},
      {"internalType": "address", "name": "receiver", "type": "address"}
    ],
    "name": "deposit",
    "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
    "stateMutability": "nonpayable",
    "type": "function"
  }
]`

const erc20ABIJSON = `[
  {"inputs": [], "name": "totalSupply", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "owner", "type": "address"}, {"internalType": "address", "name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "spender", "type": "address"}, {"internalType": "uint256", "name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"internalType": "bool", "name": "", "type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	aavePoolABI   = &lazyABI{json: aavePoolABIJSON}
	cometABI      = &lazyABI{json: cometABIJSON}
	yearnVaultABI = &lazyABI{json: yearnVaultABIJSON}
	erc20ABI      = &lazyABI{json: erc20ABIJSON}
)

// AavePoolABI returns the parsed Aave V3 pool ABI subset.
func AavePoolABI() (abi.ABI, error) { return aavePoolABI.get() }

// CometABI returns the parsed Compound V3 Comet ABI subset.
func CometABI() (abi.ABI, error) { return cometABI.get() }

// YearnVaultABI returns the parsed Yearn V3 vault ABI subset.
func YearnVaultABI() (abi.ABI, error) { return yearnVaultABI.get() }

// ERC20ABI returns the parsed ERC-20 ABI subset.
func ERC20ABI() (abi.ABI, error) { return erc20ABI.get() }
