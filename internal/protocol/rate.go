package protocol

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// SecondsPerYear is the compounding horizon for APY conversion.
const SecondsPerYear = 31_536_000

var (
	ray  = new(big.Float).SetFloat64(1e27)
	wad  = new(big.Float).SetFloat64(1e18)
	zero = big.NewInt(0)
)

// CompoundAPY converts a per-second rate into a compounded annual percentage.
func CompoundAPY(ratePerSecond float64) float64 {
	return (math.Pow(1+ratePerSecond, SecondsPerYear) - 1) * 100
}

// RayRateToAPY converts an annual ray-scaled rate (Aave liquidity rate) into APY percent.
func RayRateToAPY(rate *big.Int) float64 {
	if rate == nil {
		return 0
	}
	annual, _ := new(big.Float).Quo(new(big.Float).SetInt(rate), ray).Float64()
	return CompoundAPY(annual / SecondsPerYear)
}

// WadRateToAPY converts a per-second 1e18-scaled rate (Comet supply rate) into APY percent.
func WadRateToAPY(rate *big.Int) float64 {
	if rate == nil {
		return 0
	}
	perSecond, _ := new(big.Float).Quo(new(big.Float).SetInt(rate), wad).Float64()
	return CompoundAPY(perSecond)
}

// GrowthToAPY annualizes share price growth observed over elapsed seconds.
func GrowthToAPY(now, then *big.Int, elapsed uint64) (float64, error) {
	if then == nil || then.Cmp(zero) <= 0 {
		return 0, fmt.Errorf("zero historical share price")
	}
	if now == nil || elapsed == 0 {
		return 0, fmt.Errorf("no elapsed time")
	}
	ratio, _ := new(big.Float).Quo(new(big.Float).SetInt(now), new(big.Float).SetInt(then)).Float64()
	if ratio <= 0 || isBad(ratio) {
		return 0, fmt.Errorf("invalid share price ratio %v", ratio)
	}
	perSecond := math.Pow(ratio, 1/float64(elapsed)) - 1
	return CompoundAPY(perSecond), nil
}

// ToUnits converts a human amount into token base units, truncating extra precision.
func ToUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	units := amount.Shift(int32(decimals)).Truncate(0).BigInt()
	if units.Sign() <= 0 {
		return nil, fmt.Errorf("amount %s is below one base unit", amount.String())
	}
	return units, nil
}

// FromUnits converts token base units into a human amount.
func FromUnits(units *big.Int, decimals uint8) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -int32(decimals))
}

func unitsToFloat(units *big.Int, decimals uint8) float64 {
	f, _ := FromUnits(units, decimals).Float64()
	return f
}

func isBad(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
