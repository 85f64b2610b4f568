package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RiskProfile is the user-selected appetite for risk.
type RiskProfile string

const (
	ProfileConservative RiskProfile = "conservative"
	ProfileBalanced     RiskProfile = "balanced"
	ProfileAggressive   RiskProfile = "aggressive"
)

// ParseRiskProfile validates a profile name.
func ParseRiskProfile(input string) (RiskProfile, error) {
	switch RiskProfile(strings.ToLower(strings.TrimSpace(input))) {
	case ProfileConservative:
		return ProfileConservative, nil
	case ProfileBalanced, "":
		return ProfileBalanced, nil
	case ProfileAggressive:
		return ProfileAggressive, nil
	default:
		return "", fmt.Errorf("unknown risk profile: %s", input)
	}
}

// MaxPositions is the number of allocations a strategy may hold.
func (p RiskProfile) MaxPositions() int {
	switch p {
	case ProfileConservative:
		return 3
	case ProfileAggressive:
		return 7
	default:
		return 5
	}
}

// TopAllocation is the percentage given to the first-ranked opportunity.
func (p RiskProfile) TopAllocation() float64 {
	switch p {
	case ProfileConservative:
		return 60
	case ProfileAggressive:
		return 30
	default:
		return 40
	}
}

// Allows reports whether a risk tier may be held under this profile.
func (p RiskProfile) Allows(tier RiskTier) bool {
	switch p {
	case ProfileConservative:
		return tier == RiskLow
	case ProfileAggressive:
		return tier == RiskLow || tier == RiskMedium || tier == RiskHigh
	default:
		return tier == RiskLow || tier == RiskMedium
	}
}

// Allocation assigns a share of the deposit to one opportunity.
type Allocation struct {
	Opportunity YieldOpportunity `json:"opportunity"`
	Percentage  float64          `json:"percentage"`
	Amount      decimal.Decimal  `json:"amount"`
	Reason      string           `json:"reason"`
}

// SmartStrategy is a derived, unversioned recommendation.
type SmartStrategy struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Asset         string          `json:"asset"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	RiskProfile   RiskProfile     `json:"risk_profile"`
	TargetAPY     float64         `json:"target_apy"`
	RiskScore     float64         `json:"risk_score"`
	Allocations   []Allocation    `json:"allocations"`
	EstimatedGas  GasEstimate     `json:"estimated_gas"`
	EstimatedTime int             `json:"estimated_time_minutes"`
	Reasoning     []string        `json:"reasoning"`
	Confidence    float64         `json:"confidence"`
	CreatedAt     time.Time       `json:"created_at"`
}

// GasEstimate is the expected deposit cost across all allocations.
type GasEstimate struct {
	Units     uint64  `json:"units"`
	GweiPrice float64 `json:"gwei_price,omitempty"`
	Native    float64 `json:"native,omitempty"`
}
