package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DepositTx is an unsigned protocol call.
type DepositTx struct {
	ChainID uint64 `json:"chain_id"`
	To      string `json:"to"`
	Data    string `json:"data"`
	Value   string `json:"value"`

	// Spender and Token describe the ERC-20 approval the call depends on.
	Spender     string `json:"spender"`
	Token       string `json:"token"`
	AmountUnits string `json:"amount_units"`
}

// ExecutionState is a step of the swap-and-deposit state machine.
type ExecutionState string

const (
	StateIdle         ExecutionState = "idle"
	StateFindingRoute ExecutionState = "finding-route"
	StateSwapping     ExecutionState = "swapping"
	StateDepositing   ExecutionState = "depositing"
	StateSuccess      ExecutionState = "success"
	StateFailed       ExecutionState = "failed"
)

// ExecutionRecord is the journaled view of one execution.
type ExecutionRecord struct {
	ID            string          `json:"id"`
	Mode          string          `json:"mode"`
	State         ExecutionState  `json:"state"`
	FailedAt      ExecutionState  `json:"failed_at,omitempty"`
	FromChainID   uint64          `json:"from_chain_id"`
	ToChainID     uint64          `json:"to_chain_id"`
	Protocol      string          `json:"protocol"`
	Asset         string          `json:"asset"`
	Amount        decimal.Decimal `json:"amount"`
	UserAddress   string          `json:"user_address"`
	QuoteID       string          `json:"quote_id,omitempty"`
	SwapTxHash    string          `json:"swap_tx_hash,omitempty"`
	DepositTxHash string          `json:"deposit_tx_hash,omitempty"`
	Deposit       *DepositTx      `json:"deposit,omitempty"`
	Error         string          `json:"error,omitempty"`
	StartedAt     time.Time       `json:"started_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
