package execution

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"yieldScope/internal/aggregator"
	"yieldScope/internal/model"
)

// ModeSimulated labels executions whose hashes are fabricated.
const ModeSimulated = "simulated"

// DefaultSimulatedDelay is how long a simulated swap takes.
const DefaultSimulatedDelay = 3 * time.Second

// SimulatedExecutor fabricates labeled transaction hashes without touching any chain.
type SimulatedExecutor struct {
	delay time.Duration
}

// NewSimulatedExecutor builds a simulator; a negative delay disables waiting.
func NewSimulatedExecutor(delay time.Duration) *SimulatedExecutor {
	if delay == 0 {
		delay = DefaultSimulatedDelay
	}
	if delay < 0 {
		delay = 0
	}
	return &SimulatedExecutor{delay: delay}
}

func (s *SimulatedExecutor) Mode() string { return ModeSimulated }

func (s *SimulatedExecutor) ExecuteSwap(ctx context.Context, quote *aggregator.Quote, req Request) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	return "0x1inch_fusion_" + randomHex(), nil
}

func (s *SimulatedExecutor) ExecuteDeposit(ctx context.Context, tx *model.DepositTx, user common.Address) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "0xsimulated_deposit_" + randomHex(), nil
}

func (s *SimulatedExecutor) wait(ctx context.Context) error {
	if s.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func randomHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
