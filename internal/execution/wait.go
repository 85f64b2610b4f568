package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// PollConfig controls receipt polling.
type PollConfig struct {
	Initial time.Duration
	Max     time.Duration
	Timeout time.Duration
}

// DefaultPollConfig polls from 1s up to 16s for at most 5 minutes.
var DefaultPollConfig = PollConfig{Initial: time.Second, Max: 16 * time.Second, Timeout: 5 * time.Minute}

type receiptReader interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// waitMined polls for a receipt with doubling backoff. A reverted receipt is an error.
func waitMined(ctx context.Context, backend receiptReader, hash common.Hash, cfg PollConfig) (*types.Receipt, error) {
	if cfg.Initial <= 0 {
		cfg.Initial = 100 * time.Millisecond
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	delay := cfg.Initial
	var lastErr error
	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return receipt, fmt.Errorf("transaction %s reverted in block %s", hash.Hex(), receipt.BlockNumber)
			}
			return receipt, nil
		}
		// Pending transactions report NotFound; anything else is retried but remembered.
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			lastErr = err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if lastErr != nil {
				return nil, fmt.Errorf("waiting for %s: %w (last error: %v)", hash.Hex(), ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("waiting for %s: %w", hash.Hex(), ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > cfg.Max {
			delay = cfg.Max
		}
	}
}
