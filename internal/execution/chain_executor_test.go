package execution

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	"yieldScope/internal/protocol"
)

const testKey = "b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291"

var fastPoll = PollConfig{Initial: time.Millisecond, Max: 2 * time.Millisecond, Timeout: time.Second}

type fakeBackend struct {
	mu        sync.Mutex
	allowance *big.Int
	nonce     uint64
	sent      []*types.Transaction
	polled    map[common.Hash]int
	revert    bool
}

func newFakeBackend(allowance int64) *fakeBackend {
	return &fakeBackend{allowance: big.NewInt(allowance), polled: make(map[common.Hash]int)}
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	erc20, err := protocol.ERC20ABI()
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(msg.Data[:4], erc20.Methods["allowance"].ID) {
		return nil, errors.New("unexpected call")
	}
	return erc20.Methods["allowance"].Outputs.Pack(b.allowance)
}

func (b *fakeBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: big.NewInt(10_000_000_000)}, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	b.nonce++
	return nil
}

// TransactionReceipt reports each transaction as pending once before mining it.
func (b *fakeBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.polled[hash]++
	if b.polled[hash] == 1 {
		return nil, ethereum.NotFound
	}
	status := types.ReceiptStatusSuccessful
	if b.revert {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(101)}, nil
}

func newTestExecutor(t *testing.T, backend *fakeBackend) *ChainExecutor {
	t.Helper()
	source := func(ctx context.Context, chainID uint64) (Backend, error) { return backend, nil }
	exec, err := NewChainExecutor(source, "0x"+testKey, fastPoll, nil)
	if err != nil {
		t.Fatalf("new executor: %v", err)
	}
	return exec
}

func TestChainExecutorApprovesThenDeposits(t *testing.T) {
	backend := newFakeBackend(0)
	exec := newTestExecutor(t, backend)
	tx, err := protocol.NewAave(nil, nil).BuildDepositTransaction(137, "USDC", decimal.RequireFromString("1.5"), exec.Address())
	if err != nil {
		t.Fatalf("build deposit: %v", err)
	}

	hash, err := exec.ExecuteDeposit(context.Background(), tx, exec.Address())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.sent) != 2 {
		t.Fatalf("expected approve and deposit, got %d transactions", len(backend.sent))
	}

	approve, deposit := backend.sent[0], backend.sent[1]
	erc20, _ := protocol.ERC20ABI()
	if *approve.To() != common.HexToAddress(tx.Token) || !bytes.Equal(approve.Data()[:4], erc20.Methods["approve"].ID) {
		t.Fatalf("first transaction must approve the token")
	}
	if *deposit.To() != common.HexToAddress(tx.To) || deposit.Hash().Hex() != hash {
		t.Fatalf("second transaction must be the deposit")
	}
	if approve.Nonce() != 0 || deposit.Nonce() != 1 {
		t.Fatalf("nonce mismatch: %d %d", approve.Nonce(), deposit.Nonce())
	}

	signer := types.LatestSignerForChainID(big.NewInt(137))
	for _, sent := range backend.sent {
		from, err := types.Sender(signer, sent)
		if err != nil || from != exec.Address() {
			t.Fatalf("sender mismatch: %s %v", from.Hex(), err)
		}
		if sent.Gas() != 120_000 {
			t.Fatalf("gas margin mismatch: %d", sent.Gas())
		}
		if sent.GasFeeCap().Cmp(big.NewInt(21_000_000_000)) != 0 {
			t.Fatalf("fee cap mismatch: %s", sent.GasFeeCap())
		}
		if sent.Type() != types.DynamicFeeTxType {
			t.Fatalf("expected dynamic fee tx, got type %d", sent.Type())
		}
	}
}

func TestChainExecutorSkipsApprovalWithAllowance(t *testing.T) {
	backend := newFakeBackend(10_000_000)
	exec := newTestExecutor(t, backend)
	tx, err := protocol.NewCompound(nil).BuildDepositTransaction(8453, "USDC", decimal.NewFromInt(2), exec.Address())
	if err != nil {
		t.Fatalf("build deposit: %v", err)
	}

	if _, err := exec.ExecuteDeposit(context.Background(), tx, exec.Address()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected deposit only, got %d transactions", len(backend.sent))
	}
}

func TestChainExecutorRevertedDeposit(t *testing.T) {
	backend := newFakeBackend(10_000_000)
	backend.revert = true
	exec := newTestExecutor(t, backend)
	tx, _ := protocol.NewCompound(nil).BuildDepositTransaction(8453, "USDC", decimal.NewFromInt(2), exec.Address())

	hash, err := exec.ExecuteDeposit(context.Background(), tx, exec.Address())
	if err == nil {
		t.Fatalf("expected revert error")
	}
	if hash == "" {
		t.Fatalf("reverted deposit must still report its hash")
	}
}

func TestChainExecutorRejectsForeignUser(t *testing.T) {
	backend := newFakeBackend(0)
	exec := newTestExecutor(t, backend)
	tx, _ := protocol.NewAave(nil, nil).BuildDepositTransaction(1, "USDC", decimal.NewFromInt(1), user)

	if _, err := exec.ExecuteDeposit(context.Background(), tx, user); err == nil {
		t.Fatalf("expected signer mismatch error")
	}
	if len(backend.sent) != 0 {
		t.Fatalf("nothing may be sent for a foreign user")
	}
}

func TestChainExecutorCrossChainSwapUnsupported(t *testing.T) {
	exec := newTestExecutor(t, newFakeBackend(0))
	if _, err := exec.ExecuteSwap(context.Background(), nil, Request{}); !errors.Is(err, ErrCrossChainSwapUnsupported) {
		t.Fatalf("expected ErrCrossChainSwapUnsupported, got %v", err)
	}
	if exec.Mode() != ModeLive {
		t.Fatalf("mode mismatch: %s", exec.Mode())
	}
}

func TestWaitMinedTimesOut(t *testing.T) {
	pending := receiptFunc(func(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	})
	cfg := PollConfig{Initial: time.Millisecond, Max: time.Millisecond, Timeout: 20 * time.Millisecond}
	if _, err := waitMined(context.Background(), pending, common.Hash{}, cfg); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

type receiptFunc func(ctx context.Context, hash common.Hash) (*types.Receipt, error)

func (f receiptFunc) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return f(ctx, hash)
}
