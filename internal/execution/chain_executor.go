package execution

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"yieldScope/internal/aggregator"
	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

// ModeLive labels executions that submit signed transactions.
const ModeLive = "live"

// ErrCrossChainSwapUnsupported is returned by executors that cannot settle Fusion+ orders.
var ErrCrossChainSwapUnsupported = errors.New("cross-chain swap settlement is not supported in live mode")

// Backend is the chain access the live executor needs.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// BackendSource resolves a Backend per chain.
type BackendSource func(ctx context.Context, chainID uint64) (Backend, error)

// ChainExecutor signs and submits deposits with a local key and waits for receipts.
type ChainExecutor struct {
	backends BackendSource
	key      *ecdsa.PrivateKey
	from     common.Address
	poll     PollConfig
	logger   *zap.Logger
}

// NewChainExecutor parses a hex private key and builds a live executor.
func NewChainExecutor(backends BackendSource, hexKey string, poll PollConfig, logger *zap.Logger) (*ChainExecutor, error) {
	if backends == nil {
		return nil, fmt.Errorf("backend source is nil")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainExecutor{
		backends: backends,
		key:      key,
		from:     crypto.PubkeyToAddress(key.PublicKey),
		poll:     poll,
		logger:   logger,
	}, nil
}

func (e *ChainExecutor) Mode() string { return ModeLive }

// Address returns the signer address.
func (e *ChainExecutor) Address() common.Address { return e.from }

// ExecuteSwap fails loudly: Fusion+ orders need resolver settlement this executor cannot observe.
func (e *ChainExecutor) ExecuteSwap(ctx context.Context, quote *aggregator.Quote, req Request) (string, error) {
	return "", ErrCrossChainSwapUnsupported
}

// ExecuteDeposit approves the spender if needed, then submits the deposit and waits for it to be mined.
func (e *ChainExecutor) ExecuteDeposit(ctx context.Context, tx *model.DepositTx, user common.Address) (string, error) {
	if tx == nil {
		return "", fmt.Errorf("deposit transaction is nil")
	}
	if user != e.from {
		return "", fmt.Errorf("signer %s cannot deposit on behalf of %s", e.from.Hex(), user.Hex())
	}
	backend, err := e.backends(ctx, tx.ChainID)
	if err != nil {
		return "", fmt.Errorf("chain %d: %w", tx.ChainID, err)
	}

	amount, ok := new(big.Int).SetString(tx.AmountUnits, 10)
	if !ok {
		return "", fmt.Errorf("invalid deposit amount %q", tx.AmountUnits)
	}
	token := common.HexToAddress(tx.Token)
	spender := common.HexToAddress(tx.Spender)
	if err := e.ensureAllowance(ctx, backend, tx.ChainID, token, spender, amount); err != nil {
		return "", err
	}

	hash, err := e.send(ctx, backend, tx.ChainID, common.HexToAddress(tx.To), common.FromHex(tx.Data))
	if err != nil {
		return "", fmt.Errorf("send deposit: %w", err)
	}
	if _, err := waitMined(ctx, backend, hash, e.poll); err != nil {
		return hash.Hex(), err
	}
	e.logger.Info("deposit mined", zap.Uint64("chain_id", tx.ChainID), zap.String("tx", hash.Hex()))
	return hash.Hex(), nil
}

func (e *ChainExecutor) ensureAllowance(ctx context.Context, backend Backend, chainID uint64, token, spender common.Address, amount *big.Int) error {
	erc20, err := protocol.ERC20ABI()
	if err != nil {
		return fmt.Errorf("parse erc20 abi: %w", err)
	}
	data, err := erc20.Pack("allowance", e.from, spender)
	if err != nil {
		return fmt.Errorf("pack allowance: %w", err)
	}
	resp, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return fmt.Errorf("call allowance: %w", err)
	}
	values, err := erc20.Unpack("allowance", resp)
	if err != nil || len(values) == 0 {
		return fmt.Errorf("unpack allowance: %v", err)
	}
	current, ok := values[0].(*big.Int)
	if !ok {
		return fmt.Errorf("unexpected allowance type %T", values[0])
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}

	approve, err := erc20.Pack("approve", spender, amount)
	if err != nil {
		return fmt.Errorf("pack approve: %w", err)
	}
	hash, err := e.send(ctx, backend, chainID, token, approve)
	if err != nil {
		return fmt.Errorf("send approve: %w", err)
	}
	if _, err := waitMined(ctx, backend, hash, e.poll); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	e.logger.Info("approval mined",
		zap.Uint64("chain_id", chainID),
		zap.String("spender", spender.Hex()),
		zap.String("tx", hash.Hex()),
	)
	return nil
}

// send signs an EIP-1559 transaction with a 20% gas margin and a fee cap of twice the base fee plus tip.
func (e *ChainExecutor) send(ctx context.Context, backend Backend, chainID uint64, to common.Address, data []byte) (common.Hash, error) {
	nonce, err := backend.PendingNonceAt(ctx, e.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	tip, err := backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas tip: %w", err)
	}
	head, err := backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{From: e.from, To: &to, Data: data})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}
	gas = gas * 12 / 10

	chain := new(big.Int).SetUint64(chainID)
	unsigned := types.NewTx(&types.DynamicFeeTx{
		ChainID:   chain,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chain), e.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	e.logger.Debug("transaction sent",
		zap.Uint64("chain_id", chainID),
		zap.Uint64("nonce", nonce),
		zap.String("to", to.Hex()),
		zap.String("tx", signed.Hash().Hex()),
	)
	return signed.Hash(), nil
}
