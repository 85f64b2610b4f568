package execution

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"yieldScope/internal/aggregator"
	"yieldScope/internal/model"
	"yieldScope/internal/protocol"
)

var (
	// ErrExecutionInProgress is returned when Execute is called while another execution runs.
	ErrExecutionInProgress = errors.New("execution already in progress")
	// ErrProtocolNotIntegrated is returned when no adapter can deposit on the destination chain.
	ErrProtocolNotIntegrated = errors.New("protocol not integrated")
)

// ExecutionError reports the state an execution failed in and any swap already submitted.
type ExecutionError struct {
	State      model.ExecutionState
	SwapTxHash string
	Err        error
}

func (e *ExecutionError) Error() string {
	if e.SwapTxHash != "" {
		return fmt.Sprintf("execution failed while %s (swap %s already submitted): %v", e.State, e.SwapTxHash, e.Err)
	}
	return fmt.Sprintf("execution failed while %s: %v", e.State, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Quoter quotes cross-chain routes.
type Quoter interface {
	CrossChainQuote(ctx context.Context, req aggregator.QuoteRequest) (*aggregator.Quote, error)
}

// Executor submits swaps and deposits and returns their transaction hashes.
type Executor interface {
	Mode() string
	ExecuteSwap(ctx context.Context, quote *aggregator.Quote, req Request) (string, error)
	ExecuteDeposit(ctx context.Context, tx *model.DepositTx, user common.Address) (string, error)
}

// Recorder journals execution records.
type Recorder interface {
	RecordExecution(ctx context.Context, rec *model.ExecutionRecord) error
}

// Request describes a single deposit, optionally preceded by a cross-chain swap.
type Request struct {
	FromChainID uint64
	ToChainID   uint64
	Protocol    string
	Asset       string
	Amount      decimal.Decimal
	UserAddress common.Address
}

// CrossChain reports whether funds must be moved before depositing.
func (r Request) CrossChain() bool {
	return r.FromChainID != r.ToChainID
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithRecorder journals every state transition.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) { o.journal = r }
}

// WithProgress registers a callback invoked on every state change.
func WithProgress(fn func(model.ExecutionState)) Option {
	return func(o *Orchestrator) { o.onProgress = fn }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator runs one swap-and-deposit at a time.
type Orchestrator struct {
	adapters   map[string]protocol.Adapter
	quoter     Quoter
	executor   Executor
	journal    Recorder
	onProgress func(model.ExecutionState)
	logger     *zap.Logger
	now        func() time.Time

	mu      sync.Mutex
	state   model.ExecutionState
	running bool
}

// NewOrchestrator builds an orchestrator over the deposit adapters.
func NewOrchestrator(adapters []protocol.Adapter, quoter Quoter, executor Executor, opts ...Option) *Orchestrator {
	byName := make(map[string]protocol.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	o := &Orchestrator{
		adapters: byName,
		quoter:   quoter,
		executor: executor,
		logger:   zap.NewNop(),
		now:      time.Now,
		state:    model.StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current state.
func (o *Orchestrator) State() model.ExecutionState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// ExecuteStrategy deposits the strategy's top allocation.
func (o *Orchestrator) ExecuteStrategy(ctx context.Context, s *model.SmartStrategy, fromChainID uint64, user common.Address) (*model.ExecutionRecord, error) {
	if s == nil || len(s.Allocations) == 0 {
		return nil, fmt.Errorf("strategy has no allocations")
	}
	top := s.Allocations[0]
	if fromChainID == 0 {
		fromChainID = top.Opportunity.ChainID
	}
	return o.Execute(ctx, Request{
		FromChainID: fromChainID,
		ToChainID:   top.Opportunity.ChainID,
		Protocol:    top.Opportunity.Protocol,
		Asset:       top.Opportunity.Asset,
		Amount:      top.Amount,
		UserAddress: user,
	})
}

// Execute runs the state machine. Same-chain requests skip the quote and swap.
// On failure the orchestrator returns to idle and the error is an *ExecutionError.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*model.ExecutionRecord, error) {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return nil, ErrExecutionInProgress
	}
	o.running = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.state = model.StateIdle
		o.mu.Unlock()
	}()

	if !req.Amount.IsPositive() {
		return nil, &ExecutionError{State: model.StateIdle, Err: fmt.Errorf("amount must be positive")}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("execution id: %w", err)
	}
	started := o.now().UTC()
	rec := &model.ExecutionRecord{
		ID:          id.String(),
		Mode:        o.executor.Mode(),
		State:       model.StateIdle,
		FromChainID: req.FromChainID,
		ToChainID:   req.ToChainID,
		Protocol:    req.Protocol,
		Asset:       req.Asset,
		Amount:      req.Amount,
		UserAddress: req.UserAddress.Hex(),
		StartedAt:   started,
		UpdatedAt:   started,
	}
	log := o.logger.With(zap.String("execution_id", rec.ID))

	depositAmount := req.Amount
	if req.CrossChain() {
		o.transition(ctx, log, rec, model.StateFindingRoute)
		// Reject unsupported destinations before any funds move.
		if _, err := o.adapter(req.Protocol, req.ToChainID, req.Asset); err != nil {
			return o.fail(ctx, log, rec, err)
		}
		quote, err := o.quote(ctx, req)
		if err != nil {
			return o.fail(ctx, log, rec, err)
		}
		rec.QuoteID = quote.QuoteID

		o.transition(ctx, log, rec, model.StateSwapping)
		swapHash, err := o.executor.ExecuteSwap(ctx, quote, req)
		if err != nil {
			return o.fail(ctx, log, rec, fmt.Errorf("swap: %w", err))
		}
		rec.SwapTxHash = swapHash
		depositAmount = swappedAmount(quote, req)
	}

	o.transition(ctx, log, rec, model.StateDepositing)
	adapter, err := o.adapter(req.Protocol, req.ToChainID, req.Asset)
	if err != nil {
		return o.fail(ctx, log, rec, err)
	}
	tx, err := adapter.BuildDepositTransaction(req.ToChainID, req.Asset, depositAmount, req.UserAddress)
	if err != nil {
		return o.fail(ctx, log, rec, fmt.Errorf("build deposit: %w", err))
	}
	rec.Deposit = tx
	depositHash, err := o.executor.ExecuteDeposit(ctx, tx, req.UserAddress)
	if err != nil {
		return o.fail(ctx, log, rec, fmt.Errorf("deposit: %w", err))
	}
	rec.DepositTxHash = depositHash

	o.transition(ctx, log, rec, model.StateSuccess)
	return rec, nil
}

func (o *Orchestrator) adapter(name string, chainID uint64, asset string) (protocol.Adapter, error) {
	adapter, ok := o.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%s on chain %d: %w", name, chainID, ErrProtocolNotIntegrated)
	}
	if _, err := adapter.Spender(chainID, asset); err != nil {
		return nil, fmt.Errorf("%s %s on chain %d: %w", name, asset, chainID, ErrProtocolNotIntegrated)
	}
	return adapter, nil
}

func (o *Orchestrator) quote(ctx context.Context, req Request) (*aggregator.Quote, error) {
	if o.quoter == nil {
		return nil, fmt.Errorf("no aggregator configured: %w", aggregator.ErrQuoteUnavailable)
	}
	src, ok := protocol.TokenAddress(req.FromChainID, req.Asset)
	if !ok {
		return nil, fmt.Errorf("%s is not known on chain %d: %w", req.Asset, req.FromChainID, aggregator.ErrQuoteUnavailable)
	}
	dst, ok := protocol.TokenAddress(req.ToChainID, req.Asset)
	if !ok {
		return nil, fmt.Errorf("%s is not known on chain %d: %w", req.Asset, req.ToChainID, aggregator.ErrQuoteUnavailable)
	}
	decimals, _ := protocol.TokenDecimals(req.FromChainID, req.Asset)
	units, err := protocol.ToUnits(req.Amount, decimals)
	if err != nil {
		return nil, err
	}
	return o.quoter.CrossChainQuote(ctx, aggregator.QuoteRequest{
		SrcChainID: req.FromChainID,
		DstChainID: req.ToChainID,
		SrcToken:   src,
		DstToken:   dst,
		Amount:     units,
		Wallet:     req.UserAddress,
	})
}

// swappedAmount is the quoted destination amount, or the requested amount when the quote omits it.
func swappedAmount(quote *aggregator.Quote, req Request) decimal.Decimal {
	decimals, ok := protocol.TokenDecimals(req.ToChainID, req.Asset)
	if !ok || quote.DstTokenAmount == "" {
		return req.Amount
	}
	units, ok := new(big.Int).SetString(quote.DstTokenAmount, 10)
	if !ok || units.Sign() <= 0 {
		return req.Amount
	}
	return protocol.FromUnits(units, decimals)
}

func (o *Orchestrator) transition(ctx context.Context, log *zap.Logger, rec *model.ExecutionRecord, state model.ExecutionState) {
	o.mu.Lock()
	o.state = state
	o.mu.Unlock()

	rec.State = state
	rec.UpdatedAt = o.now().UTC()
	log.Info("execution state",
		zap.String("state", string(state)),
		zap.Uint64("from_chain", rec.FromChainID),
		zap.Uint64("to_chain", rec.ToChainID),
		zap.String("protocol", rec.Protocol),
	)
	if o.onProgress != nil {
		o.onProgress(state)
	}
	o.record(ctx, log, rec)
}

func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, rec *model.ExecutionRecord, err error) (*model.ExecutionRecord, error) {
	failedAt := rec.State
	rec.State = model.StateFailed
	rec.FailedAt = failedAt
	rec.Error = err.Error()
	rec.UpdatedAt = o.now().UTC()
	log.Error("execution failed",
		zap.String("state", string(failedAt)),
		zap.String("swap_tx", rec.SwapTxHash),
		zap.Error(err),
	)
	o.record(ctx, log, rec)
	return rec, &ExecutionError{State: failedAt, SwapTxHash: rec.SwapTxHash, Err: err}
}

func (o *Orchestrator) record(ctx context.Context, log *zap.Logger, rec *model.ExecutionRecord) {
	if o.journal == nil {
		return
	}
	snapshot := *rec
	if err := o.journal.RecordExecution(ctx, &snapshot); err != nil {
		log.Warn("journal execution failed", zap.Error(err))
	}
}
