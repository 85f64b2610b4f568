package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"yieldScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS strategies (
	id TEXT PRIMARY KEY,
	asset TEXT NOT NULL,
	risk_profile TEXT NOT NULL,
	total_amount NUMERIC NOT NULL,
	target_apy DOUBLE PRECISION NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS strategy_allocations (
	strategy_id TEXT NOT NULL REFERENCES strategies(id) ON DELETE CASCADE,
	rank INT NOT NULL,
	protocol TEXT NOT NULL,
	chain_id BIGINT NOT NULL,
	percentage DOUBLE PRECISION NOT NULL,
	amount NUMERIC NOT NULL,
	apy DOUBLE PRECISION NOT NULL,
	source TEXT NOT NULL,
	PRIMARY KEY (strategy_id, rank)
);
CREATE TABLE IF NOT EXISTS executions (
	id TEXT PRIMARY KEY,
	mode TEXT NOT NULL,
	state TEXT NOT NULL,
	failed_at TEXT,
	from_chain_id BIGINT NOT NULL,
	to_chain_id BIGINT NOT NULL,
	protocol TEXT NOT NULL,
	swap_tx_hash TEXT,
	deposit_tx_hash TEXT,
	payload JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// Store is a Postgres-backed journal.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the journal tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// RecordStrategy inserts a strategy and its allocations in one batch.
func (s *Store) RecordStrategy(ctx context.Context, strategy *model.SmartStrategy) error {
	if strategy == nil {
		return nil
	}
	payload, err := json.Marshal(strategy)
	if err != nil {
		return fmt.Errorf("marshal strategy: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`
		INSERT INTO strategies (id, asset, risk_profile, total_amount, target_apy, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`,
		strategy.ID,
		strategy.Asset,
		string(strategy.RiskProfile),
		strategy.TotalAmount.String(),
		strategy.TargetAPY,
		payload,
		strategy.CreatedAt,
	)
	for i, a := range strategy.Allocations {
		batch.Queue(`
			INSERT INTO strategy_allocations (strategy_id, rank, protocol, chain_id, percentage, amount, apy, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (strategy_id, rank) DO NOTHING
		`,
			strategy.ID,
			i+1,
			a.Opportunity.Protocol,
			int64(a.Opportunity.ChainID),
			a.Percentage,
			a.Amount.String(),
			a.Opportunity.APY,
			string(a.Opportunity.Source),
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// RecordExecution upserts an execution so the latest transition wins.
func (s *Store) RecordExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	if rec == nil {
		return nil
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal execution: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO executions (
			id, mode, state, failed_at, from_chain_id, to_chain_id, protocol,
			swap_tx_hash, deposit_tx_hash, payload, started_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			failed_at = EXCLUDED.failed_at,
			swap_tx_hash = COALESCE(EXCLUDED.swap_tx_hash, executions.swap_tx_hash),
			deposit_tx_hash = COALESCE(EXCLUDED.deposit_tx_hash, executions.deposit_tx_hash),
			payload = EXCLUDED.payload,
			updated_at = EXCLUDED.updated_at
		WHERE executions.updated_at <= EXCLUDED.updated_at
	`,
		rec.ID,
		rec.Mode,
		string(rec.State),
		nullable(string(rec.FailedAt)),
		int64(rec.FromChainID),
		int64(rec.ToChainID),
		rec.Protocol,
		nullable(rec.SwapTxHash),
		nullable(rec.DepositTxHash),
		payload,
		rec.StartedAt,
		rec.UpdatedAt,
	)
	return err
}

// LoadExecution returns the latest journaled state of an execution.
func (s *Store) LoadExecution(ctx context.Context, id string) (*model.ExecutionRecord, bool, error) {
	if id == "" {
		return nil, false, fmt.Errorf("execution id required")
	}
	var payload []byte
	row := s.pool.QueryRow(ctx, `SELECT payload FROM executions WHERE id=$1`, id)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var rec model.ExecutionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, false, fmt.Errorf("decode execution %s: %w", id, err)
	}
	return &rec, true, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
