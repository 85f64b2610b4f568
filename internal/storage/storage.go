package storage

import (
	"context"
	"errors"

	"yieldScope/internal/model"
)

// Kinds of journal entries.
const (
	KindStrategy  = "strategy"
	KindExecution = "execution"
)

// Journal is an append-only audit trail of generated strategies and execution transitions.
type Journal interface {
	RecordStrategy(ctx context.Context, s *model.SmartStrategy) error
	RecordExecution(ctx context.Context, rec *model.ExecutionRecord) error
}

// ExecutionLookup returns the latest journaled state of an execution.
type ExecutionLookup interface {
	LoadExecution(ctx context.Context, id string) (*model.ExecutionRecord, bool, error)
}

// Multi fans every entry out to all journals and joins their errors.
type Multi []Journal

func (m Multi) RecordStrategy(ctx context.Context, s *model.SmartStrategy) error {
	var errs []error
	for _, j := range m {
		if err := j.RecordStrategy(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) RecordExecution(ctx context.Context, rec *model.ExecutionRecord) error {
	var errs []error
	for _, j := range m {
		if err := j.RecordExecution(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
