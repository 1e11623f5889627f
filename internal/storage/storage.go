// Package storage persists the event logs a simulated pair emits.
package storage

import (
	"context"

	"pairCore/internal/model"
)

// Storage is a sink for emitted event logs.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// Multi writes every batch to each storage in order and stops at the first
// failure.
type Multi []Storage

func (m Multi) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.PutLogBatch(ctx, logs); err != nil {
			return err
		}
	}
	return nil
}
