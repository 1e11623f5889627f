package aggregate

import (
	"context"
	"fmt"

	"pairCore/internal/storage/postgres"
)

// DBStateStore keeps progress in the aggregator_state table, one row per
// window size.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func NewDBStateStore(store *postgres.Store, windowSeconds uint64) *DBStateStore {
	return &DBStateStore{Store: store, Name: fmt.Sprintf("pair_windows:%d", windowSeconds)}
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, ts uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, ts)
}
