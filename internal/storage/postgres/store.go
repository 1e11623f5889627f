package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pairCore/internal/model"
	"pairCore/internal/storage"
)

var _ storage.Storage = (*Store)(nil)

// Store provides Postgres persistence for pairs, event logs and metrics.
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

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// UpsertPairs inserts or updates pair metadata.
func (s *Store) UpsertPairs(ctx context.Context, pairs []model.Pair) error {
	if len(pairs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pair := range pairs {
		batch.Queue(`
			INSERT INTO pairs (
				chain_id, pair_address, token0, token1, first_seen_block, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (chain_id, pair_address)
			DO UPDATE SET
				token0 = EXCLUDED.token0,
				token1 = EXCLUDED.token1,
				first_seen_block = LEAST(pairs.first_seen_block, EXCLUDED.first_seen_block),
				updated_at = now()
		`,
			int64(pair.ChainID),
			pair.Address,
			pair.Token0,
			pair.Token1,
			int64(pair.FirstSeenBlock),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertPairState stores a storage snapshot keyed by block.
func (s *Store) UpsertPairState(ctx context.Context, state model.PairState) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pair_states (
			chain_id, pair_address, block_number, factory, token0, token1,
			reserve0, reserve1, block_timestamp_last, price0_cumulative_last,
			price1_cumulative_last, k_last, total_supply, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now())
		ON CONFLICT (chain_id, pair_address, block_number)
		DO UPDATE SET
			factory = EXCLUDED.factory,
			token0 = EXCLUDED.token0,
			token1 = EXCLUDED.token1,
			reserve0 = EXCLUDED.reserve0,
			reserve1 = EXCLUDED.reserve1,
			block_timestamp_last = EXCLUDED.block_timestamp_last,
			price0_cumulative_last = EXCLUDED.price0_cumulative_last,
			price1_cumulative_last = EXCLUDED.price1_cumulative_last,
			k_last = EXCLUDED.k_last,
			total_supply = EXCLUDED.total_supply,
			updated_at = now()
	`,
		int64(state.ChainID),
		state.Address,
		int64(state.BlockNumber),
		state.Factory,
		state.Token0,
		state.Token1,
		state.Reserve0,
		state.Reserve1,
		int64(state.BlockTimestampLast),
		state.Price0CumulativeLast,
		state.Price1CumulativeLast,
		state.KLast,
		state.TotalSupply,
	)
	return err
}

// PutLogBatch stores event logs, ignoring ones already present.
func (s *Store) PutLogBatch(ctx context.Context, logs []model.LogRecord) error {
	if len(logs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, log := range logs {
		batch.Queue(`
			INSERT INTO event_logs (
				chain_id, block_number, block_hash, tx_hash, tx_index, log_index,
				address, topics, data, block_timestamp, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now())
			ON CONFLICT (chain_id, tx_hash, log_index) DO NOTHING
		`,
			int64(log.ChainID),
			int64(log.BlockNumber),
			log.BlockHash,
			log.TxHash,
			int64(log.TxIndex),
			int64(log.LogIndex),
			log.Address,
			log.Topics,
			log.Data,
			int64(log.Timestamp),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PairWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pair_window_metrics (
				chain_id, pair_address, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, mint_count, burn_count, volume0, volume1, fee0, fee1,
				reserve0, reserve1, fee_rate0, fee_rate1, apr, fee_method, tvl_method,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,now(),now())
			ON CONFLICT (chain_id, pair_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				mint_count = EXCLUDED.mint_count,
				burn_count = EXCLUDED.burn_count,
				volume0 = EXCLUDED.volume0,
				volume1 = EXCLUDED.volume1,
				fee0 = EXCLUDED.fee0,
				fee1 = EXCLUDED.fee1,
				reserve0 = EXCLUDED.reserve0,
				reserve1 = EXCLUDED.reserve1,
				fee_rate0 = EXCLUDED.fee_rate0,
				fee_rate1 = EXCLUDED.fee_rate1,
				apr = EXCLUDED.apr,
				fee_method = EXCLUDED.fee_method,
				tvl_method = EXCLUDED.tvl_method,
				updated_at = now()
		`,
			int64(m.ChainID),
			m.PairAddress,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			int64(m.MintCount),
			int64(m.BurnCount),
			m.Volume0,
			m.Volume1,
			m.Fee0,
			m.Fee1,
			m.Reserve0,
			m.Reserve1,
			m.FeeRate0,
			m.FeeRate1,
			m.APR,
			m.FeeMethod,
			m.TVLMethod,
		)
	}
	return s.sendBatch(ctx, batch)
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM aggregator_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(ts), true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO aggregator_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, int64(ts))
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
