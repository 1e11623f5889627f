package postgres

// Amounts are NUMERIC(78,0) so any uint256 fits.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS pairs (
		chain_id BIGINT NOT NULL,
		pair_address TEXT NOT NULL,
		token0 TEXT NOT NULL,
		token1 TEXT NOT NULL,
		first_seen_block BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, pair_address)
	)`,
	`CREATE TABLE IF NOT EXISTS pair_states (
		chain_id BIGINT NOT NULL,
		pair_address TEXT NOT NULL,
		block_number BIGINT NOT NULL,
		factory TEXT NOT NULL,
		token0 TEXT NOT NULL,
		token1 TEXT NOT NULL,
		reserve0 NUMERIC(78,0) NOT NULL,
		reserve1 NUMERIC(78,0) NOT NULL,
		block_timestamp_last BIGINT NOT NULL,
		price0_cumulative_last NUMERIC(78,0) NOT NULL,
		price1_cumulative_last NUMERIC(78,0) NOT NULL,
		k_last NUMERIC(78,0) NOT NULL,
		total_supply NUMERIC(78,0) NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, pair_address, block_number)
	)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		chain_id BIGINT NOT NULL,
		block_number BIGINT NOT NULL,
		block_hash TEXT NOT NULL,
		tx_hash TEXT NOT NULL,
		tx_index BIGINT NOT NULL,
		log_index BIGINT NOT NULL,
		address TEXT NOT NULL,
		topics TEXT[] NOT NULL,
		data TEXT NOT NULL,
		block_timestamp BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, tx_hash, log_index)
	)`,
	`CREATE TABLE IF NOT EXISTS pair_window_metrics (
		chain_id BIGINT NOT NULL,
		pair_address TEXT NOT NULL,
		window_size_seconds BIGINT NOT NULL,
		window_start_ts TIMESTAMPTZ NOT NULL,
		window_end_ts TIMESTAMPTZ NOT NULL,
		swap_count BIGINT NOT NULL,
		mint_count BIGINT NOT NULL,
		burn_count BIGINT NOT NULL,
		volume0 NUMERIC(78,0) NOT NULL,
		volume1 NUMERIC(78,0) NOT NULL,
		fee0 NUMERIC(78,0) NOT NULL,
		fee1 NUMERIC(78,0) NOT NULL,
		reserve0 NUMERIC(78,0),
		reserve1 NUMERIC(78,0),
		fee_rate0 NUMERIC,
		fee_rate1 NUMERIC,
		apr NUMERIC,
		fee_method TEXT NOT NULL,
		tvl_method TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (chain_id, pair_address, window_size_seconds, window_start_ts)
	)`,
	`CREATE TABLE IF NOT EXISTS aggregator_state (
		name TEXT PRIMARY KEY,
		last_processed_ts BIGINT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
