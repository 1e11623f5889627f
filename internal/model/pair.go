package model

// Pair is a pair metadata record for storage.
type Pair struct {
	ChainID        uint64 `json:"chain_id"`
	Address        string `json:"address"`
	Token0         string `json:"token0"`
	Token1         string `json:"token1"`
	FirstSeenBlock uint64 `json:"first_seen_block"`
}

// PairState is a point-in-time snapshot of pair storage.
type PairState struct {
	ChainID              uint64 `json:"chain_id"`
	Address              string `json:"address"`
	Factory              string `json:"factory"`
	Token0               string `json:"token0"`
	Token1               string `json:"token1"`
	Reserve0             string `json:"reserve0"`
	Reserve1             string `json:"reserve1"`
	BlockTimestampLast   uint32 `json:"block_timestamp_last"`
	Price0CumulativeLast string `json:"price0_cumulative_last"`
	Price1CumulativeLast string `json:"price1_cumulative_last"`
	KLast                string `json:"k_last"`
	TotalSupply          string `json:"total_supply"`
	BlockNumber          uint64 `json:"block_number"`
}

// PairInspection compares a pair's reserves with the token balances it
// actually holds. Drift is balance minus reserve: positive drift can be
// skimmed, negative drift means a sync would shrink the reserve.
type PairInspection struct {
	State    PairState `json:"state"`
	Balance0 string    `json:"balance0"`
	Balance1 string    `json:"balance1"`
	Drift0   string    `json:"drift0"`
	Drift1   string    `json:"drift1"`
	InSync   bool      `json:"in_sync"`
}
