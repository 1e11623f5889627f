package model

import "time"

// PairWindowMetrics stores aggregated metrics for a pair window.
type PairWindowMetrics struct {
	ChainID        uint64
	PairAddress    string
	WindowSizeSecs int64
	WindowStart    time.Time
	WindowEnd      time.Time
	SwapCount      uint64
	MintCount      uint64
	BurnCount      uint64
	Volume0        string
	Volume1        string
	Fee0           string
	Fee1           string
	Reserve0       *string
	Reserve1       *string
	FeeRate0       *string
	FeeRate1       *string
	APR            *string
	FeeMethod      string
	TVLMethod      string
}
