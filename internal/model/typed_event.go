package model

import "encoding/json"

// PairMeta captures immutable pair metadata.
type PairMeta struct {
	Token0 string `json:"token0,omitempty"`
	Token1 string `json:"token1,omitempty"`
}

// TypedEvent is a decoded pair event enriched with metadata.
type TypedEvent struct {
	ChainID     uint64      `json:"chain_id"`
	BlockNumber uint64      `json:"block_number"`
	TxHash      string      `json:"tx_hash"`
	LogIndex    uint64      `json:"log_index"`
	Address     string      `json:"address"`
	EventName   string      `json:"event_name"`
	Timestamp   uint64      `json:"timestamp"`
	Decoded     interface{} `json:"decoded"`
	PairMeta    PairMeta    `json:"pair_meta"`
	Raw         *RawLogRef  `json:"raw,omitempty"`
}

// TypedEventRecord is the JSON representation read back for aggregation.
type TypedEventRecord struct {
	ChainID     uint64          `json:"chain_id"`
	BlockNumber uint64          `json:"block_number"`
	TxHash      string          `json:"tx_hash"`
	LogIndex    uint64          `json:"log_index"`
	Address     string          `json:"address"`
	EventName   string          `json:"event_name"`
	Timestamp   uint64          `json:"timestamp"`
	Decoded     json.RawMessage `json:"decoded"`
	PairMeta    PairMeta        `json:"pair_meta"`
	Raw         *RawLogRef      `json:"raw,omitempty"`
}

// RawLogRef keeps a minimal raw reference for traceability.
type RawLogRef struct {
	Topic0 string `json:"topic0"`
	Data   string `json:"data"`
}
