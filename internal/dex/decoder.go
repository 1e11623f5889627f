package dex

import (
	"context"

	"go.uber.org/zap"

	"pairCore/internal/chain"
	"pairCore/internal/model"
)

// Decoder defines a log decoder.
type Decoder interface {
	CanDecode(topic0 string) bool
	Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error)
}

// DecodeContext provides shared dependencies for decoders. Backend is
// optional; without it pair metadata comes only from the cache.
type DecodeContext struct {
	Context       context.Context
	Backend       chain.Backend
	PairMetaCache *PairMetaCache
	Logger        *zap.Logger
}
