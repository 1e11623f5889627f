package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"pairCore/internal/model"
	"pairCore/internal/storage/postgres"
)

const (
	feeMethodFixed     = "fixed_30bps_of_input"
	tvlMethodSync      = "reserves_from_sync"
	tvlMethodCarried   = "reserves_carried_over"
	tvlMethodNone      = "unavailable"
	defaultBatchSize   = 1000
	initialPairsBuffer = 256
)

// MetricsStore persists pairs and window metrics.
type MetricsStore interface {
	UpsertPairs(ctx context.Context, pairs []model.Pair) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PairWindowMetrics) error
}

var _ MetricsStore = (*postgres.Store)(nil)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
}

// Aggregator aggregates typed pair events into window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	accumulators map[string]*Accumulator
	// reserves carries the last Sync per pair into later windows.
	reserves map[string][2]*big.Int
	pairSeen map[string]model.Pair
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string][2]*big.Int),
		pairSeen:     make(map[string]model.Pair),
	}
}

// Run executes aggregation over a typed events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.RunReader(ctx, file)
}

// RunReader executes aggregation over typed events JSONL read from r.
func (a *Aggregator) RunReader(ctx context.Context, r io.Reader) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = defaultBatchSize
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.PairWindowMetrics, 0, a.cfg.BatchSize)
	pairs := make([]model.Pair, 0, initialPairsBuffer)
	maxTs := startTs
	var total, flushed, skipped, failed int

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode typed event", zap.Error(err))
			continue
		}

		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		accKey := pairKey(record.Address)
		acc := a.accumulators[accKey]
		if acc == nil {
			acc = a.newAccumulator(record, windowStart, windowEnd)
			a.accumulators[accKey] = acc
		} else if acc.WindowStart != windowStart {
			metrics, pair := a.flushAccumulator(acc)
			batch = append(batch, *metrics)
			flushed++
			if pair != nil {
				pairs = append(pairs, *pair)
			}
			acc = a.newAccumulator(record, windowStart, windowEnd)
			a.accumulators[accKey] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pair", record.Address), zap.String("event", record.EventName))
			continue
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.flushBatches(ctx, batch, pairs); err != nil {
				return err
			}
			batch = batch[:0]
			pairs = pairs[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		metrics, pair := a.flushAccumulator(acc)
		batch = append(batch, *metrics)
		flushed++
		if pair != nil {
			pairs = append(pairs, *pair)
		}
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 || len(pairs) > 0 {
		if err := a.flushBatches(ctx, batch, pairs); err != nil {
			return err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", flushed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) newAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	acc := NewAccumulator(record, windowStart, windowEnd)
	if carried, ok := a.reserves[pairKey(record.Address)]; ok {
		acc.Reserve0 = carried[0]
		acc.Reserve1 = carried[1]
	}
	return acc
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func (a *Aggregator) flushBatches(ctx context.Context, batch []model.PairWindowMetrics, pairs []model.Pair) error {
	if len(pairs) > 0 {
		if err := a.store.UpsertPairs(ctx, pairs); err != nil {
			return err
		}
	}
	if len(batch) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) (*model.PairWindowMetrics, *model.Pair) {
	key := pairKey(acc.PairAddress)
	if acc.PairMeta.Token0 == "" || acc.PairMeta.Token1 == "" {
		a.logger.Debug("missing pair meta", zap.String("pair", acc.PairAddress))
	}
	pairRecord := a.registerPair(acc)

	tvlMethod := tvlMethodNone
	if acc.Reserve0 != nil && acc.Reserve1 != nil {
		tvlMethod = tvlMethodCarried
		if prev, ok := a.reserves[key]; !ok || prev[0] != acc.Reserve0 || prev[1] != acc.Reserve1 {
			tvlMethod = tvlMethodSync
		}
		a.reserves[key] = [2]*big.Int{acc.Reserve0, acc.Reserve1}
	}

	feeRate0, feeRate1 := computeFeeRates(acc.Fee0, acc.Fee1, acc.Reserve0, acc.Reserve1)
	apr := computeAPR(acc.Fee0, acc.Fee1, acc.Reserve0, acc.Reserve1, a.cfg.WindowSeconds)

	metrics := &model.PairWindowMetrics{
		ChainID:        acc.ChainID,
		PairAddress:    acc.PairAddress,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		MintCount:      acc.MintCount,
		BurnCount:      acc.BurnCount,
		Volume0:        acc.Volume0.String(),
		Volume1:        acc.Volume1.String(),
		Fee0:           acc.Fee0.String(),
		Fee1:           acc.Fee1.String(),
		Reserve0:       bigString(acc.Reserve0),
		Reserve1:       bigString(acc.Reserve1),
		FeeRate0:       feeRate0,
		FeeRate1:       feeRate1,
		APR:            apr,
		FeeMethod:      feeMethodFixed,
		TVLMethod:      tvlMethod,
	}

	return metrics, pairRecord
}

func (a *Aggregator) registerPair(acc *Accumulator) *model.Pair {
	key := pairKey(acc.PairAddress)
	pair := model.Pair{
		ChainID:        acc.ChainID,
		Address:        acc.PairAddress,
		Token0:         acc.PairMeta.Token0,
		Token1:         acc.PairMeta.Token1,
		FirstSeenBlock: acc.FirstBlock,
	}

	existing, ok := a.pairSeen[key]
	if ok {
		if pair.Token0 == "" {
			pair.Token0, pair.Token1 = existing.Token0, existing.Token1
		}
		if existing.FirstSeenBlock <= pair.FirstSeenBlock && existing.Token0 == pair.Token0 {
			return nil
		}
		if existing.FirstSeenBlock < pair.FirstSeenBlock {
			pair.FirstSeenBlock = existing.FirstSeenBlock
		}
	}

	a.pairSeen[key] = pair
	return &pair
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func pairKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var min uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if min == 0 || entry.WindowStart < min {
			min = entry.WindowStart
		}
	}
	return min
}
