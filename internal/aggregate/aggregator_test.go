package aggregate

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"pairCore/internal/events"
	"pairCore/internal/model"
)

type memoryStore struct {
	pairs   []model.Pair
	metrics []model.PairWindowMetrics
}

func (s *memoryStore) UpsertPairs(_ context.Context, pairs []model.Pair) error {
	s.pairs = append(s.pairs, pairs...)
	return nil
}

func (s *memoryStore) UpsertWindowMetrics(_ context.Context, metrics []model.PairWindowMetrics) error {
	s.metrics = append(s.metrics, metrics...)
	return nil
}

const testPair = "0x1111111111111111111111111111111111111111"

func typedLine(t *testing.T, ts, block uint64, name string, decoded interface{}) []byte {
	t.Helper()
	line, err := json.Marshal(model.TypedEvent{
		ChainID:     1,
		BlockNumber: block,
		Address:     testPair,
		EventName:   name,
		Timestamp:   ts,
		Decoded:     decoded,
		PairMeta: model.PairMeta{
			Token0: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			Token1: "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		},
	})
	require.NoError(t, err)
	return append(line, '\n')
}

func testInput(t *testing.T) []byte {
	var buf bytes.Buffer
	buf.Write(typedLine(t, 1000, 10, events.NameMint, model.MintEventData{Amount0: "1000000", Amount1: "1000000"}))
	buf.Write(typedLine(t, 1000, 10, events.NameSync, model.SyncEventData{Reserve0: "1000000", Reserve1: "1000000"}))
	buf.Write(typedLine(t, 1100, 11, events.NameSwap, model.SwapEventData{Amount0In: "10000", Amount1In: "0", Amount0Out: "0", Amount1Out: "9000"}))
	buf.Write(typedLine(t, 1100, 11, events.NameSync, model.SyncEventData{Reserve0: "1010000", Reserve1: "991000"}))
	buf.WriteString("not json\n")
	buf.Write(typedLine(t, 1300, 13, events.NameSwap, model.SwapEventData{Amount0In: "0", Amount1In: "2000", Amount0Out: "1990", Amount1Out: "0"}))
	return buf.Bytes()
}

func TestAggregatorWindows(t *testing.T) {
	store := &memoryStore{}
	statePath := filepath.Join(t.TempDir(), "state.json")
	agg := NewAggregator(Config{WindowSeconds: 300, StateStore: &FileStateStore{Path: statePath}}, store, nil)

	require.NoError(t, agg.RunReader(context.Background(), bytes.NewReader(testInput(t))))
	require.Len(t, store.metrics, 2)
	require.Len(t, store.pairs, 1)
	require.Equal(t, uint64(10), store.pairs[0].FirstSeenBlock)

	first := store.metrics[0]
	require.Equal(t, int64(900), first.WindowStart.Unix())
	require.Equal(t, int64(1200), first.WindowEnd.Unix())
	require.Equal(t, uint64(1), first.SwapCount)
	require.Equal(t, uint64(1), first.MintCount)
	require.Equal(t, "10000", first.Volume0)
	require.Equal(t, "9000", first.Volume1)
	require.Equal(t, "30", first.Fee0)
	require.Equal(t, "0", first.Fee1)
	require.Equal(t, "1010000", *first.Reserve0)
	require.Equal(t, tvlMethodSync, first.TVLMethod)
	require.NotNil(t, first.FeeRate0)
	require.Nil(t, first.FeeRate1)
	require.NotNil(t, first.APR)

	second := store.metrics[1]
	require.Equal(t, int64(1200), second.WindowStart.Unix())
	require.Equal(t, "6", second.Fee1)
	require.Equal(t, "991000", *second.Reserve1)
	require.Equal(t, tvlMethodCarried, second.TVLMethod)

	last, ok, err := (&FileStateStore{Path: statePath}).Load(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(1300), last)

	// a second run resumes after the saved timestamp
	again := NewAggregator(Config{WindowSeconds: 300, StateStore: &FileStateStore{Path: statePath}}, store, nil)
	require.NoError(t, again.RunReader(context.Background(), bytes.NewReader(testInput(t))))
	require.Len(t, store.metrics, 2)
}

func TestAggregatorRequiresWindow(t *testing.T) {
	agg := NewAggregator(Config{}, &memoryStore{}, nil)
	require.Error(t, agg.RunReader(context.Background(), bytes.NewReader(nil)))
	require.Error(t, NewAggregator(Config{WindowSeconds: 60}, nil, nil).RunReader(context.Background(), bytes.NewReader(nil)))
}

func TestComputeAPR(t *testing.T) {
	require.Nil(t, computeAPR(nil, nil, nil, nil, 300))

	// 1% of each side in a year-long window is a 1% APR
	year := uint64(365 * 24 * 3600)
	apr := computeAPR(big.NewInt(10), big.NewInt(20), big.NewInt(1000), big.NewInt(2000), year)
	require.NotNil(t, apr)
	require.Equal(t, "0.010000000000000000", *apr)
}

func TestFileStateStoreWindowMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "progress.json")
	ctx := context.Background()

	_, ok, err := (&FileStateStore{Path: path, WindowSeconds: 300}).Load(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, (&FileStateStore{Path: path, WindowSeconds: 300}).Save(ctx, 42))
	last, ok, err := (&FileStateStore{Path: path, WindowSeconds: 300}).Load(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(42), last)

	_, _, err = (&FileStateStore{Path: path, WindowSeconds: 60}).Load(ctx)
	require.ErrorIs(t, err, ErrWindowMismatch)
}
