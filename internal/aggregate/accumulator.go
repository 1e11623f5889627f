package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"pairCore/internal/events"
	"pairCore/internal/model"
)

// Swaps pay 3/1000 of every input amount to liquidity providers.
var (
	feeNumerator   = big.NewInt(3)
	feeDenominator = big.NewInt(1000)
)

// Accumulator holds aggregate values for a pair window.
type Accumulator struct {
	ChainID     uint64
	PairAddress string
	PairMeta    model.PairMeta
	WindowStart uint64
	WindowEnd   uint64
	SwapCount   uint64
	MintCount   uint64
	BurnCount   uint64
	Volume0     *big.Int
	Volume1     *big.Int
	Fee0        *big.Int
	Fee1        *big.Int
	// Reserve0 and Reserve1 are the latest Sync values seen, possibly
	// carried over from an earlier window.
	Reserve0   *big.Int
	Reserve1   *big.Int
	LastBlock  uint64
	LastTS     uint64
	FirstBlock uint64
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		ChainID:     record.ChainID,
		PairAddress: record.Address,
		PairMeta:    record.PairMeta,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Volume0:     big.NewInt(0),
		Volume1:     big.NewInt(0),
		Fee0:        big.NewInt(0),
		Fee1:        big.NewInt(0),
		LastBlock:   record.BlockNumber,
		LastTS:      record.Timestamp,
		FirstBlock:  record.BlockNumber,
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
		a.LastBlock = record.BlockNumber
	}
	if a.FirstBlock == 0 || record.BlockNumber < a.FirstBlock {
		a.FirstBlock = record.BlockNumber
	}
	if a.PairMeta.Token0 == "" && record.PairMeta.Token0 != "" {
		a.PairMeta = record.PairMeta
	}

	switch record.EventName {
	case events.NameSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap)
	case events.NameSync:
		var sync model.SyncEventData
		if err := json.Unmarshal(record.Decoded, &sync); err != nil {
			return fmt.Errorf("decode sync: %w", err)
		}
		return a.applySync(sync)
	case events.NameMint:
		a.MintCount++
		return nil
	case events.NameBurn:
		a.BurnCount++
		return nil
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData) error {
	amounts := make([]*big.Int, 0, 4)
	for _, value := range []string{swap.Amount0In, swap.Amount1In, swap.Amount0Out, swap.Amount1Out} {
		amount, err := parseBigInt(value)
		if err != nil {
			return err
		}
		amounts = append(amounts, amount)
	}
	amount0In, amount1In, amount0Out, amount1Out := amounts[0], amounts[1], amounts[2], amounts[3]

	a.Volume0.Add(a.Volume0, amount0In)
	a.Volume0.Add(a.Volume0, amount0Out)
	a.Volume1.Add(a.Volume1, amount1In)
	a.Volume1.Add(a.Volume1, amount1Out)
	a.Fee0.Add(a.Fee0, feeFromInput(amount0In))
	a.Fee1.Add(a.Fee1, feeFromInput(amount1In))
	a.SwapCount++
	return nil
}

func (a *Accumulator) applySync(sync model.SyncEventData) error {
	reserve0, err := parseBigInt(sync.Reserve0)
	if err != nil {
		return err
	}
	reserve1, err := parseBigInt(sync.Reserve1)
	if err != nil {
		return err
	}
	a.Reserve0 = reserve0
	a.Reserve1 = reserve1
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	if parsed.Sign() < 0 {
		return nil, fmt.Errorf("negative amount: %s", value)
	}
	return parsed, nil
}

func feeFromInput(amountIn *big.Int) *big.Int {
	if amountIn == nil {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amountIn, feeNumerator)
	return fee.Div(fee, feeDenominator)
}
