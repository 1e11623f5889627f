package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"pairCore/internal/chain"
	"pairCore/internal/model"
)

// PairMetaCache caches pair metadata by address.
type PairMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PairMeta
}

func NewPairMetaCache() *PairMetaCache {
	return &PairMetaCache{data: make(map[common.Address]model.PairMeta)}
}

func (c *PairMetaCache) Get(address common.Address) (model.PairMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PairMetaCache) Set(address common.Address, meta model.PairMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// FetchPairMeta loads the token addresses of a pair.
func FetchPairMeta(ctx context.Context, backend chain.Backend, pair common.Address) (model.PairMeta, error) {
	if backend == nil {
		return model.PairMeta{}, fmt.Errorf("backend is nil")
	}
	pairABI, err := V2PairABI()
	if err != nil {
		return model.PairMeta{}, fmt.Errorf("parse pair abi: %w", err)
	}

	token0, err := callAddress(ctx, backend, pair, pairABI, "token0", nil)
	if err != nil {
		return model.PairMeta{}, err
	}
	token1, err := callAddress(ctx, backend, pair, pairABI, "token1", nil)
	if err != nil {
		return model.PairMeta{}, err
	}

	return model.PairMeta{
		Token0: token0.Hex(),
		Token1: token1.Hex(),
	}, nil
}

// FetchPairState reads reserves, accumulators and supply of a pair at a
// block height; blockNumber nil means latest.
func FetchPairState(ctx context.Context, backend chain.Backend, pair common.Address, blockNumber *big.Int) (model.PairState, error) {
	if backend == nil {
		return model.PairState{}, fmt.Errorf("backend is nil")
	}
	pairABI, err := V2PairABI()
	if err != nil {
		return model.PairState{}, fmt.Errorf("parse pair abi: %w", err)
	}

	state := model.PairState{Address: pair.Hex()}

	token0, err := callAddress(ctx, backend, pair, pairABI, "token0", blockNumber)
	if err != nil {
		return model.PairState{}, err
	}
	token1, err := callAddress(ctx, backend, pair, pairABI, "token1", blockNumber)
	if err != nil {
		return model.PairState{}, err
	}
	state.Token0 = token0.Hex()
	state.Token1 = token1.Hex()

	values, err := callPairMethod(ctx, backend, pair, pairABI, "getReserves", blockNumber)
	if err != nil {
		return model.PairState{}, err
	}
	if len(values) != 3 {
		return model.PairState{}, fmt.Errorf("getReserves return size %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.PairState{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.PairState{}, fmt.Errorf("reserve1: %w", err)
	}
	ts, err := asBigInt(values[2])
	if err != nil {
		return model.PairState{}, fmt.Errorf("blockTimestampLast: %w", err)
	}
	state.Reserve0 = reserve0.String()
	state.Reserve1 = reserve1.String()
	state.BlockTimestampLast = uint32(ts.Uint64())

	for _, field := range []struct {
		method string
		target *string
	}{
		{"totalSupply", &state.TotalSupply},
		{"price0CumulativeLast", &state.Price0CumulativeLast},
		{"price1CumulativeLast", &state.Price1CumulativeLast},
		{"kLast", &state.KLast},
	} {
		values, err := callPairMethod(ctx, backend, pair, pairABI, field.method, blockNumber)
		if err != nil {
			return model.PairState{}, err
		}
		value, err := asBigInt(values[0])
		if err != nil {
			return model.PairState{}, fmt.Errorf("%s: %w", field.method, err)
		}
		*field.target = value.String()
	}

	if blockNumber != nil {
		state.BlockNumber = blockNumber.Uint64()
	}
	return state, nil
}

func callAddress(ctx context.Context, backend chain.Backend, pair common.Address, pairABI abi.ABI, method string, block *big.Int) (common.Address, error) {
	values, err := callPairMethod(ctx, backend, pair, pairABI, method, block)
	if err != nil {
		return common.Address{}, err
	}
	addr, err := asAddress(values[0])
	if err != nil {
		return common.Address{}, fmt.Errorf("%s: %w", method, err)
	}
	return addr, nil
}

func callPairMethod(ctx context.Context, backend chain.Backend, pair common.Address, pairABI abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := pairABI.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &pair, Data: data}
	resp, err := backend.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := pairABI.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return values, nil
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}
