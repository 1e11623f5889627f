// Package token talks to the external value ledgers the pair custodies.
package token

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/chain"
	"pairCore/internal/dex"
)

// ERC20 reads and moves balances of one token contract through a Backend.
type ERC20 struct {
	backend chain.Backend
	address common.Address
	abi     abi.ABI
}

func NewERC20(backend chain.Backend, address common.Address) (*ERC20, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	return &ERC20{backend: backend, address: address, abi: parsed}, nil
}

func (t *ERC20) Address() common.Address {
	return t.address
}

// BalanceOf returns the balance of owner.
func (t *ERC20) BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	return t.readUint(ctx, "balanceOf", owner)
}

// TotalSupply returns the token supply.
func (t *ERC20) TotalSupply(ctx context.Context) (*uint256.Int, error) {
	return t.readUint(ctx, "totalSupply")
}

// Transfer calls transfer(to, value) as from and returns the raw return
// data. Interpreting the data is left to the caller since tokens differ.
func (t *ERC20) Transfer(ctx context.Context, from, to common.Address, value *uint256.Int) ([]byte, error) {
	data, err := t.abi.Pack("transfer", to, value.ToBig())
	if err != nil {
		return nil, fmt.Errorf("pack transfer: %w", err)
	}
	addr := t.address
	ret, err := t.backend.CallContract(ctx, ethereum.CallMsg{From: from, To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", t.address.Hex(), err)
	}
	return ret, nil
}

func (t *ERC20) readUint(ctx context.Context, method string, args ...interface{}) (*uint256.Int, error) {
	data, err := t.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	addr := t.address
	resp, err := t.backend.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, t.address.Hex(), err)
	}
	values, err := t.abi.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s on %s: %w", method, t.address.Hex(), err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("%s returned %d values", method, len(values))
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s type %T", method, values[0])
	}
	value, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, fmt.Errorf("%s exceeds 256 bits", method)
	}
	return value, nil
}
