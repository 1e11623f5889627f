package token

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/dex"
	"pairCore/internal/journal"
)

// ReturnMode selects what a Mock returns from transfer.
type ReturnMode int

const (
	// ReturnStandard returns an ABI encoded true.
	ReturnStandard ReturnMode = iota
	// ReturnNone returns no data, like tokens predating the standard.
	ReturnNone
	// ReturnFalse leaves balances untouched and returns an encoded false.
	ReturnFalse
	// ReturnShort moves balances and returns 31 bytes.
	ReturnShort
)

var (
	ErrMockInsufficientBalance = errors.New("mock token: transfer amount exceeds balance")
	ErrUnknownSelector         = errors.New("mock token: unknown selector")
)

// ParseReturnMode maps a scenario name to a ReturnMode.
func ParseReturnMode(name string) (ReturnMode, error) {
	switch name {
	case "", "standard":
		return ReturnStandard, nil
	case "none":
		return ReturnNone, nil
	case "false":
		return ReturnFalse, nil
	case "short":
		return ReturnShort, nil
	default:
		return 0, fmt.Errorf("unknown return mode %q", name)
	}
}

// Mock is a simulated token contract. Balance changes are journaled so a
// reverted call frame on the simulator also reverts the token.
type Mock struct {
	abi      abi.ABI
	journal  *journal.Journal
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
	mode     ReturnMode
	// feeBps is burned from every transfer, in basis points.
	feeBps uint64
}

// NewMock returns a token with no balances whose state is journaled in j.
func NewMock(j *journal.Journal) (*Mock, error) {
	parsed, err := dex.ERC20ABI()
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}
	if j == nil {
		j = journal.New()
	}
	return &Mock{
		abi:      parsed,
		journal:  j,
		balances: make(map[common.Address]*uint256.Int),
		supply:   new(uint256.Int),
	}, nil
}

func (m *Mock) SetReturnMode(mode ReturnMode) {
	m.mode = mode
}

// SetTransferFee burns bps/10000 of every transferred amount.
func (m *Mock) SetTransferFee(bps uint64) error {
	if bps > 10_000 {
		return fmt.Errorf("fee %d bps above 100%%", bps)
	}
	m.feeBps = bps
	return nil
}

// Mint credits value to owner outside of any call.
func (m *Mock) Mint(owner common.Address, value *uint256.Int) {
	m.setBalance(owner, new(uint256.Int).Add(m.Balance(owner), value))
	prev := m.supply
	m.supply = new(uint256.Int).Add(prev, value)
	m.journal.Append(func() { m.supply = prev })
}

// Balance reads a balance directly.
func (m *Mock) Balance(owner common.Address) *uint256.Int {
	if bal, ok := m.balances[owner]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Move transfers value between holders, burning the transfer fee if set.
func (m *Mock) Move(from, to common.Address, value *uint256.Int) (bool, error) {
	if m.mode == ReturnFalse {
		return false, nil
	}
	fromBal := m.Balance(from)
	if fromBal.Lt(value) {
		return false, fmt.Errorf("%s has %s: %w", from.Hex(), fromBal.ToBig(), ErrMockInsufficientBalance)
	}
	received := value.Clone()
	if m.feeBps > 0 {
		fee := new(uint256.Int).Mul(value, uint256.NewInt(m.feeBps))
		fee.Div(fee, uint256.NewInt(10_000))
		received.Sub(received, fee)
		prev := m.supply
		m.supply = new(uint256.Int).Sub(prev, fee)
		m.journal.Append(func() { m.supply = prev })
	}
	m.setBalance(from, new(uint256.Int).Sub(fromBal, value))
	m.setBalance(to, new(uint256.Int).Add(m.Balance(to), received))
	return true, nil
}

// Call implements chain.Contract.
func (m *Mock) Call(_ context.Context, caller common.Address, input []byte) ([]byte, error) {
	if len(input) < 4 {
		return nil, ErrUnknownSelector
	}
	method, err := m.abi.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: %x", ErrUnknownSelector, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	switch method.Name {
	case "balanceOf":
		owner, ok := args[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("balanceOf: unexpected arg %T", args[0])
		}
		return method.Outputs.Pack(m.Balance(owner).ToBig())
	case "totalSupply":
		return method.Outputs.Pack(m.supply.ToBig())
	case "transfer":
		to, ok := args[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("transfer: unexpected arg %T", args[0])
		}
		raw, ok := args[1].(*big.Int)
		if !ok {
			return nil, fmt.Errorf("transfer: unexpected arg %T", args[1])
		}
		value, overflow := uint256.FromBig(raw)
		if overflow {
			return nil, fmt.Errorf("transfer: value overflow")
		}
		moved, err := m.Move(caller, to, value)
		if err != nil {
			return nil, err
		}
		return m.transferReturn(method, moved)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSelector, method.Name)
	}
}

func (m *Mock) transferReturn(method *abi.Method, moved bool) ([]byte, error) {
	switch m.mode {
	case ReturnNone:
		return nil, nil
	case ReturnShort:
		return make([]byte, 31), nil
	default:
		return method.Outputs.Pack(moved)
	}
}

func (m *Mock) setBalance(owner common.Address, value *uint256.Int) {
	prev, existed := m.balances[owner]
	m.balances[owner] = value
	m.journal.Append(func() {
		if existed {
			m.balances[owner] = prev
		} else {
			delete(m.balances, owner)
		}
	})
}
