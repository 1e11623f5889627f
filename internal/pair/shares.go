package pair

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// The share ledger is owned by the pair; these delegate to it with the same
// rollback and event handling as the pool operations.

func (p *Pair) TotalSupply() *uint256.Int {
	return p.shares.TotalSupply()
}

func (p *Pair) BalanceOf(account common.Address) *uint256.Int {
	return p.shares.BalanceOf(account)
}

func (p *Pair) Allowance(owner, spender common.Address) *uint256.Int {
	return p.shares.Allowance(owner, spender)
}

func (p *Pair) Approve(owner, spender common.Address, value *uint256.Int) error {
	return p.atomic("approve", func() error {
		p.shares.Approve(owner, spender, value)
		return nil
	})
}

// Transfer moves shares. The destination is not validated: shares sent to
// the zero address or the pair itself stay there.
func (p *Pair) Transfer(from, to common.Address, value *uint256.Int) error {
	return p.atomic("transfer", func() error {
		return p.shares.Transfer(from, to, value)
	})
}

func (p *Pair) TransferFrom(spender, from, to common.Address, value *uint256.Int) error {
	return p.atomic("transferFrom", func() error {
		return p.shares.TransferFrom(spender, from, to, value)
	})
}
