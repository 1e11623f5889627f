// Package ledger implements the fungible share ledger backing pair liquidity.
package ledger

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/events"
	"pairCore/internal/journal"
	"pairCore/internal/mathutil"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Ledger tracks share balances and allowances. Every mutation is recorded in
// the journal so a caller can roll back a failed operation.
type Ledger struct {
	journal     *journal.Journal
	emit        func(events.Record)
	totalSupply *uint256.Int
	balances    map[common.Address]*uint256.Int
	allowances  map[common.Address]map[common.Address]*uint256.Int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal shares an undo journal with the owner of the ledger.
func WithJournal(j *journal.Journal) Option {
	return func(l *Ledger) {
		if j != nil {
			l.journal = j
		}
	}
}

// WithEmitter sets the func receiving Transfer and Approval records.
func WithEmitter(emit func(events.Record)) Option {
	return func(l *Ledger) {
		if emit != nil {
			l.emit = emit
		}
	}
}

// New returns an empty ledger. Without WithJournal it records undo entries
// in a journal of its own.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		journal:     journal.New(),
		emit:        func(events.Record) {},
		totalSupply: new(uint256.Int),
		balances:    make(map[common.Address]*uint256.Int),
		allowances:  make(map[common.Address]map[common.Address]*uint256.Int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) TotalSupply() *uint256.Int {
	return l.totalSupply.Clone()
}

func (l *Ledger) BalanceOf(account common.Address) *uint256.Int {
	if bal, ok := l.balances[account]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	if bal, ok := l.allowances[owner][spender]; ok {
		return bal.Clone()
	}
	return new(uint256.Int)
}

// Balances returns a copy of every non-zero balance.
func (l *Ledger) Balances() map[common.Address]*uint256.Int {
	out := make(map[common.Address]*uint256.Int, len(l.balances))
	for account, bal := range l.balances {
		if bal.IsZero() {
			continue
		}
		out[account] = bal.Clone()
	}
	return out
}

// Approve overwrites the allowance of spender over owner's shares.
func (l *Ledger) Approve(owner, spender common.Address, value *uint256.Int) {
	l.setAllowance(owner, spender, value.Clone())
	l.emit(events.Approval{Owner: owner, Spender: spender, Value: value.Clone()})
}

// Transfer moves value shares from one account to another. The destination
// is not checked, so shares sent to the zero address are simply held there.
func (l *Ledger) Transfer(from, to common.Address, value *uint256.Int) error {
	fromBal := l.BalanceOf(from)
	if fromBal.Lt(value) {
		return fmt.Errorf("transfer %s from %s: %w", mathutil.String(value), from.Hex(), ErrInsufficientBalance)
	}
	l.setBalance(from, new(uint256.Int).Sub(fromBal, value))
	toBal := l.BalanceOf(to)
	l.setBalance(to, new(uint256.Int).Add(toBal, value))
	l.emit(events.Transfer{From: from, To: to, Value: value.Clone()})
	return nil
}

// TransferFrom spends spender's allowance over from. There is no unlimited
// allowance value: the allowance is always decremented.
func (l *Ledger) TransferFrom(spender, from, to common.Address, value *uint256.Int) error {
	allowance := l.Allowance(from, spender)
	if allowance.Lt(value) {
		return fmt.Errorf("spender %s over %s: %w", spender.Hex(), from.Hex(), ErrInsufficientAllowance)
	}

	snap := l.journal.Snapshot()
	l.setAllowance(from, spender, new(uint256.Int).Sub(allowance, value))
	if err := l.Transfer(from, to, value); err != nil {
		l.journal.Revert(snap)
		return err
	}
	return nil
}

// Mint creates shares for to. Balances and supply wrap on overflow.
func (l *Ledger) Mint(to common.Address, value *uint256.Int) {
	l.setBalance(to, new(uint256.Int).Add(l.BalanceOf(to), value))
	l.setSupply(new(uint256.Int).Add(l.totalSupply, value))
	l.emit(events.Transfer{From: common.Address{}, To: to, Value: value.Clone()})
}

// Burn destroys shares held by from.
func (l *Ledger) Burn(from common.Address, value *uint256.Int) error {
	bal, err := mathutil.Sub(l.BalanceOf(from), value)
	if err != nil {
		return fmt.Errorf("burn from %s: %w", from.Hex(), err)
	}
	supply, err := mathutil.Sub(l.totalSupply, value)
	if err != nil {
		return fmt.Errorf("burn supply: %w", err)
	}
	l.setBalance(from, bal)
	l.setSupply(supply)
	l.emit(events.Transfer{From: from, To: common.Address{}, Value: value.Clone()})
	return nil
}

func (l *Ledger) setBalance(account common.Address, value *uint256.Int) {
	prev, existed := l.balances[account]
	l.balances[account] = value
	l.journal.Append(func() {
		if existed {
			l.balances[account] = prev
		} else {
			delete(l.balances, account)
		}
	})
}

func (l *Ledger) setAllowance(owner, spender common.Address, value *uint256.Int) {
	inner, ok := l.allowances[owner]
	if !ok {
		inner = make(map[common.Address]*uint256.Int)
		l.allowances[owner] = inner
	}
	prev, existed := inner[spender]
	inner[spender] = value
	l.journal.Append(func() {
		if existed {
			inner[spender] = prev
		} else {
			delete(inner, spender)
		}
	})
}

func (l *Ledger) setSupply(value *uint256.Int) {
	prev := l.totalSupply
	l.totalSupply = value
	l.journal.Append(func() { l.totalSupply = prev })
}
