// Package events defines the records emitted by the share ledger and the pair.
package events

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	NameTransfer = "Transfer"
	NameApproval = "Approval"
	NameMint     = "Mint"
	NameBurn     = "Burn"
	NameSwap     = "Swap"
	NameSync     = "Sync"
)

// Record is an emitted event payload.
type Record interface {
	EventName() string
}

// Transfer is emitted on every share movement, including mint (From is zero)
// and burn (To is zero).
type Transfer struct {
	From  common.Address
	To    common.Address
	Value *uint256.Int
}

// Approval is emitted whenever an allowance is overwritten.
type Approval struct {
	Owner   common.Address
	Spender common.Address
	Value   *uint256.Int
}

type Mint struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
}

type Burn struct {
	Sender  common.Address
	Amount0 *uint256.Int
	Amount1 *uint256.Int
	To      common.Address
}

type Swap struct {
	Sender     common.Address
	Amount0In  *uint256.Int
	Amount1In  *uint256.Int
	Amount0Out *uint256.Int
	Amount1Out *uint256.Int
	To         common.Address
}

// Sync carries the reserves after every reserve update.
type Sync struct {
	Reserve0 *uint256.Int
	Reserve1 *uint256.Int
}

func (Transfer) EventName() string { return NameTransfer }
func (Approval) EventName() string { return NameApproval }
func (Mint) EventName() string     { return NameMint }
func (Burn) EventName() string     { return NameBurn }
func (Swap) EventName() string     { return NameSwap }
func (Sync) EventName() string     { return NameSync }

// Sink receives committed records in emission order.
type Sink interface {
	Emit(emitter common.Address, record Record)
}

// SinkFunc adapts a func to Sink.
type SinkFunc func(emitter common.Address, record Record)

func (f SinkFunc) Emit(emitter common.Address, record Record) {
	f(emitter, record)
}

// Entry is a record tagged with its emitter.
type Entry struct {
	Emitter common.Address
	Record  Record
}

// Recorder is an in-memory Sink.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(emitter common.Address, record Record) {
	r.mu.Lock()
	r.entries = append(r.entries, Entry{Emitter: emitter, Record: record})
	r.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Names returns the event names in emission order.
func (r *Recorder) Names() []string {
	entries := r.Entries()
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Record.EventName())
	}
	return names
}

// Drain returns and clears the recorded entries.
func (r *Recorder) Drain() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.entries
	r.entries = nil
	return out
}

// Fanout forwards records to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(emitter common.Address, record Record) {
	for _, sink := range f {
		if sink != nil {
			sink.Emit(emitter, record)
		}
	}
}
