package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"pairCore/internal/journal"
)

const maxCallDepth = 1024

var (
	ErrNoRecipient = errors.New("call without recipient")
	ErrCallDepth   = errors.New("max call depth exceeded")
)

// Sim is an in-process, single-threaded chain host. Each call runs in its own
// frame: when the callee fails, every journaled mutation made inside the
// frame is reverted.
type Sim struct {
	chainID   *big.Int
	journal   *journal.Journal
	contracts map[common.Address]Contract
	number    uint64
	timestamp uint64
	depth     int
	logger    *zap.Logger
}

// NewSim creates a simulator at block 1 with the given timestamp.
func NewSim(chainID uint64, timestamp uint64, logger *zap.Logger) *Sim {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sim{
		chainID:   new(big.Int).SetUint64(chainID),
		journal:   journal.New(),
		contracts: make(map[common.Address]Contract),
		number:    1,
		timestamp: timestamp,
		logger:    logger,
	}
}

// Journal returns the undo journal shared by simulated state.
func (s *Sim) Journal() *journal.Journal {
	return s.journal
}

// Deploy registers code at addr, replacing any previous code.
func (s *Sim) Deploy(addr common.Address, contract Contract) {
	s.contracts[addr] = contract
}

// Code returns the contract deployed at addr.
func (s *Sim) Code(addr common.Address) (Contract, bool) {
	c, ok := s.contracts[addr]
	return c, ok
}

// CallContract dispatches msg to the contract at msg.To. Calls to addresses
// without code succeed with empty return data.
func (s *Sim) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contract, ok := s.contracts[*msg.To]
	if !ok {
		return nil, nil
	}
	if s.depth >= maxCallDepth {
		return nil, ErrCallDepth
	}

	s.depth++
	defer func() { s.depth-- }()

	snap := s.journal.Snapshot()
	ret, err := contract.Call(ctx, msg.From, msg.Data)
	if err != nil {
		s.journal.Revert(snap)
		s.logger.Debug("call reverted",
			zap.String("from", msg.From.Hex()),
			zap.String("to", msg.To.Hex()),
			zap.Error(err),
		)
		return nil, err
	}
	return ret, nil
}

// Transact runs fn as a top-level transaction: a failure reverts everything
// fn changed, success commits the journal.
func (s *Sim) Transact(fn func() error) error {
	snap := s.journal.Snapshot()
	if err := fn(); err != nil {
		s.journal.Revert(snap)
		return err
	}
	if s.depth == 0 && snap == 0 {
		s.journal.Reset()
	}
	return nil
}

// Now returns the current block timestamp.
func (s *Sim) Now() uint64 {
	return s.timestamp
}

// BlockNumber returns the current block number.
func (s *Sim) BlockNumber() uint64 {
	return s.number
}

// ChainID returns the configured chain id.
func (s *Sim) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Advance mines one block, moving the clock forward by seconds.
func (s *Sim) Advance(seconds uint64) {
	s.number++
	s.timestamp += seconds
}

// SetTime mines one block at an explicit timestamp.
func (s *Sim) SetTime(timestamp uint64) error {
	if timestamp < s.timestamp {
		return fmt.Errorf("timestamp %d before current %d", timestamp, s.timestamp)
	}
	s.number++
	s.timestamp = timestamp
	return nil
}
