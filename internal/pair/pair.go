// Package pair implements the reserve pool of a two-asset constant-product
// pair: liquidity shares, swaps and the cumulative price oracle.
package pair

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairCore/internal/chain"
	"pairCore/internal/events"
	"pairCore/internal/journal"
	"pairCore/internal/ledger"
	"pairCore/internal/mathutil"
	"pairCore/internal/model"
	"pairCore/internal/token"
)

// MinimumLiquidity is locked at the zero address on the first deposit.
const MinimumLiquidity = 1000

var minimumLiquidity = uint256.NewInt(MinimumLiquidity)

// Clock supplies the current block timestamp.
type Clock interface {
	Now() uint64
}

// ValueLedger is the external balance ledger of one token.
type ValueLedger interface {
	BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error)
	Transfer(ctx context.Context, from, to common.Address, value *uint256.Int) ([]byte, error)
}

// Config wires a Pair to its host.
type Config struct {
	Address common.Address
	ChainID *big.Int
	// Backend executes token calls and the swap callback.
	Backend chain.Backend
	Clock   Clock
	// Journal is shared with the host so token state reverts together with
	// the pair. A private journal is used when nil; the pair then clears it
	// after every committed outermost operation.
	Journal *journal.Journal
	Sink    events.Sink
	Logger  *zap.Logger
	// NewValueLedger overrides how token addresses become ledgers.
	NewValueLedger func(backend chain.Backend, token common.Address) (ValueLedger, error)
}

// Pair is a single constant-product pool. It is not safe for concurrent use;
// the host runs one call at a time.
type Pair struct {
	address        common.Address
	chainID        *big.Int
	backend        chain.Backend
	clock          Clock
	journal        *journal.Journal
	ownsJournal    bool
	sink           events.Sink
	logger         *zap.Logger
	newValueLedger func(chain.Backend, common.Address) (ValueLedger, error)

	shares *ledger.Ledger

	factory common.Address
	token0  common.Address
	token1  common.Address
	ledger0 ValueLedger
	ledger1 ValueLedger

	reserve0           *uint256.Int
	reserve1           *uint256.Int
	blockTimestampLast uint32

	price0CumulativeLast *uint256.Int
	price1CumulativeLast *uint256.Int
	kLast                *uint256.Int
	feeTo                common.Address

	depth   int
	pending []events.Record
}

// New returns an uninitialized pair wired to cfg.
func New(cfg Config) (*Pair, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	ownsJournal := cfg.Journal == nil
	if ownsJournal {
		cfg.Journal = journal.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Sink == nil {
		cfg.Sink = events.SinkFunc(func(common.Address, events.Record) {})
	}
	if cfg.ChainID == nil {
		cfg.ChainID = new(big.Int)
	}
	if cfg.NewValueLedger == nil {
		cfg.NewValueLedger = func(backend chain.Backend, addr common.Address) (ValueLedger, error) {
			return token.NewERC20(backend, addr)
		}
	}

	p := &Pair{
		address:              cfg.Address,
		chainID:              new(big.Int).Set(cfg.ChainID),
		backend:              cfg.Backend,
		clock:                cfg.Clock,
		journal:              cfg.Journal,
		ownsJournal:          ownsJournal,
		sink:                 cfg.Sink,
		logger:               cfg.Logger.With(zap.String("pair", cfg.Address.Hex())),
		newValueLedger:       cfg.NewValueLedger,
		reserve0:             new(uint256.Int),
		reserve1:             new(uint256.Int),
		price0CumulativeLast: new(uint256.Int),
		price1CumulativeLast: new(uint256.Int),
		kLast:                new(uint256.Int),
	}
	p.shares = ledger.New(ledger.WithJournal(p.journal), ledger.WithEmitter(p.record))
	return p, nil
}

// Initialize records caller as factory and sets the two tokens. token0 is
// expected to sort below token1; the order is not enforced.
func (p *Pair) Initialize(caller, token0, token1 common.Address) error {
	return p.atomic("initialize", func() error {
		if p.factory != (common.Address{}) {
			return ErrAlreadyInitialized
		}
		ledger0, err := p.newValueLedger(p.backend, token0)
		if err != nil {
			return fmt.Errorf("token0 ledger: %w", err)
		}
		ledger1, err := p.newValueLedger(p.backend, token1)
		if err != nil {
			return fmt.Errorf("token1 ledger: %w", err)
		}
		journal.Set(p.journal, &p.factory, caller)
		journal.Set(p.journal, &p.token0, token0)
		journal.Set(p.journal, &p.token1, token1)
		journal.Set(p.journal, &p.ledger0, ledger0)
		journal.Set(p.journal, &p.ledger1, ledger1)
		return nil
	})
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Factory() common.Address { return p.factory }
func (p *Pair) Token0() common.Address  { return p.token0 }
func (p *Pair) Token1() common.Address  { return p.token1 }
func (p *Pair) FeeTo() common.Address   { return p.feeTo }

// GetReserves returns copies of the cached reserves.
func (p *Pair) GetReserves() (*uint256.Int, *uint256.Int) {
	return p.reserve0.Clone(), p.reserve1.Clone()
}

// BlockTimestampLast is the timestamp, mod 2^32, of the last reserve update.
func (p *Pair) BlockTimestampLast() uint32 { return p.blockTimestampLast }

func (p *Pair) Price0CumulativeLast() *uint256.Int { return p.price0CumulativeLast.Clone() }
func (p *Pair) Price1CumulativeLast() *uint256.Int { return p.price1CumulativeLast.Clone() }
func (p *Pair) KLast() *uint256.Int                { return p.kLast.Clone() }

// State snapshots every storage field.
func (p *Pair) State() model.PairState {
	return model.PairState{
		ChainID:              p.chainID.Uint64(),
		Address:              p.address.Hex(),
		Factory:              p.factory.Hex(),
		Token0:               p.token0.Hex(),
		Token1:               p.token1.Hex(),
		Reserve0:             mathutil.String(p.reserve0),
		Reserve1:             mathutil.String(p.reserve1),
		BlockTimestampLast:   p.blockTimestampLast,
		Price0CumulativeLast: mathutil.String(p.price0CumulativeLast),
		Price1CumulativeLast: mathutil.String(p.price1CumulativeLast),
		KLast:                mathutil.String(p.kLast),
		TotalSupply:          mathutil.String(p.shares.TotalSupply()),
	}
}

// ShareBalances returns every non-zero share balance.
func (p *Pair) ShareBalances() map[common.Address]*uint256.Int {
	return p.shares.Balances()
}

func (p *Pair) valueLedgers() (ValueLedger, ValueLedger, error) {
	if p.ledger0 == nil || p.ledger1 == nil {
		return nil, nil, ErrNotInitialized
	}
	return p.ledger0, p.ledger1, nil
}

func (p *Pair) balances(ctx context.Context) (*uint256.Int, *uint256.Int, error) {
	ledger0, ledger1, err := p.valueLedgers()
	if err != nil {
		return nil, nil, err
	}
	balance0, err := ledger0.BalanceOf(ctx, p.address)
	if err != nil {
		return nil, nil, fmt.Errorf("balance0: %w", err)
	}
	balance1, err := ledger1.BalanceOf(ctx, p.address)
	if err != nil {
		return nil, nil, fmt.Errorf("balance1: %w", err)
	}
	return balance0, balance1, nil
}

// atomic runs fn as one all-or-nothing operation. Nested calls (from a swap
// callback re-entering the pair) join the outer operation; records reach the
// sink only when the outermost operation succeeds.
func (p *Pair) atomic(op string, fn func() error) error {
	snap := p.journal.Snapshot()
	p.depth++
	err := func() error {
		defer func() { p.depth-- }()
		return fn()
	}()
	if err != nil {
		p.journal.Revert(snap)
		p.logger.Warn("operation reverted", zap.String("op", op), zap.Int("depth", p.depth), zap.Error(err))
		return err
	}
	p.logger.Debug("operation committed", zap.String("op", op), zap.Int("depth", p.depth))
	if p.depth == 0 {
		p.flush()
		if p.ownsJournal {
			p.journal.Reset()
		}
	}
	return nil
}

func (p *Pair) record(rec events.Record) {
	n := len(p.pending)
	p.pending = append(p.pending, rec)
	p.journal.Append(func() {
		if len(p.pending) > n {
			p.pending = p.pending[:n]
		}
	})
}

func (p *Pair) flush() {
	pending := p.pending
	p.pending = nil
	for _, rec := range pending {
		p.sink.Emit(p.address, rec)
	}
}
