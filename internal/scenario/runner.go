package scenario

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairCore/internal/chain"
	"pairCore/internal/dex"
	"pairCore/internal/events"
	"pairCore/internal/mathutil"
	"pairCore/internal/model"
	"pairCore/internal/pair"
	"pairCore/internal/token"
)

// Config sets up the simulated chain. Account fields accept anything
// ResolveAccount does and default to their field name.
type Config struct {
	ChainID   uint64
	StartTime uint64
	Pair      string
	Token0    string
	Token1    string
	Factory   string
	// Sink also receives every committed record.
	Sink   events.Sink
	Logger *zap.Logger
}

// OpResult reports the outcome of one op.
type OpResult struct {
	Index  int               `json:"index"`
	Op     string            `json:"op"`
	Block  uint64            `json:"block"`
	Error  string            `json:"error,omitempty"`
	Output map[string]string `json:"output,omitempty"`
}

// Result is the outcome of a run.
type Result struct {
	Ops    []OpResult        `json:"ops"`
	Logs   []model.LogRecord `json:"-"`
	Pair   model.Pair        `json:"pair"`
	State  model.PairState   `json:"state"`
	Shares map[string]string `json:"shares"`
}

// Runner executes ops against one pair. Every op is its own transaction.
type Runner struct {
	chainID  uint64
	sim      *chain.Sim
	pair     *pair.Pair
	pairAddr common.Address
	factory  common.Address
	mocks    [2]*token.Mock
	erc20s   [2]*token.ERC20
	logger   *zap.Logger

	logs      []model.LogRecord
	txIndex   uint
	logIndex  uint
	logBlock  uint64
	encodeErr error
}

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = 31337
	}
	names := map[string]*string{"pair": &cfg.Pair, "token0": &cfg.Token0, "token1": &cfg.Token1, "factory": &cfg.Factory}
	addrs := make(map[string]common.Address, len(names))
	for name, value := range names {
		if *value == "" {
			*value = name
		}
		addr, err := ResolveAccount(*value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		addrs[name] = addr
	}

	r := &Runner{
		chainID:  cfg.ChainID,
		sim:      chain.NewSim(cfg.ChainID, cfg.StartTime, cfg.Logger),
		pairAddr: addrs["pair"],
		factory:  addrs["factory"],
		logger:   cfg.Logger,
	}

	for i, name := range []string{"token0", "token1"} {
		mock, err := token.NewMock(r.sim.Journal())
		if err != nil {
			return nil, err
		}
		r.sim.Deploy(addrs[name], mock)
		erc20, err := token.NewERC20(r.sim, addrs[name])
		if err != nil {
			return nil, err
		}
		r.mocks[i] = mock
		r.erc20s[i] = erc20
	}

	p, err := pair.New(pair.Config{
		Address: r.pairAddr,
		ChainID: r.sim.ChainID(),
		Backend: r.sim,
		Clock:   r.sim,
		Journal: r.sim.Journal(),
		Sink:    events.Fanout{events.SinkFunc(r.emit), cfg.Sink},
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	r.pair = p
	r.sim.Deploy(r.pairAddr, p)
	if err := r.sim.Transact(func() error {
		return p.Initialize(r.factory, addrs["token0"], addrs["token1"])
	}); err != nil {
		return nil, fmt.Errorf("initialize pair: %w", err)
	}
	return r, nil
}

func (r *Runner) Pair() *pair.Pair { return r.pair }
func (r *Runner) Sim() *chain.Sim  { return r.sim }

// Token returns the simulated token at index 0 or 1.
func (r *Runner) Token(i int) *token.Mock { return r.mocks[i] }

// Run applies ops in order. An op failing without expect_error, or an op
// with expect_error that succeeds or fails differently, stops the run.
func (r *Runner) Run(ctx context.Context, ops []Op) (*Result, error) {
	result := &Result{}
	for i, op := range ops {
		var output map[string]string
		err := r.sim.Transact(func() error {
			var err error
			output, err = r.apply(ctx, op)
			return err
		})
		if r.encodeErr != nil {
			return nil, fmt.Errorf("encode log: %w", r.encodeErr)
		}

		res := OpResult{Index: i, Op: op.Op, Block: r.sim.BlockNumber(), Output: output}
		if err != nil {
			res.Error = err.Error()
			r.logger.Debug("op failed", zap.Int("index", i), zap.String("op", op.Op), zap.Error(err))
		}
		result.Ops = append(result.Ops, res)

		switch {
		case op.ExpectError == "" && err != nil:
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Op, err)
		case op.ExpectError != "" && err == nil:
			return nil, fmt.Errorf("op %d (%s): expected error %q", i, op.Op, op.ExpectError)
		case op.ExpectError != "" && !strings.Contains(err.Error(), op.ExpectError):
			return nil, fmt.Errorf("op %d (%s): expected error %q, got %w", i, op.Op, op.ExpectError, err)
		}
		r.txIndex++
	}

	result.Logs = r.logs
	result.State = r.pair.State()
	result.State.BlockNumber = r.sim.BlockNumber()
	result.Pair = model.Pair{
		ChainID:        r.chainID,
		Address:        r.pairAddr.Hex(),
		Token0:         r.pair.Token0().Hex(),
		Token1:         r.pair.Token1().Hex(),
		FirstSeenBlock: 1,
	}
	result.Shares = make(map[string]string)
	for account, bal := range r.pair.ShareBalances() {
		result.Shares[account.Hex()] = mathutil.String(bal)
	}
	return result, nil
}

func (r *Runner) apply(ctx context.Context, op Op) (map[string]string, error) {
	switch op.Op {
	case OpFund:
		to, amount, err := r.accountAmount(op.To, op.Amount)
		if err != nil {
			return nil, err
		}
		r.mocks[op.Token].Mint(to, amount)
		return nil, nil
	case OpTokenSend:
		from, err := ResolveAccount(op.From)
		if err != nil {
			return nil, err
		}
		to, amount, err := r.accountAmount(op.To, op.Amount)
		if err != nil {
			return nil, err
		}
		ret, err := r.erc20s[op.Token].Transfer(ctx, from, to, amount)
		if err != nil {
			return nil, err
		}
		return map[string]string{"return": hexutil.Encode(ret)}, nil
	case OpTokenMode:
		mode, err := token.ParseReturnMode(op.Mode)
		if err != nil {
			return nil, err
		}
		r.mocks[op.Token].SetReturnMode(mode)
		return nil, r.mocks[op.Token].SetTransferFee(op.FeeBps)
	case OpBorrower:
		return nil, r.deployBorrower(op)
	case OpAdvance:
		if op.Timestamp != 0 {
			return nil, r.sim.SetTime(op.Timestamp)
		}
		r.sim.Advance(op.Seconds)
		return nil, nil
	case OpMint:
		sender, to, err := r.senderTo(op)
		if err != nil {
			return nil, err
		}
		liquidity, err := r.pair.Mint(ctx, sender, to)
		if err != nil {
			return nil, err
		}
		return map[string]string{"liquidity": mathutil.String(liquidity)}, nil
	case OpBurn:
		sender, to, err := r.senderTo(op)
		if err != nil {
			return nil, err
		}
		amount0, amount1, err := r.pair.Burn(ctx, sender, to)
		if err != nil {
			return nil, err
		}
		return map[string]string{"amount0": mathutil.String(amount0), "amount1": mathutil.String(amount1)}, nil
	case OpSwap:
		sender, to, err := r.senderTo(op)
		if err != nil {
			return nil, err
		}
		amount0Out, err := parseAmount(op.Amount0)
		if err != nil {
			return nil, fmt.Errorf("amount0: %w", err)
		}
		amount1Out, err := parseAmount(op.Amount1)
		if err != nil {
			return nil, fmt.Errorf("amount1: %w", err)
		}
		var data []byte
		if op.Data != "" {
			if data, err = hexutil.Decode(op.Data); err != nil {
				return nil, fmt.Errorf("data: %w", err)
			}
		}
		return nil, r.pair.Swap(ctx, sender, amount0Out, amount1Out, to, data)
	case OpSkim:
		to, err := ResolveAccount(op.To)
		if err != nil {
			return nil, err
		}
		return nil, r.pair.Skim(ctx, to)
	case OpSync:
		return nil, r.pair.Sync(ctx)
	case OpApprove:
		owner, err := ResolveAccount(op.Caller)
		if err != nil {
			return nil, err
		}
		spender, amount, err := r.accountAmount(op.To, op.Amount)
		if err != nil {
			return nil, err
		}
		return nil, r.pair.Approve(owner, spender, amount)
	case OpTransfer:
		from, err := ResolveAccount(op.Caller)
		if err != nil {
			return nil, err
		}
		to, amount, err := r.accountAmount(op.To, op.Amount)
		if err != nil {
			return nil, err
		}
		return nil, r.pair.Transfer(from, to, amount)
	case OpTransferFrom:
		spender, err := ResolveAccount(op.Caller)
		if err != nil {
			return nil, err
		}
		from, err := ResolveAccount(op.From)
		if err != nil {
			return nil, err
		}
		to, amount, err := r.accountAmount(op.To, op.Amount)
		if err != nil {
			return nil, err
		}
		return nil, r.pair.TransferFrom(spender, from, to, amount)
	case OpSetFeeTo:
		caller, feeTo, err := r.senderTo(op)
		if err != nil {
			return nil, err
		}
		return nil, r.pair.SetFeeTo(caller, feeTo)
	default:
		return nil, fmt.Errorf("unknown op %q", op.Op)
	}
}

func (r *Runner) deployBorrower(op Op) error {
	self, err := ResolveAccount(op.To)
	if err != nil {
		return err
	}
	repay0, err := parseAmount(op.Amount0)
	if err != nil {
		return fmt.Errorf("amount0: %w", err)
	}
	repay1, err := parseAmount(op.Amount1)
	if err != nil {
		return fmt.Errorf("amount1: %w", err)
	}
	r.sim.Deploy(self, &Borrower{
		self:   self,
		pair:   r.pairAddr,
		tokens: r.mocks,
		repay:  [2]*uint256.Int{repay0, repay1},
	})
	return nil
}

// emit turns committed records into log records positioned in the current
// block and transaction.
func (r *Runner) emit(emitter common.Address, record events.Record) {
	log, err := dex.EncodeLog(emitter, record)
	if err != nil {
		if r.encodeErr == nil {
			r.encodeErr = err
		}
		return
	}
	block := r.sim.BlockNumber()
	if block != r.logBlock {
		r.logBlock = block
		r.logIndex = 0
	}
	log.BlockNumber = block
	log.BlockHash = crypto.Keccak256Hash([]byte(fmt.Sprintf("block-%d", block)))
	log.TxHash = crypto.Keccak256Hash([]byte(fmt.Sprintf("tx-%d", r.txIndex)))
	log.TxIndex = r.txIndex
	log.Index = r.logIndex
	r.logIndex++
	r.logs = append(r.logs, model.NewLogRecord(r.chainID, log, r.sim.Now(), time.Time{}))
}

func (r *Runner) senderTo(op Op) (common.Address, common.Address, error) {
	sender, err := ResolveAccount(op.Caller)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("caller: %w", err)
	}
	to, err := ResolveAccount(op.To)
	if err != nil {
		return common.Address{}, common.Address{}, fmt.Errorf("to: %w", err)
	}
	return sender, to, nil
}

func (r *Runner) accountAmount(account, amount string) (common.Address, *uint256.Int, error) {
	addr, err := ResolveAccount(account)
	if err != nil {
		return common.Address{}, nil, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, value, nil
}

func parseAmount(input string) (*uint256.Int, error) {
	if input == "" {
		return new(uint256.Int), nil
	}
	return mathutil.Parse(input)
}
