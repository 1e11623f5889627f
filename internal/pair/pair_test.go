package pair

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairCore/internal/chain"
	"pairCore/internal/events"
	"pairCore/internal/token"
)

const startTime = 1_700_000_000

var (
	pairAddr    = common.HexToAddress("0x00000000000000000000000000000000000000ee")
	token0Addr  = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	token1Addr  = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	factoryAddr = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	alice       = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob         = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

type harness struct {
	sim      *chain.Sim
	pair     *Pair
	token0   *token.Mock
	token1   *token.Mock
	recorder *events.Recorder
}

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func newHarnessAt(t *testing.T, timestamp uint64) *harness {
	t.Helper()
	sim := chain.NewSim(31337, timestamp, nil)
	token0, err := token.NewMock(sim.Journal())
	require.NoError(t, err)
	token1, err := token.NewMock(sim.Journal())
	require.NoError(t, err)
	sim.Deploy(token0Addr, token0)
	sim.Deploy(token1Addr, token1)

	recorder := events.NewRecorder()
	p, err := New(Config{
		Address: pairAddr,
		ChainID: sim.ChainID(),
		Backend: sim,
		Clock:   sim,
		Journal: sim.Journal(),
		Sink:    recorder,
	})
	require.NoError(t, err)
	require.NoError(t, p.Initialize(factoryAddr, token0Addr, token1Addr))
	return &harness{sim: sim, pair: p, token0: token0, token1: token1, recorder: recorder}
}

func newHarness(t *testing.T) *harness {
	return newHarnessAt(t, startTime)
}

// deposit sends tokens to the pair and mints shares to `to`.
func (h *harness) deposit(t *testing.T, amount0, amount1 uint64, to common.Address) *uint256.Int {
	t.Helper()
	h.token0.Mint(pairAddr, u(amount0))
	h.token1.Mint(pairAddr, u(amount1))
	liquidity, err := h.pair.Mint(context.Background(), alice, to)
	require.NoError(t, err)
	return liquidity
}

func (h *harness) requireReserves(t *testing.T, want0, want1 uint64) {
	t.Helper()
	r0, r1 := h.pair.GetReserves()
	require.Equal(t, want0, r0.Uint64(), "reserve0")
	require.Equal(t, want1, r1.Uint64(), "reserve1")
}

func (h *harness) requireConservation(t *testing.T) {
	t.Helper()
	sum := new(uint256.Int)
	for _, bal := range h.pair.ShareBalances() {
		sum.Add(sum, bal)
	}
	require.Equal(t, h.pair.TotalSupply().Uint64(), sum.Uint64())
}

func TestInitializeOnce(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, factoryAddr, h.pair.Factory())
	require.Equal(t, token0Addr, h.pair.Token0())
	require.Equal(t, token1Addr, h.pair.Token1())

	err := h.pair.Initialize(alice, token1Addr, token0Addr)
	require.ErrorIs(t, err, ErrAlreadyInitialized)
	require.Equal(t, factoryAddr, h.pair.Factory())
	require.Equal(t, token0Addr, h.pair.Token0())
}

func TestOperationsBeforeInitialize(t *testing.T) {
	sim := chain.NewSim(1, startTime, nil)
	p, err := New(Config{Address: pairAddr, Backend: sim, Clock: sim})
	require.NoError(t, err)

	_, err = p.Mint(context.Background(), alice, alice)
	require.ErrorIs(t, err, ErrNotInitialized)
	require.ErrorIs(t, p.Sync(context.Background()), ErrNotInitialized)
}

func TestFirstDepositLocksMinimumLiquidity(t *testing.T) {
	h := newHarness(t)

	liquidity := h.deposit(t, 2000, 8000, alice)
	require.Equal(t, uint64(3000), liquidity.Uint64())
	require.Equal(t, uint64(4000), h.pair.TotalSupply().Uint64())
	require.Equal(t, uint64(1000), h.pair.BalanceOf(common.Address{}).Uint64())
	require.Equal(t, uint64(3000), h.pair.BalanceOf(alice).Uint64())
	h.requireReserves(t, 2000, 8000)
	require.Equal(t, uint32(startTime), h.pair.BlockTimestampLast())
	h.requireConservation(t)

	require.Equal(t,
		[]string{events.NameTransfer, events.NameTransfer, events.NameSync, events.NameMint},
		h.recorder.Names())
	mint := h.recorder.Entries()[3].Record.(events.Mint)
	require.Equal(t, alice, mint.Sender)
	require.Equal(t, uint64(2000), mint.Amount0.Uint64())
	require.Equal(t, uint64(8000), mint.Amount1.Uint64())
}

func TestFirstDepositTooSmall(t *testing.T) {
	h := newHarness(t)
	h.token0.Mint(pairAddr, u(999))
	h.token1.Mint(pairAddr, u(1000))

	_, err := h.pair.Mint(context.Background(), alice, alice)
	require.ErrorIs(t, err, ErrUnderflow)
	require.True(t, h.pair.TotalSupply().IsZero())
	require.Empty(t, h.recorder.Names())

	h.token0.Mint(pairAddr, u(1))
	_, err = h.pair.Mint(context.Background(), alice, alice)
	require.ErrorIs(t, err, ErrZeroLiquidity)
	require.True(t, h.pair.BalanceOf(common.Address{}).IsZero())
}

func TestProRataMint(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 2000, 8000, alice)

	liquidity := h.deposit(t, 1000, 5000, bob)
	require.Equal(t, uint64(2000), liquidity.Uint64())
	require.Equal(t, uint64(6000), h.pair.TotalSupply().Uint64())
	h.requireReserves(t, 3000, 13000)
	h.requireConservation(t)
}

func TestMintWithoutDepositFails(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 2000, 8000, alice)

	_, err := h.pair.Mint(context.Background(), alice, alice)
	require.ErrorIs(t, err, ErrZeroLiquidity)
}

func TestMintBurnRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.deposit(t, 2000, 8000, alice)

	liquidity := h.deposit(t, 1000, 4000, bob)
	require.Equal(t, uint64(2000), liquidity.Uint64())

	require.NoError(t, h.pair.Transfer(bob, pairAddr, liquidity))
	amount0, amount1, err := h.pair.Burn(ctx, bob, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), amount0.Uint64())
	require.Equal(t, uint64(4000), amount1.Uint64())
	require.Equal(t, uint64(1000), h.token0.Balance(bob).Uint64())
	require.Equal(t, uint64(4000), h.token1.Balance(bob).Uint64())
	require.True(t, h.pair.BalanceOf(bob).IsZero())
	require.True(t, h.pair.BalanceOf(pairAddr).IsZero())
	h.requireReserves(t, 2000, 8000)
	h.requireConservation(t)

	names := h.recorder.Names()
	require.Equal(t, events.NameBurn, names[len(names)-1])
	require.Equal(t, events.NameSync, names[len(names)-2])
}

func TestProRataBurn(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 2000, 8000, alice)

	// a donation raises the balances backing every share
	h.token0.Mint(pairAddr, u(400))
	require.NoError(t, h.pair.Transfer(alice, pairAddr, u(1000)))
	amount0, amount1, err := h.pair.Burn(context.Background(), alice, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(1000*2400/4000), amount0.Uint64())
	require.Equal(t, uint64(1000*8000/4000), amount1.Uint64())
	h.requireReserves(t, 1800, 6000)
}

func TestBurnWithoutSharesFails(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 2000, 8000, alice)

	_, _, err := h.pair.Burn(context.Background(), alice, alice)
	require.ErrorIs(t, err, ErrInsufficientLiquidityBurned)
}

func TestSwapRequiresBothOutputs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.deposit(t, 1_000_000, 1_000_000, alice)
	h.recorder.Drain()

	err := h.pair.Swap(ctx, alice, u(0), u(100), bob, nil)
	require.ErrorIs(t, err, ErrInsufficientOutputAmount)
	err = h.pair.Swap(ctx, alice, u(100), u(0), bob, nil)
	require.ErrorIs(t, err, ErrInsufficientOutputAmount)
	require.Empty(t, h.recorder.Names())
}

func TestSwapRejectsDrainingReserve(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)

	err := h.pair.Swap(context.Background(), alice, u(1), u(1_000_000), bob, nil)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestSwapRequiresInput(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)

	err := h.pair.Swap(context.Background(), alice, u(1), u(1), bob, nil)
	require.ErrorIs(t, err, ErrInsufficientInputAmount)
	require.True(t, h.token0.Balance(bob).IsZero())
	h.requireReserves(t, 1_000_000, 1_000_000)
}

func TestSwapKeepsInvariant(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)
	h.recorder.Drain()

	h.token0.Mint(pairAddr, u(10_000))
	err := h.pair.Swap(context.Background(), alice, u(1), u(1000), bob, nil)
	require.NoError(t, err)

	h.requireReserves(t, 1_009_999, 999_000)
	require.Equal(t, uint64(1), h.token0.Balance(bob).Uint64())
	require.Equal(t, uint64(1000), h.token1.Balance(bob).Uint64())

	r0, r1 := h.pair.GetReserves()
	kAfter := new(uint256.Int).Mul(r0, r1)
	require.True(t, kAfter.Gt(u(1_000_000*1_000_000)))

	require.Equal(t, []string{events.NameSync, events.NameSwap}, h.recorder.Names())
	swap := h.recorder.Entries()[1].Record.(events.Swap)
	require.Equal(t, uint64(10_000), swap.Amount0In.Uint64())
	require.True(t, swap.Amount1In.IsZero())
	require.Equal(t, bob, swap.To)
}

func TestSwapKInvariantViolationRollsBack(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)
	h.recorder.Drain()

	h.token0.Mint(pairAddr, u(1001))
	err := h.pair.Swap(context.Background(), alice, u(1), u(1000), bob, nil)
	require.ErrorIs(t, err, ErrKInvariant)

	require.True(t, h.token0.Balance(bob).IsZero())
	require.True(t, h.token1.Balance(bob).IsZero())
	h.requireReserves(t, 1_000_000, 1_000_000)
	require.Equal(t, uint64(1_001_001), h.token0.Balance(pairAddr).Uint64())
	require.Empty(t, h.recorder.Names())
}

func TestFlashSwapCallback(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.deposit(t, 1_000_000, 1_000_000, alice)

	borrower := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	h.token0.Mint(borrower, u(10_000))

	var gotData []byte
	h.sim.Deploy(borrower, chain.ContractFunc(func(ctx context.Context, caller common.Address, input []byte) ([]byte, error) {
		require.Equal(t, pairAddr, caller)
		gotData = input
		// borrowed token1 arrived before the callback
		require.Equal(t, uint64(1000), h.token1.Balance(borrower).Uint64())
		_, err := h.token0.Move(borrower, pairAddr, u(10_000))
		return nil, err
	}))

	err := h.pair.Swap(ctx, alice, u(1), u(1000), borrower, []byte("repay"))
	require.NoError(t, err)
	require.Equal(t, []byte("repay"), gotData)
	h.requireReserves(t, 1_009_999, 999_000)
}

func TestSwapCallbackReceivesRawData(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)

	borrower := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	h.token0.Mint(borrower, u(10_000))

	var gotCaller common.Address
	var gotInput []byte
	h.sim.Deploy(borrower, chain.ContractFunc(func(_ context.Context, caller common.Address, input []byte) ([]byte, error) {
		gotCaller = caller
		gotInput = append([]byte(nil), input...)
		_, err := h.token0.Move(borrower, pairAddr, u(10_000))
		return nil, err
	}))

	data := []byte{0xde, 0xad, 0xbe, 0xef}
	require.NoError(t, h.pair.Swap(context.Background(), alice, u(1), u(1000), borrower, data))
	require.Equal(t, pairAddr, gotCaller)
	require.Equal(t, data, gotInput)
}

func TestFlashSwapWithoutRepaymentRollsBack(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)
	h.recorder.Drain()

	borrower := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	h.sim.Deploy(borrower, chain.ContractFunc(func(ctx context.Context, _ common.Address, _ []byte) ([]byte, error) {
		// re-enter and commit a sync inside the outer swap
		return nil, h.pair.Sync(ctx)
	}))

	err := h.pair.Swap(context.Background(), alice, u(1), u(1000), borrower, []byte{0x01})
	require.ErrorIs(t, err, ErrInsufficientInputAmount)
	require.True(t, h.token1.Balance(borrower).IsZero())
	h.requireReserves(t, 1_000_000, 1_000_000)
	require.Empty(t, h.recorder.Names())
}

func TestSwapCallbackFailurePropagates(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 1_000_000, 1_000_000, alice)

	borrower := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	h.sim.Deploy(borrower, chain.ContractFunc(func(context.Context, common.Address, []byte) ([]byte, error) {
		return nil, errBorrower
	}))

	err := h.pair.Swap(context.Background(), alice, u(1), u(1000), borrower, []byte{0x01})
	require.ErrorIs(t, err, errBorrower)
	require.True(t, h.token1.Balance(borrower).IsZero())
}

func TestSkimAndSync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.deposit(t, 2000, 8000, alice)

	h.token0.Mint(pairAddr, u(50))
	h.token1.Mint(pairAddr, u(70))
	require.NoError(t, h.pair.Skim(ctx, bob))
	require.Equal(t, uint64(50), h.token0.Balance(bob).Uint64())
	require.Equal(t, uint64(70), h.token1.Balance(bob).Uint64())
	h.requireReserves(t, 2000, 8000)

	h.token0.Mint(pairAddr, u(5))
	require.NoError(t, h.pair.Sync(ctx))
	h.requireReserves(t, 2005, 8000)
}

func TestReserveOverflow(t *testing.T) {
	h := newHarness(t)
	big112 := new(uint256.Int).Lsh(u(1), 112)
	h.token0.Mint(pairAddr, big112)
	h.token1.Mint(pairAddr, u(1_000_000))

	_, err := h.pair.Mint(context.Background(), alice, alice)
	require.ErrorIs(t, err, ErrOverflow)
	require.True(t, h.pair.TotalSupply().IsZero())
	require.Empty(t, h.recorder.Names())
}

func TestPriceAccumulators(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.deposit(t, 2000, 8000, alice)
	require.True(t, h.pair.Price0CumulativeLast().IsZero())

	// same block: nothing accrues
	require.NoError(t, h.pair.Sync(ctx))
	require.True(t, h.pair.Price0CumulativeLast().IsZero())

	h.sim.Advance(10)
	require.NoError(t, h.pair.Sync(ctx))

	q112 := new(uint256.Int).Lsh(u(1), 112)
	want0 := new(uint256.Int).Mul(q112, u(40))
	want1 := new(uint256.Int).Mul(new(uint256.Int).Lsh(u(1), 110), u(10))
	require.Equal(t, want0, h.pair.Price0CumulativeLast())
	require.Equal(t, want1, h.pair.Price1CumulativeLast())
	require.Equal(t, uint32(startTime+10), h.pair.BlockTimestampLast())
}

func TestPriceAccumulatorTimestampWraps(t *testing.T) {
	h := newHarnessAt(t, 1<<32-5)
	ctx := context.Background()
	h.deposit(t, 2000, 8000, alice)

	h.sim.Advance(10)
	require.NoError(t, h.pair.Sync(ctx))
	require.Equal(t, uint32(5), h.pair.BlockTimestampLast())

	want0 := new(uint256.Int).Mul(new(uint256.Int).Lsh(u(1), 112), u(40))
	require.Equal(t, want0, h.pair.Price0CumulativeLast())
}

func TestShareLedgerDelegation(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 2000, 8000, alice)

	require.NoError(t, h.pair.Approve(alice, bob, u(500)))
	require.Equal(t, uint64(500), h.pair.Allowance(alice, bob).Uint64())

	require.NoError(t, h.pair.TransferFrom(bob, alice, bob, u(200)))
	require.Equal(t, uint64(300), h.pair.Allowance(alice, bob).Uint64())
	require.Equal(t, uint64(200), h.pair.BalanceOf(bob).Uint64())

	err := h.pair.TransferFrom(bob, alice, bob, u(301))
	require.ErrorIs(t, err, ErrInsufficientAllowance)
	require.Equal(t, uint64(300), h.pair.Allowance(alice, bob).Uint64())

	err = h.pair.Transfer(bob, alice, u(201))
	require.ErrorIs(t, err, ErrInsufficientBalance)

	// intentionally permissive: the zero address is a valid destination
	require.NoError(t, h.pair.Transfer(bob, common.Address{}, u(200)))
	require.Equal(t, uint64(1200), h.pair.BalanceOf(common.Address{}).Uint64())
	h.requireConservation(t)
}

func TestConservationAcrossOperations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.deposit(t, 50_000, 80_000, alice)
	h.deposit(t, 10_000, 16_000, bob)
	require.NoError(t, h.pair.Transfer(alice, bob, u(7_000)))
	require.NoError(t, h.pair.Transfer(bob, pairAddr, u(9_000)))
	_, _, err := h.pair.Burn(ctx, bob, bob)
	require.NoError(t, err)
	h.deposit(t, 3_000, 4_800, alice)
	h.requireConservation(t)
}

func TestSafeTransferReturnData(t *testing.T) {
	require.True(t, transferSucceeded(nil))
	require.True(t, transferSucceeded(common.LeftPadBytes([]byte{1}, 32)))
	require.False(t, transferSucceeded(make([]byte, 31)))
	require.False(t, transferSucceeded(make([]byte, 32)))
	require.False(t, transferSucceeded(common.LeftPadBytes([]byte{2}, 32)))
	require.False(t, transferSucceeded(common.LeftPadBytes([]byte{1}, 33)))
}

func TestBurnWithNonStandardTokens(t *testing.T) {
	cases := []struct {
		mode token.ReturnMode
		err  error
	}{
		{token.ReturnStandard, nil},
		{token.ReturnNone, nil},
		{token.ReturnShort, ErrTransferFailed},
		{token.ReturnFalse, ErrTransferFailed},
	}
	for _, tc := range cases {
		h := newHarness(t)
		h.deposit(t, 2000, 8000, alice)
		h.token1.SetReturnMode(tc.mode)
		require.NoError(t, h.pair.Transfer(alice, pairAddr, u(3000)))

		_, _, err := h.pair.Burn(context.Background(), alice, alice)
		if tc.err == nil {
			require.NoError(t, err)
			require.Equal(t, uint64(6000), h.token1.Balance(alice).Uint64())
			continue
		}
		require.ErrorIs(t, err, tc.err)
		require.Equal(t, uint64(3000), h.pair.BalanceOf(pairAddr).Uint64())
		require.Equal(t, uint64(4000), h.pair.TotalSupply().Uint64())
		require.True(t, h.token0.Balance(alice).IsZero())
		h.requireReserves(t, 2000, 8000)
	}
}

func TestFeeOnTransferTokenSkim(t *testing.T) {
	h := newHarness(t)
	h.deposit(t, 2000, 8000, alice)
	require.NoError(t, h.token0.SetTransferFee(100))

	h.token0.Mint(pairAddr, u(1000))
	require.NoError(t, h.pair.Skim(context.Background(), bob))
	require.Equal(t, uint64(990), h.token0.Balance(bob).Uint64())
	h.requireReserves(t, 2000, 8000)
}
