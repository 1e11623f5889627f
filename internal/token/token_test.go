package token

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"pairCore/internal/chain"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice     = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob       = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func deployMock(t *testing.T) (*chain.Sim, *Mock, *ERC20) {
	t.Helper()
	sim := chain.NewSim(31337, 1_700_000_000, nil)
	mock, err := NewMock(sim.Journal())
	require.NoError(t, err)
	sim.Deploy(tokenAddr, mock)
	erc20, err := NewERC20(sim, tokenAddr)
	require.NoError(t, err)
	return sim, mock, erc20
}

func TestERC20BalanceAndTransfer(t *testing.T) {
	_, mock, erc20 := deployMock(t)
	ctx := context.Background()
	mock.Mint(alice, uint256.NewInt(500))

	bal, err := erc20.BalanceOf(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(500), bal.Uint64())

	ret, err := erc20.Transfer(ctx, alice, bob, uint256.NewInt(200))
	require.NoError(t, err)
	require.Len(t, ret, 32)
	require.Equal(t, byte(1), ret[31])

	bal, err = erc20.BalanceOf(ctx, bob)
	require.NoError(t, err)
	require.Equal(t, uint64(200), bal.Uint64())

	supply, err := erc20.TotalSupply(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(500), supply.Uint64())
}

func TestMockReturnModes(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		mode    ReturnMode
		wantLen int
		moved   bool
	}{
		{ReturnStandard, 32, true},
		{ReturnNone, 0, true},
		{ReturnFalse, 32, false},
		{ReturnShort, 31, true},
	}
	for _, tc := range cases {
		_, mock, erc20 := deployMock(t)
		mock.SetReturnMode(tc.mode)
		mock.Mint(alice, uint256.NewInt(10))

		ret, err := erc20.Transfer(ctx, alice, bob, uint256.NewInt(4))
		require.NoError(t, err)
		require.Len(t, ret, tc.wantLen)
		if tc.moved {
			require.Equal(t, uint64(4), mock.Balance(bob).Uint64())
		} else {
			require.True(t, mock.Balance(bob).IsZero())
			require.Equal(t, byte(0), ret[31])
		}
	}
}

func TestMockFailedTransferReverts(t *testing.T) {
	_, mock, erc20 := deployMock(t)
	mock.Mint(alice, uint256.NewInt(3))

	_, err := erc20.Transfer(context.Background(), alice, bob, uint256.NewInt(4))
	require.ErrorIs(t, err, ErrMockInsufficientBalance)
	require.Equal(t, uint64(3), mock.Balance(alice).Uint64())
	require.True(t, mock.Balance(bob).IsZero())
}

func TestMockTransferFee(t *testing.T) {
	_, mock, erc20 := deployMock(t)
	require.NoError(t, mock.SetTransferFee(100))
	require.Error(t, mock.SetTransferFee(10_001))
	mock.Mint(alice, uint256.NewInt(1000))

	_, err := erc20.Transfer(context.Background(), alice, bob, uint256.NewInt(1000))
	require.NoError(t, err)
	require.Equal(t, uint64(990), mock.Balance(bob).Uint64())
	require.True(t, mock.Balance(alice).IsZero())
}

func TestMockRevertWithSimTransaction(t *testing.T) {
	sim, mock, erc20 := deployMock(t)
	mock.Mint(alice, uint256.NewInt(100))
	sim.Journal().Reset()

	err := sim.Transact(func() error {
		if _, err := erc20.Transfer(context.Background(), alice, bob, uint256.NewInt(60)); err != nil {
			return err
		}
		_, err := erc20.Transfer(context.Background(), alice, bob, uint256.NewInt(60))
		return err
	})
	require.ErrorIs(t, err, ErrMockInsufficientBalance)
	require.Equal(t, uint64(100), mock.Balance(alice).Uint64())
	require.True(t, mock.Balance(bob).IsZero())
}

func TestParseReturnMode(t *testing.T) {
	mode, err := ParseReturnMode("short")
	require.NoError(t, err)
	require.Equal(t, ReturnShort, mode)

	mode, err = ParseReturnMode("")
	require.NoError(t, err)
	require.Equal(t, ReturnStandard, mode)

	_, err = ParseReturnMode("weird")
	require.Error(t, err)
}
