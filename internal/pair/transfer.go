package pair

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/mathutil"
)

var abiTrue = common.LeftPadBytes([]byte{1}, 32)

// safeTransfer moves value of a token from the pair to `to`. Tokens that
// return nothing are accepted; otherwise the return must be an ABI true.
func (p *Pair) safeTransfer(ctx context.Context, ledger ValueLedger, to common.Address, value *uint256.Int) error {
	ret, err := ledger.Transfer(ctx, p.address, to, value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}
	if !transferSucceeded(ret) {
		return fmt.Errorf("%w: return data %x", ErrTransferFailed, ret)
	}
	return nil
}

func transferSucceeded(ret []byte) bool {
	return len(ret) == 0 || bytes.Equal(ret, abiTrue)
}

// Skim sends any token balance above the reserves to `to`.
func (p *Pair) Skim(ctx context.Context, to common.Address) error {
	return p.atomic("skim", func() error {
		ledger0, ledger1, err := p.valueLedgers()
		if err != nil {
			return err
		}
		balance0, balance1, err := p.balances(ctx)
		if err != nil {
			return err
		}
		excess0, err := mathutil.Sub(balance0, p.reserve0)
		if err != nil {
			return fmt.Errorf("excess0: %w", err)
		}
		excess1, err := mathutil.Sub(balance1, p.reserve1)
		if err != nil {
			return fmt.Errorf("excess1: %w", err)
		}
		if err := p.safeTransfer(ctx, ledger0, to, excess0); err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		if err := p.safeTransfer(ctx, ledger1, to, excess1); err != nil {
			return fmt.Errorf("token1: %w", err)
		}
		return nil
	})
}

// Sync sets the reserves to the current token balances.
func (p *Pair) Sync(ctx context.Context) error {
	return p.atomic("sync", func() error {
		balance0, balance1, err := p.balances(ctx)
		if err != nil {
			return err
		}
		reserve0, reserve1 := p.GetReserves()
		return p.update(balance0, balance1, reserve0, reserve1)
	})
}
