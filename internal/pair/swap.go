package pair

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/events"
	"pairCore/internal/mathutil"
)

var (
	feeDenominator = uint256.NewInt(1000)
	feeNumerator   = uint256.NewInt(3)
	kScale         = uint256.NewInt(1000 * 1000)
)

// Swap sends the requested outputs to `to`, optionally calls back into `to`
// with data, and then checks that the inputs found in the pair keep the
// fee-adjusted product from decreasing. Both outputs must be non-zero.
func (p *Pair) Swap(ctx context.Context, sender common.Address, amount0Out, amount1Out *uint256.Int, to common.Address, data []byte) error {
	return p.atomic("swap", func() error {
		if amount0Out.IsZero() || amount1Out.IsZero() {
			return ErrInsufficientOutputAmount
		}
		ledger0, ledger1, err := p.valueLedgers()
		if err != nil {
			return err
		}
		reserve0, reserve1 := p.GetReserves()
		if !amount0Out.Lt(reserve0) || !amount1Out.Lt(reserve1) {
			return ErrInsufficientLiquidity
		}

		if err := p.safeTransfer(ctx, ledger0, to, amount0Out); err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		if err := p.safeTransfer(ctx, ledger1, to, amount1Out); err != nil {
			return fmt.Errorf("token1: %w", err)
		}
		if len(data) > 0 {
			if err := p.callback(ctx, to, data); err != nil {
				return err
			}
		}

		balance0, balance1, err := p.balances(ctx)
		if err != nil {
			return err
		}
		amount0In := mathutil.SatSub(balance0, mathutil.SatSub(reserve0, amount0Out))
		amount1In := mathutil.SatSub(balance1, mathutil.SatSub(reserve1, amount1Out))
		if amount0In.IsZero() && amount1In.IsZero() {
			return ErrInsufficientInputAmount
		}

		holds, err := kHolds(balance0, balance1, amount0In, amount1In, reserve0, reserve1)
		if err != nil {
			return err
		}
		if !holds {
			return ErrKInvariant
		}

		if err := p.update(balance0, balance1, reserve0, reserve1); err != nil {
			return err
		}
		p.record(events.Swap{
			Sender:     sender,
			Amount0In:  amount0In,
			Amount1In:  amount1In,
			Amount0Out: amount0Out.Clone(),
			Amount1Out: amount1Out.Clone(),
			To:         to,
		})
		return nil
	})
}

// kHolds reports whether the fee-adjusted balances keep
// adjusted0*adjusted1 >= reserve0*reserve1*1000^2.
func kHolds(balance0, balance1, amount0In, amount1In, reserve0, reserve1 *uint256.Int) (bool, error) {
	adjusted0, err := feeAdjusted(balance0, amount0In)
	if err != nil {
		return false, fmt.Errorf("balance0 adjusted: %w", err)
	}
	adjusted1, err := feeAdjusted(balance1, amount1In)
	if err != nil {
		return false, fmt.Errorf("balance1 adjusted: %w", err)
	}
	product, err := mathutil.Mul(adjusted0, adjusted1)
	if err != nil {
		return false, fmt.Errorf("adjusted product: %w", err)
	}
	// reserves fit 112 bits, so r0*r1*1000^2 stays below 2^244
	k := new(uint256.Int).Mul(reserve0, reserve1)
	k.Mul(k, kScale)
	return !product.Lt(k), nil
}

// feeAdjusted returns balance*1000 - amountIn*3.
func feeAdjusted(balance, amountIn *uint256.Int) (*uint256.Int, error) {
	scaled, err := mathutil.Mul(balance, feeDenominator)
	if err != nil {
		return nil, err
	}
	fee, err := mathutil.Mul(amountIn, feeNumerator)
	if err != nil {
		return nil, err
	}
	return mathutil.Sub(scaled, fee)
}

// callback calls `to` with data as its raw input and the pair as caller.
// The callee may re-enter the pair.
func (p *Pair) callback(ctx context.Context, to common.Address, data []byte) error {
	if _, err := p.backend.CallContract(ctx, ethereum.CallMsg{From: p.address, To: &to, Data: data}, nil); err != nil {
		return fmt.Errorf("swap callback: %w", err)
	}
	return nil
}
