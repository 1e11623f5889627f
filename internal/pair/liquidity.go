package pair

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/events"
	"pairCore/internal/mathutil"
)

// Mint issues shares to `to` for the tokens sent to the pair since the last
// reserve update. sender is only reported in the Mint record.
func (p *Pair) Mint(ctx context.Context, sender, to common.Address) (*uint256.Int, error) {
	var liquidity *uint256.Int
	err := p.atomic("mint", func() error {
		reserve0, reserve1 := p.GetReserves()
		balance0, balance1, err := p.balances(ctx)
		if err != nil {
			return err
		}
		amount0, err := mathutil.Sub(balance0, reserve0)
		if err != nil {
			return fmt.Errorf("amount0: %w", err)
		}
		amount1, err := mathutil.Sub(balance1, reserve1)
		if err != nil {
			return fmt.Errorf("amount1: %w", err)
		}

		feeOn, err := p.mintFee(reserve0, reserve1)
		if err != nil {
			return err
		}

		supply := p.shares.TotalSupply()
		if supply.IsZero() {
			product, err := mathutil.Mul(amount0, amount1)
			if err != nil {
				return fmt.Errorf("initial product: %w", err)
			}
			p.shares.Mint(common.Address{}, minimumLiquidity)
			liquidity, err = mathutil.Sub(mathutil.Sqrt(product), minimumLiquidity)
			if err != nil {
				return fmt.Errorf("initial liquidity below minimum: %w", err)
			}
		} else {
			share0, err := mathutil.MulDiv(amount0, supply, reserve0)
			if err != nil {
				return fmt.Errorf("share0: %w", err)
			}
			share1, err := mathutil.MulDiv(amount1, supply, reserve1)
			if err != nil {
				return fmt.Errorf("share1: %w", err)
			}
			liquidity = mathutil.Min(share0, share1)
		}
		if liquidity.IsZero() {
			return ErrZeroLiquidity
		}

		p.shares.Mint(to, liquidity)
		if err := p.update(balance0, balance1, reserve0, reserve1); err != nil {
			return err
		}
		if feeOn {
			p.refreshKLast()
		}
		p.record(events.Mint{Sender: sender, Amount0: amount0, Amount1: amount1})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return liquidity, nil
}

// Burn redeems the shares held by the pair itself; callers transfer shares
// to the pair first. Both token amounts go to `to`.
func (p *Pair) Burn(ctx context.Context, sender, to common.Address) (*uint256.Int, *uint256.Int, error) {
	var amount0, amount1 *uint256.Int
	err := p.atomic("burn", func() error {
		ledger0, ledger1, err := p.valueLedgers()
		if err != nil {
			return err
		}
		reserve0, reserve1 := p.GetReserves()
		balance0, balance1, err := p.balances(ctx)
		if err != nil {
			return err
		}
		liquidity := p.shares.BalanceOf(p.address)

		feeOn, err := p.mintFee(reserve0, reserve1)
		if err != nil {
			return err
		}

		supply := p.shares.TotalSupply()
		if amount0, err = mathutil.MulDiv(liquidity, balance0, supply); err != nil {
			return fmt.Errorf("amount0: %w", err)
		}
		if amount1, err = mathutil.MulDiv(liquidity, balance1, supply); err != nil {
			return fmt.Errorf("amount1: %w", err)
		}
		if amount0.IsZero() || amount1.IsZero() {
			return ErrInsufficientLiquidityBurned
		}

		if err := p.shares.Burn(p.address, liquidity); err != nil {
			return err
		}
		if err := p.safeTransfer(ctx, ledger0, to, amount0); err != nil {
			return fmt.Errorf("token0: %w", err)
		}
		if err := p.safeTransfer(ctx, ledger1, to, amount1); err != nil {
			return fmt.Errorf("token1: %w", err)
		}

		balance0, balance1, err = p.balances(ctx)
		if err != nil {
			return err
		}
		if err := p.update(balance0, balance1, reserve0, reserve1); err != nil {
			return err
		}
		if feeOn {
			p.refreshKLast()
		}
		p.record(events.Burn{Sender: sender, Amount0: amount0.Clone(), Amount1: amount1.Clone(), To: to})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}
