package pair

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"pairCore/internal/journal"
	"pairCore/internal/mathutil"
)

// SetFeeTo turns the protocol fee on (non-zero feeTo) or off. Only the
// factory may call it.
func (p *Pair) SetFeeTo(caller, feeTo common.Address) error {
	return p.atomic("setFeeTo", func() error {
		if p.factory == (common.Address{}) {
			return ErrNotInitialized
		}
		if caller != p.factory {
			return fmt.Errorf("caller %s: %w", caller.Hex(), ErrForbidden)
		}
		journal.Set(p.journal, &p.feeTo, feeTo)
		return nil
	})
}

// mintFee mints one sixth of the growth in sqrt(k) since kLast to feeTo.
// With the fee off a stale kLast is cleared.
func (p *Pair) mintFee(reserve0, reserve1 *uint256.Int) (bool, error) {
	feeOn := p.feeTo != (common.Address{})
	if !feeOn {
		if !p.kLast.IsZero() {
			journal.Set(p.journal, &p.kLast, new(uint256.Int))
		}
		return false, nil
	}
	if p.kLast.IsZero() {
		return true, nil
	}

	product, err := mathutil.Mul(reserve0, reserve1)
	if err != nil {
		return false, fmt.Errorf("fee k: %w", err)
	}
	rootK := mathutil.Sqrt(product)
	rootKLast := mathutil.Sqrt(p.kLast)
	if !rootK.Gt(rootKLast) {
		return true, nil
	}

	numerator, err := mathutil.Mul(p.shares.TotalSupply(), new(uint256.Int).Sub(rootK, rootKLast))
	if err != nil {
		return false, fmt.Errorf("fee numerator: %w", err)
	}
	denominator, err := mathutil.Mul(rootK, uint256.NewInt(5))
	if err != nil {
		return false, fmt.Errorf("fee denominator: %w", err)
	}
	if denominator, err = mathutil.Add(denominator, rootKLast); err != nil {
		return false, fmt.Errorf("fee denominator: %w", err)
	}
	liquidity, err := mathutil.Div(numerator, denominator)
	if err != nil {
		return false, fmt.Errorf("fee liquidity: %w", err)
	}
	if !liquidity.IsZero() {
		p.shares.Mint(p.feeTo, liquidity)
		p.logger.Debug("protocol fee minted", zap.String("feeTo", p.feeTo.Hex()), zap.String("liquidity", mathutil.String(liquidity)))
	}
	return true, nil
}

// refreshKLast caches the current reserve product. Reserves fit 112 bits
// so the product cannot overflow.
func (p *Pair) refreshKLast() {
	journal.Set(p.journal, &p.kLast, new(uint256.Int).Mul(p.reserve0, p.reserve1))
}
