package pair

import (
	"fmt"

	"github.com/holiman/uint256"

	"pairCore/internal/events"
	"pairCore/internal/journal"
	"pairCore/internal/mathutil"
)

// update stores new reserves and, on the first update of a block with
// non-empty prior reserves, accumulates prior prices weighted by time.
func (p *Pair) update(balance0, balance1, prior0, prior1 *uint256.Int) error {
	if !mathutil.FitsUint112(balance0) || !mathutil.FitsUint112(balance1) {
		return fmt.Errorf("reserves %s/%s exceed 112 bits: %w",
			mathutil.String(balance0), mathutil.String(balance1), ErrOverflow)
	}

	now := uint32(p.clock.Now())
	elapsed := now - p.blockTimestampLast // wraps
	if elapsed > 0 && !prior0.IsZero() && !prior1.IsZero() {
		weight := uint256.NewInt(uint64(elapsed))
		price0 := priceQ112(prior1, prior0)
		price1 := priceQ112(prior0, prior1)
		journal.Set(p.journal, &p.price0CumulativeLast,
			new(uint256.Int).Add(p.price0CumulativeLast, price0.Mul(price0, weight)))
		journal.Set(p.journal, &p.price1CumulativeLast,
			new(uint256.Int).Add(p.price1CumulativeLast, price1.Mul(price1, weight)))
	}

	journal.Set(p.journal, &p.blockTimestampLast, now)
	journal.Set(p.journal, &p.reserve0, balance0.Clone())
	journal.Set(p.journal, &p.reserve1, balance1.Clone())
	p.record(events.Sync{Reserve0: balance0.Clone(), Reserve1: balance1.Clone()})
	return nil
}

// priceQ112 returns numerator/denominator as a UQ112x112. Both inputs fit
// 112 bits so the shift cannot overflow; the time weighting wraps mod 2^256
// like the accumulators.
func priceQ112(numerator, denominator *uint256.Int) *uint256.Int {
	price := new(uint256.Int).Lsh(numerator, 112)
	return price.Div(price, denominator)
}
