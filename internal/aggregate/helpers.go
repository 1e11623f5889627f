package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

func computeFeeRates(fee0 *big.Int, fee1 *big.Int, reserve0 *big.Int, reserve1 *big.Int) (*string, *string) {
	var feeRate0 *string
	var feeRate1 *string

	if rate := computeRateFromInt(fee0, reserve0); rate != "" {
		feeRate0 = &rate
	}
	if rate := computeRateFromInt(fee1, reserve1); rate != "" {
		feeRate1 = &rate
	}
	return feeRate0, feeRate1
}

func computeRateFromInt(fee *big.Int, tvl *big.Int) string {
	if fee == nil || fee.Sign() == 0 || tvl == nil || tvl.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, tvl)
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the window's fee yield. Both reserves hold half of
// the pool value, so fee0/(2*r0) + fee1/(2*r1) is the fraction of TVL
// earned in the window.
func computeAPR(fee0, fee1, reserve0, reserve1 *big.Int, windowSeconds uint64) *string {
	if windowSeconds == 0 || reserve0 == nil || reserve1 == nil || reserve0.Sign() == 0 || reserve1.Sign() == 0 {
		return nil
	}
	two := big.NewInt(2)
	yield := new(big.Rat)
	if fee0 != nil && fee0.Sign() > 0 {
		yield.Add(yield, new(big.Rat).SetFrac(fee0, new(big.Int).Mul(reserve0, two)))
	}
	if fee1 != nil && fee1.Sign() > 0 {
		yield.Add(yield, new(big.Rat).SetFrac(fee1, new(big.Int).Mul(reserve1, two)))
	}

	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(int64(windowSeconds), 1)
	apr := new(big.Rat).Mul(yield, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}

func bigString(value *big.Int) *string {
	if value == nil {
		return nil
	}
	s := value.String()
	return &s
}
