package mathutil

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")

	// Q112 is the UQ112x112 fixed-point unit (2^112).
	Q112 = new(uint256.Int).Lsh(uint256.NewInt(1), 112)
	// MaxUint112 is 2^112 - 1.
	MaxUint112 = new(uint256.Int).Sub(Q112, uint256.NewInt(1))

	one   = uint256.NewInt(1)
	two   = uint256.NewInt(2)
	three = uint256.NewInt(3)
)

// Add returns x + y, failing on 256-bit overflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x - y, failing when y > x.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// Mul returns x * y, failing on 256-bit overflow.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Div returns x / y rounded down.
func Div(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(x, y), nil
}

// MulDiv returns x * y / d with the product checked for overflow.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	product, err := Mul(x, y)
	if err != nil {
		return nil, err
	}
	return Div(product, d)
}

// SatSub returns x - y, or zero when y > x.
func SatSub(x, y *uint256.Int) *uint256.Int {
	if y.Gt(x) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(x, y)
}

// Min returns a copy of the smaller value.
func Min(x, y *uint256.Int) *uint256.Int {
	if x.Lt(y) {
		return x.Clone()
	}
	return y.Clone()
}

// Sqrt returns floor(sqrt(y)) using the babylonian method.
func Sqrt(y *uint256.Int) *uint256.Int {
	if y.Gt(three) {
		z := y.Clone()
		x := new(uint256.Int).Div(y, two)
		x.Add(x, one)
		for x.Lt(z) {
			z.Set(x)
			// x = (y/x + x) / 2
			next := new(uint256.Int).Div(y, x)
			next.Add(next, x)
			x = next.Div(next, two)
		}
		return z
	}
	if !y.IsZero() {
		return uint256.NewInt(1)
	}
	return new(uint256.Int)
}

// FitsUint112 reports whether x can be stored in 112 bits.
func FitsUint112(x *uint256.Int) bool {
	return x.BitLen() <= 112
}

// Parse reads a decimal or 0x-prefixed hex amount.
func Parse(input string) (*uint256.Int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return new(uint256.Int), nil
	}
	digits, base := input, 10
	if strings.HasPrefix(input, "0x") || strings.HasPrefix(input, "0X") {
		digits, base = input[2:], 16
	}
	parsed, ok := new(big.Int).SetString(digits, base)
	if !ok || parsed.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	value, overflow := uint256.FromBig(parsed)
	if overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits: %s", input)
	}
	return value, nil
}

// MustParse is Parse for constants and tests.
func MustParse(input string) *uint256.Int {
	value, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return value
}

// String formats x in decimal.
func String(x *uint256.Int) string {
	if x == nil {
		return "0"
	}
	return x.ToBig().String()
}
