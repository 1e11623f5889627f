package pair

import (
	"errors"

	"pairCore/internal/ledger"
	"pairCore/internal/mathutil"
)

var (
	ErrAlreadyInitialized          = errors.New("already initialized")
	ErrNotInitialized              = errors.New("not initialized")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrKInvariant                  = errors.New("k invariant violated")
	ErrZeroLiquidity               = errors.New("zero liquidity")
	ErrTransferFailed              = errors.New("transfer failed")
	ErrUnsupported                 = errors.New("unsupported")
	ErrForbidden                   = errors.New("forbidden")
)

// Re-exported so callers can match every failure against this package.
var (
	ErrInsufficientBalance   = ledger.ErrInsufficientBalance
	ErrInsufficientAllowance = ledger.ErrInsufficientAllowance
	ErrOverflow              = mathutil.ErrOverflow
	ErrUnderflow             = mathutil.ErrUnderflow
	ErrDivisionByZero        = mathutil.ErrDivisionByZero
)
