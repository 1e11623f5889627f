package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"pairCore/internal/token"
)

var ErrUnexpectedCaller = errors.New("borrower: unexpected caller")

// Borrower is a flash swap receiver that pays fixed amounts of each token
// back to the pair from its own balance when called back. The callback
// data is ignored.
type Borrower struct {
	self   common.Address
	pair   common.Address
	tokens [2]*token.Mock
	repay  [2]*uint256.Int
}

func (b *Borrower) Call(_ context.Context, caller common.Address, _ []byte) ([]byte, error) {
	if caller != b.pair {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedCaller, caller.Hex())
	}
	for i, tok := range b.tokens {
		if b.repay[i].IsZero() {
			continue
		}
		moved, err := tok.Move(b.self, b.pair, b.repay[i])
		if err != nil {
			return nil, fmt.Errorf("borrower: repay token%d: %w", i, err)
		}
		if !moved {
			return nil, fmt.Errorf("borrower: repay token%d refused", i)
		}
	}
	return nil, nil
}
