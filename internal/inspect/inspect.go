// Package inspect reads a deployed pair over a call backend and reports how
// far its stored reserves are from the token balances it holds.
package inspect

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"pairCore/internal/chain"
	"pairCore/internal/dex"
	"pairCore/internal/mathutil"
	"pairCore/internal/model"
	"pairCore/internal/token"
)

// Pair reads the pair's state and both token balances at the latest block.
func Pair(ctx context.Context, backend chain.Backend, pair common.Address) (model.PairInspection, error) {
	state, err := dex.FetchPairState(ctx, backend, pair, nil)
	if err != nil {
		return model.PairInspection{}, fmt.Errorf("fetch pair state: %w", err)
	}

	report := model.PairInspection{State: state}
	tokens := []struct {
		address string
		reserve string
		balance *string
		drift   *string
	}{
		{state.Token0, state.Reserve0, &report.Balance0, &report.Drift0},
		{state.Token1, state.Reserve1, &report.Balance1, &report.Drift1},
	}

	report.InSync = true
	for _, tk := range tokens {
		erc20, err := token.NewERC20(backend, common.HexToAddress(tk.address))
		if err != nil {
			return model.PairInspection{}, err
		}
		balance, err := erc20.BalanceOf(ctx, pair)
		if err != nil {
			return model.PairInspection{}, fmt.Errorf("balance of %s: %w", tk.address, err)
		}
		reserve, ok := new(big.Int).SetString(tk.reserve, 10)
		if !ok {
			return model.PairInspection{}, fmt.Errorf("invalid reserve %q", tk.reserve)
		}
		drift := new(big.Int).Sub(balance.ToBig(), reserve)

		*tk.balance = mathutil.String(balance)
		*tk.drift = drift.String()
		if drift.Sign() != 0 {
			report.InSync = false
		}
	}
	return report, nil
}
