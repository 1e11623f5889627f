package pair

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"pairCore/internal/dex"
)

// Call serves the pair's read surface as ABI encoded eth_calls, so a pair
// deployed on the simulator looks like a live one to RPC tooling. State
// changing methods are not reachable this way.
func (p *Pair) Call(_ context.Context, _ common.Address, input []byte) ([]byte, error) {
	pairABI, err := dex.V2PairABI()
	if err != nil {
		return nil, err
	}
	if len(input) < 4 {
		return nil, fmt.Errorf("%w: short calldata", ErrUnsupported)
	}
	method, err := pairABI.MethodById(input[:4])
	if err != nil {
		return nil, fmt.Errorf("%w: selector %x", ErrUnsupported, input[:4])
	}
	args, err := method.Inputs.Unpack(input[4:])
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method.Name, err)
	}

	switch method.Name {
	case "token0":
		return method.Outputs.Pack(p.token0)
	case "token1":
		return method.Outputs.Pack(p.token1)
	case "factory":
		return method.Outputs.Pack(p.factory)
	case "getReserves":
		return method.Outputs.Pack(p.reserve0.ToBig(), p.reserve1.ToBig(), p.blockTimestampLast)
	case "totalSupply":
		return method.Outputs.Pack(p.TotalSupply().ToBig())
	case "price0CumulativeLast":
		return method.Outputs.Pack(p.price0CumulativeLast.ToBig())
	case "price1CumulativeLast":
		return method.Outputs.Pack(p.price1CumulativeLast.ToBig())
	case "kLast":
		return method.Outputs.Pack(p.kLast.ToBig())
	case "MINIMUM_LIQUIDITY":
		return method.Outputs.Pack(minimumLiquidity.ToBig())
	case "DOMAIN_SEPARATOR":
		return method.Outputs.Pack([32]byte(p.DomainSeparator()))
	case "balanceOf":
		owner, ok := args[0].(common.Address)
		if !ok {
			return nil, fmt.Errorf("balanceOf: unexpected arg %T", args[0])
		}
		return method.Outputs.Pack(p.BalanceOf(owner).ToBig())
	case "allowance":
		owner, ok0 := args[0].(common.Address)
		spender, ok1 := args[1].(common.Address)
		if !ok0 || !ok1 {
			return nil, fmt.Errorf("allowance: unexpected args")
		}
		return method.Outputs.Pack(p.Allowance(owner, spender).ToBig())
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, method.Name)
	}
}
