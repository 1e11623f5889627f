// Package chain provides the call backends the pair talks to: a JSON-RPC
// client for live chains and an in-process simulator.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// Backend executes contract calls. msg.From is the caller identity seen by
// the callee; blockNumber nil means the current state.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Contract is code deployed on the simulator.
type Contract interface {
	Call(ctx context.Context, caller common.Address, input []byte) ([]byte, error)
}

// ContractFunc adapts a func to Contract.
type ContractFunc func(ctx context.Context, caller common.Address, input []byte) ([]byte, error)

func (f ContractFunc) Call(ctx context.Context, caller common.Address, input []byte) ([]byte, error) {
	return f(ctx, caller, input)
}

var (
	_ Backend = (*Client)(nil)
	_ Backend = (*Sim)(nil)
)
