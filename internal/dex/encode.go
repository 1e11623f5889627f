package dex

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"

	"pairCore/internal/events"
)

// EncodeLog packs an emitted record into the EVM log the pair would produce.
// Block and transaction positions are left for the caller to fill in.
func EncodeLog(emitter common.Address, record events.Record) (types.Log, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return types.Log{}, fmt.Errorf("parse pair abi: %w", err)
	}
	event, ok := pairABI.Events[record.EventName()]
	if !ok {
		return types.Log{}, fmt.Errorf("unsupported event: %s", record.EventName())
	}

	var indexed []common.Hash
	var values []interface{}
	switch r := record.(type) {
	case events.Transfer:
		indexed = []common.Hash{addressTopic(r.From), addressTopic(r.To)}
		values = []interface{}{toBig(r.Value)}
	case events.Approval:
		indexed = []common.Hash{addressTopic(r.Owner), addressTopic(r.Spender)}
		values = []interface{}{toBig(r.Value)}
	case events.Mint:
		indexed = []common.Hash{addressTopic(r.Sender)}
		values = []interface{}{toBig(r.Amount0), toBig(r.Amount1)}
	case events.Burn:
		indexed = []common.Hash{addressTopic(r.Sender), addressTopic(r.To)}
		values = []interface{}{toBig(r.Amount0), toBig(r.Amount1)}
	case events.Swap:
		indexed = []common.Hash{addressTopic(r.Sender), addressTopic(r.To)}
		values = []interface{}{toBig(r.Amount0In), toBig(r.Amount1In), toBig(r.Amount0Out), toBig(r.Amount1Out)}
	case events.Sync:
		values = []interface{}{toBig(r.Reserve0), toBig(r.Reserve1)}
	default:
		return types.Log{}, fmt.Errorf("unsupported record type %T", record)
	}

	data, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return types.Log{}, fmt.Errorf("pack %s: %w", event.Name, err)
	}

	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, event.ID)
	topics = append(topics, indexed...)

	return types.Log{
		Address: emitter,
		Topics:  topics,
		Data:    data,
	}, nil
}

func addressTopic(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}

func toBig(value *uint256.Int) *big.Int {
	if value == nil {
		return new(big.Int)
	}
	return value.ToBig()
}
