package dex

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"pairCore/internal/events"
	"pairCore/internal/model"
)

// DecoderConfig configures decoder behavior.
type DecoderConfig struct {
	// Topic0Map adds topic0 -> event name aliases.
	Topic0Map map[string]string
	// IncludeShareEvents also decodes Transfer and Approval.
	IncludeShareEvents bool
}

// V2PairDecoder decodes constant-product pair events.
type V2PairDecoder struct {
	pairABI     abi.ABI
	topicToName map[string]string
}

// NewV2PairDecoder builds a pair decoder.
func NewV2PairDecoder(cfg DecoderConfig) (*V2PairDecoder, error) {
	pairABI, err := V2PairABI()
	if err != nil {
		return nil, err
	}

	names := []string{events.NameSwap, events.NameMint, events.NameBurn, events.NameSync}
	if cfg.IncludeShareEvents {
		names = append(names, events.NameTransfer, events.NameApproval)
	}
	topicToName := make(map[string]string, len(names))
	for _, name := range names {
		topicToName[strings.ToLower(pairABI.Events[name].ID.Hex())] = name
	}

	for topic0, name := range cfg.Topic0Map {
		original := name
		name = normalizeEventName(name)
		if name == "" {
			return nil, fmt.Errorf("unsupported event name in topic0 map: %s", original)
		}
		if topic0 == "" {
			continue
		}
		topicToName[strings.ToLower(topic0)] = name
	}

	return &V2PairDecoder{
		pairABI:     pairABI,
		topicToName: topicToName,
	}, nil
}

// CanDecode checks if the topic0 is supported.
func (d *V2PairDecoder) CanDecode(topic0 string) bool {
	if topic0 == "" {
		return false
	}
	_, ok := d.topicToName[strings.ToLower(topic0)]
	return ok
}

// Decode converts a LogRecord into a TypedEvent.
func (d *V2PairDecoder) Decode(log model.LogRecord, ctx DecodeContext) (*model.TypedEvent, error) {
	if len(log.Topics) == 0 {
		return nil, fmt.Errorf("missing topics")
	}
	name, ok := d.topicToName[strings.ToLower(log.Topics[0])]
	if !ok {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0])
	}

	if !common.IsHexAddress(log.Address) {
		return nil, fmt.Errorf("invalid pair address: %s", log.Address)
	}
	pair := common.HexToAddress(log.Address)

	meta, err := getPairMeta(ctx, pair)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	switch name {
	case events.NameSwap:
		decoded, err = d.decodeSwap(log)
	case events.NameMint:
		decoded, err = d.decodeMint(log)
	case events.NameBurn:
		decoded, err = d.decodeBurn(log)
	case events.NameSync:
		decoded, err = d.decodeSync(log)
	case events.NameTransfer:
		decoded, err = d.decodeTransfer(log)
	case events.NameApproval:
		decoded, err = d.decodeApproval(log)
	default:
		return nil, fmt.Errorf("unsupported event name: %s", name)
	}
	if err != nil {
		return nil, err
	}
	return buildTypedEvent(log, name, decoded, meta), nil
}

func normalizeEventName(name string) string {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "swap":
		return events.NameSwap
	case "mint":
		return events.NameMint
	case "burn":
		return events.NameBurn
	case "sync":
		return events.NameSync
	case "transfer":
		return events.NameTransfer
	case "approval":
		return events.NameApproval
	default:
		return ""
	}
}

func getPairMeta(ctx DecodeContext, pair common.Address) (model.PairMeta, error) {
	if ctx.PairMetaCache != nil {
		if meta, ok := ctx.PairMetaCache.Get(pair); ok {
			return meta, nil
		}
	}
	if ctx.Backend == nil {
		return model.PairMeta{}, nil
	}

	callCtx := ctx.Context
	if callCtx == nil {
		callCtx = context.Background()
	}

	meta, err := FetchPairMeta(callCtx, ctx.Backend, pair)
	if err != nil {
		if ctx.Logger != nil {
			ctx.Logger.Warn("pair metadata fetch failed", zap.String("pair", pair.Hex()), zap.Error(err))
		}
		return model.PairMeta{}, err
	}
	if ctx.PairMetaCache != nil {
		ctx.PairMetaCache.Set(pair, meta)
	}
	return meta, nil
}

func buildTypedEvent(log model.LogRecord, name string, decoded interface{}, meta model.PairMeta) *model.TypedEvent {
	raw := &model.RawLogRef{Topic0: log.Topics[0], Data: log.Data}
	return &model.TypedEvent{
		ChainID:     log.ChainID,
		BlockNumber: log.BlockNumber,
		TxHash:      log.TxHash,
		LogIndex:    log.LogIndex,
		Address:     log.Address,
		EventName:   name,
		Timestamp:   log.Timestamp,
		Decoded:     decoded,
		PairMeta:    meta,
		Raw:         raw,
	}
}

func (d *V2PairDecoder) decodeSwap(log model.LogRecord) (model.SwapEventData, error) {
	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	amounts, err := d.decodeEvent(events.NameSwap, log, &indexed, 4)
	if err != nil {
		return model.SwapEventData{}, err
	}
	return model.SwapEventData{
		Sender:     indexed.Sender.Hex(),
		To:         indexed.To.Hex(),
		Amount0In:  amounts[0].String(),
		Amount1In:  amounts[1].String(),
		Amount0Out: amounts[2].String(),
		Amount1Out: amounts[3].String(),
	}, nil
}

func (d *V2PairDecoder) decodeMint(log model.LogRecord) (model.MintEventData, error) {
	var indexed struct {
		Sender common.Address
	}
	amounts, err := d.decodeEvent(events.NameMint, log, &indexed, 2)
	if err != nil {
		return model.MintEventData{}, err
	}
	return model.MintEventData{
		Sender:  indexed.Sender.Hex(),
		Amount0: amounts[0].String(),
		Amount1: amounts[1].String(),
	}, nil
}

func (d *V2PairDecoder) decodeBurn(log model.LogRecord) (model.BurnEventData, error) {
	var indexed struct {
		Sender common.Address
		To     common.Address
	}
	amounts, err := d.decodeEvent(events.NameBurn, log, &indexed, 2)
	if err != nil {
		return model.BurnEventData{}, err
	}
	return model.BurnEventData{
		Sender:  indexed.Sender.Hex(),
		To:      indexed.To.Hex(),
		Amount0: amounts[0].String(),
		Amount1: amounts[1].String(),
	}, nil
}

func (d *V2PairDecoder) decodeSync(log model.LogRecord) (model.SyncEventData, error) {
	amounts, err := d.decodeEvent(events.NameSync, log, nil, 2)
	if err != nil {
		return model.SyncEventData{}, err
	}
	return model.SyncEventData{
		Reserve0: amounts[0].String(),
		Reserve1: amounts[1].String(),
	}, nil
}

func (d *V2PairDecoder) decodeTransfer(log model.LogRecord) (model.TransferEventData, error) {
	var indexed struct {
		From common.Address
		To   common.Address
	}
	amounts, err := d.decodeEvent(events.NameTransfer, log, &indexed, 1)
	if err != nil {
		return model.TransferEventData{}, err
	}
	return model.TransferEventData{
		From:  indexed.From.Hex(),
		To:    indexed.To.Hex(),
		Value: amounts[0].String(),
	}, nil
}

func (d *V2PairDecoder) decodeApproval(log model.LogRecord) (model.ApprovalEventData, error) {
	var indexed struct {
		Owner   common.Address
		Spender common.Address
	}
	amounts, err := d.decodeEvent(events.NameApproval, log, &indexed, 1)
	if err != nil {
		return model.ApprovalEventData{}, err
	}
	return model.ApprovalEventData{
		Owner:   indexed.Owner.Hex(),
		Spender: indexed.Spender.Hex(),
		Value:   amounts[0].String(),
	}, nil
}

// decodeEvent parses indexed topics into out (when non-nil) and returns the
// non-indexed integer values, expecting exactly want of them.
func (d *V2PairDecoder) decodeEvent(name string, log model.LogRecord, out interface{}, want int) ([]*big.Int, error) {
	event := d.pairABI.Events[name]
	indexedTopics, err := parseIndexedTopics(event, log.Topics)
	if err != nil {
		return nil, err
	}
	if out != nil {
		if err := abi.ParseTopics(out, indexedArguments(event.Inputs), indexedTopics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
	}

	values, err := unpackNonIndexed(event, log.Data)
	if err != nil {
		return nil, err
	}
	if len(values) != want {
		return nil, fmt.Errorf("unexpected %s values: %d", strings.ToLower(name), len(values))
	}

	amounts := make([]*big.Int, 0, len(values))
	for _, value := range values {
		amount, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, amount)
	}
	return amounts, nil
}

func parseIndexedTopics(event abi.Event, topics []string) ([]common.Hash, error) {
	indexedCount := len(indexedArguments(event.Inputs))
	if len(topics) != indexedCount+1 {
		return nil, fmt.Errorf("expected %d topics, got %d", indexedCount+1, len(topics))
	}
	return parseTopicHashes(topics[1:])
}

func parseTopicHashes(topics []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(topics))
	for _, topic := range topics {
		data, err := hexutil.Decode(topic)
		if err != nil {
			return nil, fmt.Errorf("invalid topic: %w", err)
		}
		if len(data) > 32 {
			return nil, fmt.Errorf("topic length %d", len(data))
		}
		out = append(out, common.BytesToHash(data))
	}
	return out, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}

func unpackNonIndexed(event abi.Event, dataHex string) ([]interface{}, error) {
	data, err := hexutil.Decode(dataHex)
	if err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	values, err := event.Inputs.NonIndexed().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", event.Name, err)
	}
	return values, nil
}
