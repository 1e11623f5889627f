package scenario

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"pairCore/internal/dex"
	"pairCore/internal/events"
)

const basicScenario = `
# seed the pool and trade against it
{"op":"fund","token":0,"to":"pair","amount":"2000"}
{"op":"fund","token":1,"to":"pair","amount":"8000"}
{"op":"mint","caller":"router","to":"alice"}
{"op":"swap","caller":"router","to":"bob","amount0":"0","amount1":"100","expect_error":"insufficient output amount"}
{"op":"advance","seconds":12}
{"op":"fund","token":0,"to":"alice","amount":"500"}
{"op":"token_transfer","token":0,"from":"alice","to":"pair","amount":"500"}
{"op":"swap","caller":"router","to":"bob","amount0":"1","amount1":"1000"}
{"op":"transfer","caller":"alice","to":"pair","amount":"1000"}
{"op":"burn","caller":"router","to":"alice"}
`

func TestParseOps(t *testing.T) {
	ops, err := ParseOps(strings.NewReader(basicScenario))
	require.NoError(t, err)
	require.Len(t, ops, 10)
	require.Equal(t, OpMint, ops[2].Op)
	require.Equal(t, "insufficient output amount", ops[3].ExpectError)

	_, err = ParseOps(strings.NewReader(`{"caller":"a"}`))
	require.Error(t, err)
	_, err = ParseOps(strings.NewReader(`{"op":"fund","token":2}`))
	require.Error(t, err)
	_, err = ParseOps(strings.NewReader(`{"op":`))
	require.Error(t, err)
}

func TestResolveAccount(t *testing.T) {
	alice, err := ResolveAccount("alice")
	require.NoError(t, err)
	again, err := ResolveAccount("alice")
	require.NoError(t, err)
	require.Equal(t, alice, again)

	hex, err := ResolveAccount(alice.Hex())
	require.NoError(t, err)
	require.Equal(t, alice, hex)

	zero, err := ResolveAccount("zero")
	require.NoError(t, err)
	require.Equal(t, "0x0000000000000000000000000000000000000000", zero.Hex())

	_, err = ResolveAccount("0x1234")
	require.Error(t, err)
	_, err = ResolveAccount("")
	require.Error(t, err)
}

func TestRunnerBasicScenario(t *testing.T) {
	ops, err := ParseOps(strings.NewReader(basicScenario))
	require.NoError(t, err)

	runner, err := NewRunner(Config{StartTime: 1_700_000_000})
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), ops)
	require.NoError(t, err)

	require.Len(t, result.Ops, 10)
	require.Equal(t, "3000", result.Ops[2].Output["liquidity"])
	require.NotEmpty(t, result.Ops[3].Error)
	require.Equal(t, "0x"+strings.Repeat("0", 63)+"1", result.Ops[6].Output["return"])

	alice, err := ResolveAccount("alice")
	require.NoError(t, err)
	require.Equal(t, "2000", result.Shares[alice.Hex()])
	require.Equal(t, "3000", result.State.TotalSupply)
	require.NotEqual(t, "0", result.State.Price0CumulativeLast)

	decoder, err := dex.NewV2PairDecoder(dex.DecoderConfig{IncludeShareEvents: true})
	require.NoError(t, err)
	decodeCtx := dex.DecodeContext{
		Context:       context.Background(),
		Backend:       runner.Sim(),
		PairMetaCache: dex.NewPairMetaCache(),
	}
	var names []string
	for i, record := range result.Logs {
		require.Equal(t, uint64(31337), record.ChainID)
		event, err := decoder.Decode(record, decodeCtx)
		require.NoError(t, err, "log %d", i)
		require.Equal(t, result.Pair.Token0, event.PairMeta.Token0)
		names = append(names, event.EventName)
	}
	require.Equal(t, []string{
		events.NameTransfer, events.NameTransfer, events.NameSync, events.NameMint,
		events.NameSync, events.NameSwap,
		events.NameTransfer,
		events.NameTransfer, events.NameSync, events.NameBurn,
	}, names)

	// the mint happened in block 1, everything after the advance in block 2
	require.Equal(t, uint64(1), result.Logs[0].BlockNumber)
	require.Equal(t, uint64(2), result.Logs[4].BlockNumber)
	require.Equal(t, uint64(0), result.Logs[4].LogIndex)
	require.Equal(t, uint64(1), result.Logs[5].LogIndex)
}

func TestRunnerFlashSwap(t *testing.T) {
	script := `
{"op":"fund","token":0,"to":"pair","amount":"1000000"}
{"op":"fund","token":1,"to":"pair","amount":"1000000"}
{"op":"mint","caller":"router","to":"alice"}
{"op":"deploy_borrower","to":"flash","amount0":"100"}
{"op":"swap","caller":"router","to":"flash","amount0":"1","amount1":"1000","data":"0x01","expect_error":"exceeds balance"}
{"op":"fund","token":0,"to":"flash","amount":"100"}
{"op":"swap","caller":"router","to":"flash","amount0":"1","amount1":"10","data":"0x01"}
`
	ops, err := ParseOps(strings.NewReader(script))
	require.NoError(t, err)
	runner, err := NewRunner(Config{})
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), ops)
	require.NoError(t, err)

	require.Equal(t, "1000099", result.State.Reserve0)
	require.Equal(t, "999990", result.State.Reserve1)

	flash, err := ResolveAccount("flash")
	require.NoError(t, err)
	require.Equal(t, uint64(10), runner.Token(1).Balance(flash).Uint64())
}

func TestRunnerUnexpectedFailureStops(t *testing.T) {
	ops := []Op{
		{Op: OpSync},
		{Op: OpMint, Caller: "router", To: "alice"},
		{Op: OpSync},
	}
	runner, err := NewRunner(Config{})
	require.NoError(t, err)
	_, err = runner.Run(context.Background(), ops)
	require.ErrorContains(t, err, "op 1 (mint)")

	_, err = runner.Run(context.Background(), []Op{{Op: OpSync, ExpectError: "boom"}})
	require.ErrorContains(t, err, "expected error")

	_, err = runner.Run(context.Background(), []Op{{Op: "bogus"}})
	require.ErrorContains(t, err, "unknown op")
}

func TestRunnerFeeSwitch(t *testing.T) {
	script := `
{"op":"set_fee_to","caller":"mallory","to":"treasury","expect_error":"forbidden"}
{"op":"set_fee_to","caller":"factory","to":"treasury"}
{"op":"fund","token":0,"to":"pair","amount":"1000000"}
{"op":"fund","token":1,"to":"pair","amount":"1000000"}
{"op":"mint","caller":"router","to":"alice"}
`
	ops, err := ParseOps(strings.NewReader(script))
	require.NoError(t, err)
	runner, err := NewRunner(Config{})
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), ops)
	require.NoError(t, err)
	require.Equal(t, "1000000000000", result.State.KLast)
	require.Equal(t, "treasury", ops[1].To)
}

func TestRunnerSinkAndClock(t *testing.T) {
	script := `
{"op":"fund","token":0,"to":"pair","amount":"4000"}
{"op":"fund","token":1,"to":"pair","amount":"4000"}
{"op":"mint","caller":"router","to":"alice"}
{"op":"advance","timestamp":1700000100}
{"op":"advance","timestamp":1700000050,"expect_error":"before current"}
{"op":"sync","caller":"router"}
`
	ops, err := ParseOps(strings.NewReader(script))
	require.NoError(t, err)

	recorder := events.NewRecorder()
	runner, err := NewRunner(Config{StartTime: 1_700_000_000, Sink: recorder})
	require.NoError(t, err)
	result, err := runner.Run(context.Background(), ops)
	require.NoError(t, err)

	require.Equal(t, uint64(1_700_000_100), runner.Sim().Now())
	require.Equal(t, uint32(1_700_000_100), result.State.BlockTimestampLast)
	require.Len(t, recorder.Entries(), len(result.Logs))
	require.Equal(t, events.NameSync, recorder.Names()[len(result.Logs)-1])
	for _, entry := range recorder.Entries() {
		require.Equal(t, runner.Pair().Address(), entry.Emitter)
	}
}
