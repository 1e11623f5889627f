package events

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

func TestRecorderAndFanout(t *testing.T) {
	first := NewRecorder()
	second := NewRecorder()
	sink := Fanout{first, nil, second}

	pair := common.HexToAddress("0x01")
	sink.Emit(pair, Sync{Reserve0: uint256.NewInt(1), Reserve1: uint256.NewInt(2)})
	sink.Emit(pair, Mint{Sender: pair, Amount0: uint256.NewInt(1), Amount1: uint256.NewInt(2)})

	for _, rec := range []*Recorder{first, second} {
		names := rec.Names()
		if len(names) != 2 || names[0] != NameSync || names[1] != NameMint {
			t.Fatalf("unexpected names: %v", names)
		}
	}

	entries := first.Drain()
	if len(entries) != 2 || entries[0].Emitter != pair {
		t.Fatalf("unexpected drain: %+v", entries)
	}
	if len(first.Entries()) != 0 {
		t.Fatalf("drain did not clear recorder")
	}
	if len(second.Entries()) != 2 {
		t.Fatalf("drain leaked into other sinks")
	}
}

func TestSinkFunc(t *testing.T) {
	var got []string
	sink := SinkFunc(func(_ common.Address, record Record) {
		got = append(got, record.EventName())
	})
	sink.Emit(common.Address{}, Approval{})
	sink.Emit(common.Address{}, Swap{})
	if len(got) != 2 || got[0] != NameApproval || got[1] != NameSwap {
		t.Fatalf("unexpected names: %v", got)
	}
}
