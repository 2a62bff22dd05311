package xcm

import (
	"bytes"
	"encoding/hex"
	"errors"
	"reflect"
	"testing"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

const messageTestPrefix = "xcm:message_test"

func TestNewTransactMessage_Layout(t *testing.T) {
	call := codec.Encode(codec.RequestCoreCount{Count: 3})
	data, err := NewTransactMessage(call).Encode()
	if err != nil {
		t.Fatalf("%s - encode failed: %v", messageTestPrefix, err)
	}

	want := "03" + "08" + // V3, two instructions
		"2f" + "00" + "00" + // UnpaidExecution { Unlimited, None }
		"06" + "00" + "04" + "04" + // Transact { Native, Weight { 1, 1 } }
		"10" + "4a010300" // call bytes
	if got := hex.EncodeToString(data); got != want {
		t.Errorf("%s - Encode() = %s, want %s", messageTestPrefix, got, want)
	}
}

func TestNewTransactMessage_WeightPinned(t *testing.T) {
	if MinimalTransactWeight != (Weight{RefTime: 1, ProofSize: 1}) {
		t.Fatalf("%s - MinimalTransactWeight = %+v, want {1 1}", messageTestPrefix, MinimalTransactWeight)
	}

	for _, size := range []int{0, 1, 64, 4096, 1 << 16} {
		msg := NewTransactMessage(bytes.Repeat([]byte{0xaa}, size))
		tx, ok := msg[1].(Transact)
		if !ok {
			t.Fatalf("%s - second instruction is %T, want Transact", messageTestPrefix, msg[1])
		}
		if tx.RequireWeightAtMost.RefTime != 1 || tx.RequireWeightAtMost.ProofSize != 1 {
			t.Errorf("%s - payload %d: weight = %+v, want {1 1}", messageTestPrefix, size, tx.RequireWeightAtMost)
		}
		if tx.OriginKind != OriginNative {
			t.Errorf("%s - payload %d: origin kind = %d, want native", messageTestPrefix, size, tx.OriginKind)
		}
	}
}

func TestNewTransactMessage_UnpaidFirst(t *testing.T) {
	msg := NewTransactMessage([]byte{1})
	if len(msg) != 2 {
		t.Fatalf("%s - len = %d, want 2", messageTestPrefix, len(msg))
	}
	unpaid, ok := msg[0].(UnpaidExecution)
	if !ok {
		t.Fatalf("%s - first instruction is %T, want UnpaidExecution", messageTestPrefix, msg[0])
	}
	if unpaid.WeightLimit != nil || unpaid.CheckOrigin != nil {
		t.Errorf("%s - UnpaidExecution = %+v, want unlimited with no origin check", messageTestPrefix, unpaid)
	}
}

func TestMessage_RoundTrip(t *testing.T) {
	limit := Weight{RefTime: 1 << 40, ProofSize: 65536}
	tests := []struct {
		name string
		msg  Message
	}{
		{"transact message", NewTransactMessage(codec.Encode(codec.RequestRevenueInfoAt{When: 10}))},
		{"empty call", NewTransactMessage([]byte{})},
		{"limited unpaid with origin check", Message{
			UnpaidExecution{WeightLimit: &limit, CheckOrigin: &Parent},
			Transact{OriginKind: OriginSuperuser, RequireWeightAtMost: limit, Call: []byte{1, 2, 3}},
		}},
		{"empty program", Message(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.msg.Encode()
			if err != nil {
				t.Fatalf("%s - encode failed: %v", messageTestPrefix, err)
			}
			got, err := Decode(data)
			if err != nil {
				t.Fatalf("%s - decode failed: %v", messageTestPrefix, err)
			}
			if !reflect.DeepEqual(got, tt.msg) {
				t.Errorf("%s - round trip = %#v, want %#v", messageTestPrefix, got, tt.msg)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, input := range []string{"", "02", "0304", "03082f0000", "0304ff", "03042f0200", "0304060004041001"} {
		raw, _ := hex.DecodeString(input)
		if _, err := Decode(raw); !errors.Is(err, codec.ErrMalformed) {
			t.Errorf("%s - Decode(%s) expected ErrMalformed, got %v", messageTestPrefix, input, err)
		}
	}
}

func TestTransactCall(t *testing.T) {
	call := []byte{0x4a, 0x02}
	got, ok := NewTransactMessage(call).TransactCall()
	if !ok || !bytes.Equal(got, call) {
		t.Errorf("%s - TransactCall() = %x, %v", messageTestPrefix, got, ok)
	}
	if _, ok := (Message{UnpaidExecution{}}).TransactCall(); ok {
		t.Errorf("%s - expected no transact call", messageTestPrefix)
	}
}

func TestLocation(t *testing.T) {
	if hex.EncodeToString(EncodeLocation(Parent)) != "0100" {
		t.Errorf("%s - EncodeLocation(Parent) = %x", messageTestPrefix, EncodeLocation(Parent))
	}
	if Parent.String() != "parent" || Here.String() != "here" || (Location{Parents: 2}).String() != "parents:2" {
		t.Errorf("%s - unexpected location names", messageTestPrefix)
	}
}
