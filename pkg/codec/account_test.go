package codec

import (
	"encoding/json"
	"math/big"
	"reflect"
	"strings"
	"testing"
)

const accountTestPrefix = "codec:account_test"

func balanceOf(t *testing.T, s string) Balance {
	t.Helper()
	b, err := ParseBalance(s)
	if err != nil {
		t.Fatalf("%s - ParseBalance(%q): %v", accountTestPrefix, s, err)
	}
	return b
}

func TestPalletAccount(t *testing.T) {
	acc, err := PalletAccount(StakingPotID)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", accountTestPrefix, err)
	}
	want := "0x6d6f646c506f745374616b650000000000000000000000000000000000000000"
	if acc.String() != want {
		t.Errorf("%s - PalletAccount(%q) = %s, want %s", accountTestPrefix, StakingPotID, acc, want)
	}

	broker, err := PalletAccount(BrokerPalletID)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", accountTestPrefix, err)
	}
	if !strings.HasPrefix(broker.String(), "0x6d6f646c70792f62726f6b65") {
		t.Errorf("%s - broker account = %s, want modl ++ py/broke prefix", accountTestPrefix, broker)
	}
}

func TestPalletAccount_InvalidLength(t *testing.T) {
	for _, id := range []string{"", "short", "ninechars"} {
		if _, err := PalletAccount(id); err == nil {
			t.Errorf("%s - expected error for pallet id %q", accountTestPrefix, id)
		}
	}
}

func TestParseAccountID(t *testing.T) {
	hex := "0x" + strings.Repeat("ab", 32)
	acc, err := ParseAccountID(hex)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", accountTestPrefix, err)
	}
	if acc.String() != hex {
		t.Errorf("%s - String() = %s, want %s", accountTestPrefix, acc, hex)
	}

	bare, err := ParseAccountID(strings.Repeat("ab", 32))
	if err != nil || bare != acc {
		t.Errorf("%s - bare hex should parse to the same account, err=%v", accountTestPrefix, err)
	}

	for _, bad := range []string{"", "0x1234", "0x" + strings.Repeat("zz", 32)} {
		if _, err := ParseAccountID(bad); err == nil {
			t.Errorf("%s - expected error for %q", accountTestPrefix, bad)
		}
	}
}

func TestAccountAndBalance_JSON(t *testing.T) {
	type payload struct {
		Who    AccountID `json:"who"`
		Amount Balance   `json:"amount"`
	}
	in := payload{Amount: MaxBalance}
	in.Who[31] = 1

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("%s - marshal failed: %v", accountTestPrefix, err)
	}
	if !strings.Contains(string(data), `"amount":"340282366920938463463374607431768211455"`) {
		t.Errorf("%s - amount not rendered as decimal string: %s", accountTestPrefix, data)
	}

	var out payload
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("%s - unmarshal failed: %v", accountTestPrefix, err)
	}
	if out.Who != in.Who || !out.Amount.Equal(in.Amount) {
		t.Errorf("%s - JSON round trip = %+v, want %+v", accountTestPrefix, out, in)
	}
}

func TestBalanceFromBig(t *testing.T) {
	tests := []struct {
		name    string
		value   *big.Int
		want    Balance
		wantErr bool
	}{
		{name: "zero", value: big.NewInt(0), want: Balance{}},
		{name: "u64 max", value: new(big.Int).SetUint64(^uint64(0)), want: NewBalance(^uint64(0))},
		{name: "2^64", value: new(big.Int).Lsh(big.NewInt(1), 64), want: balanceOf(t, "18446744073709551616")},
		{name: "u128 max", value: new(big.Int).Set(maxBalance), want: MaxBalance},
		{name: "2^128", value: new(big.Int).Lsh(big.NewInt(1), 128), wantErr: true},
		{name: "negative", value: big.NewInt(-1), wantErr: true},
		{name: "nil", value: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BalanceFromBig(tt.value)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("%s - expected error", accountTestPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", accountTestPrefix, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s - BalanceFromBig = %+v, want %+v", accountTestPrefix, got, tt.want)
			}
			if got.Big().Cmp(tt.value) != 0 {
				t.Errorf("%s - Big() = %s, want %s", accountTestPrefix, got.Big(), tt.value)
			}
		})
	}
}

func TestParseBalance(t *testing.T) {
	b, err := ParseBalance("1000000000000")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", accountTestPrefix, err)
	}
	if !b.Equal(NewBalance(1_000_000_000_000)) {
		t.Errorf("%s - ParseBalance = %s", accountTestPrefix, b)
	}
	if _, err := ParseBalance("12ab"); err == nil {
		t.Errorf("%s - expected error for non-decimal input", accountTestPrefix)
	}
	if !NewBalance(0).IsZero() || NewBalance(1).IsZero() {
		t.Errorf("%s - IsZero mismatch", accountTestPrefix)
	}
}

func TestBalanceArithmetic(t *testing.T) {
	sum, ok := NewBalance(^uint64(0)).CheckedAdd(NewBalance(1))
	if !ok || sum.String() != "18446744073709551616" {
		t.Errorf("%s - carry add = %+v, %v", accountTestPrefix, sum, ok)
	}
	if _, ok := MaxBalance.CheckedAdd(NewBalance(1)); ok {
		t.Errorf("%s - expected overflow adding to MaxBalance", accountTestPrefix)
	}

	tests := []struct {
		a, b Balance
		want int
	}{
		{NewBalance(1), NewBalance(2), -1},
		{balanceOf(t, "18446744073709551616"), NewBalance(^uint64(0)), 1},
		{MaxBalance, MaxBalance, 0},
	}
	for _, tt := range tests {
		if got := tt.a.Cmp(tt.b); got != tt.want {
			t.Errorf("%s - Cmp(%s, %s) = %d, want %d", accountTestPrefix, tt.a, tt.b, got, tt.want)
		}
	}
}
