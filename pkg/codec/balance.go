package codec

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

const balanceLogPrefix = "codec:balance"

// Balance is the relay chain's u128 Balance. It wraps types.U128 and keeps it
// canonical: zero holds a nil integer and any other value is below 2^128, so
// reflect.DeepEqual and Equal agree.
type Balance struct {
	u types.U128
}

var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// MaxBalance is the largest representable amount (2^128 - 1).
var MaxBalance = Balance{u: types.NewU128(*new(big.Int).Set(maxBalance))}

// NewBalance returns a Balance holding v.
func NewBalance(v uint64) Balance {
	if v == 0 {
		return Balance{}
	}
	return Balance{u: types.NewU128(*new(big.Int).SetUint64(v))}
}

// BalanceFromBig converts a non-negative integer below 2^128. v is copied.
func BalanceFromBig(v *big.Int) (Balance, error) {
	if v == nil {
		return Balance{}, fmt.Errorf("%s - nil amount", balanceLogPrefix)
	}
	if v.Sign() < 0 {
		return Balance{}, fmt.Errorf("%s - negative amount %s", balanceLogPrefix, v)
	}
	if v.Cmp(maxBalance) > 0 {
		return Balance{}, fmt.Errorf("%s - amount %s exceeds u128", balanceLogPrefix, v)
	}
	if v.Sign() == 0 {
		return Balance{}, nil
	}
	return Balance{u: types.NewU128(*new(big.Int).Set(v))}, nil
}

// BalanceFromU128 converts a decoded types.U128.
func BalanceFromU128(u types.U128) (Balance, error) {
	if u.Int == nil {
		return Balance{}, nil
	}
	return BalanceFromBig(u.Int)
}

// ParseBalance parses a base-10 amount.
func ParseBalance(s string) (Balance, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Balance{}, fmt.Errorf("%s - invalid amount %q", balanceLogPrefix, s)
	}
	return BalanceFromBig(v)
}

// U128 returns a copy of the amount as the SCALE type.
func (b Balance) U128() types.U128 {
	return types.NewU128(*b.Big())
}

// Big returns a copy of the amount.
func (b Balance) Big() *big.Int {
	if b.u.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.u.Int)
}

// IsZero reports whether the amount is zero.
func (b Balance) IsZero() bool {
	return b.u.Int == nil || b.u.Sign() == 0
}

// Cmp compares b and o, returning -1, 0 or +1.
func (b Balance) Cmp(o Balance) int {
	return b.Big().Cmp(o.Big())
}

// Equal reports whether b and o hold the same amount. Use it instead of ==.
func (b Balance) Equal(o Balance) bool {
	return b.Cmp(o) == 0
}

// CheckedAdd returns b + o and false when the sum exceeds MaxBalance.
func (b Balance) CheckedAdd(o Balance) (Balance, bool) {
	sum, err := BalanceFromBig(new(big.Int).Add(b.Big(), o.Big()))
	if err != nil {
		return Balance{}, false
	}
	return sum, true
}

func (b Balance) String() string {
	return b.Big().String()
}

// MarshalText renders the amount in base 10 so JSON carries it as a string.
func (b Balance) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText parses a base-10 amount.
func (b *Balance) UnmarshalText(text []byte) error {
	v, err := ParseBalance(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}
