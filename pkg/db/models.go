package db

import (
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

// CreditDeposit is one row of the deposit log.
type CreditDeposit struct {
	ID      int64
	Account codec.AccountID
	Amount  codec.Balance
	Created time.Time
}

func balanceToNumeric(b codec.Balance) pgtype.Numeric {
	return pgtype.Numeric{Int: b.Big(), Exp: 0, Valid: true}
}

// numericToBalance converts a NUMERIC(39,0) value. pgx may return it with a positive
// exponent (e.g. 1000 as 1e3).
func numericToBalance(n pgtype.Numeric) (codec.Balance, error) {
	if !n.Valid || n.Int == nil {
		return codec.Balance{}, nil
	}
	v := new(big.Int).Set(n.Int)
	switch {
	case n.Exp > 0:
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	case n.Exp < 0:
		div := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-n.Exp)), nil)
		var rem big.Int
		v.QuoRem(v, div, &rem)
		if rem.Sign() != 0 {
			return codec.Balance{}, fmt.Errorf("non-integral balance %s", n.Int)
		}
	}
	return codec.BalanceFromBig(v)
}
