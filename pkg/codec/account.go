package codec

import (
	"fmt"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

const accountLogPrefix = "codec:account"

// AccountID is a relay chain AccountId32. It has the layout of types.AccountID and
// converts to it for encoding.
type AccountID types.AccountID

// Well-known pallet ids on the coretime chain.
const (
	BrokerPalletID = "py/broke"
	StakingPotID   = "PotStake"
)

// palletAccountPrefix is prepended to a pallet id when deriving its account.
const palletAccountPrefix = "modl"

// PalletAccount derives the sovereign account of a pallet from its 8-byte id:
// "modl" ++ id, zero-padded to 32 bytes.
func PalletAccount(id string) (AccountID, error) {
	if len(id) != 8 {
		return AccountID{}, fmt.Errorf("%s - pallet id %q must be 8 bytes", accountLogPrefix, id)
	}
	raw := make([]byte, types.AccountIDLen)
	copy(raw, palletAccountPrefix+id)
	acc, err := types.NewAccountID(raw)
	if err != nil {
		return AccountID{}, fmt.Errorf("%s - %w", accountLogPrefix, err)
	}
	return AccountID(*acc), nil
}

// ParseAccountID parses a 0x-prefixed (or bare) 64-character hex account.
func ParseAccountID(s string) (AccountID, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	acc, err := types.NewAccountIDFromHexString(s)
	if err != nil {
		return AccountID{}, fmt.Errorf("%s - invalid account %q: %w", accountLogPrefix, s, err)
	}
	return AccountID(*acc), nil
}

// Types returns the account as the SCALE type.
func (a AccountID) Types() types.AccountID {
	return types.AccountID(a)
}

func (a AccountID) String() string {
	acc := a.Types()
	return acc.ToHexString()
}

func (a AccountID) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountID) UnmarshalText(text []byte) error {
	v, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
