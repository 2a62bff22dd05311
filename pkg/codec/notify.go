package codec

import "fmt"

// Discriminants of the notifications the relay chain pushes back to the allocator.
const (
	NotifyCoreCountIndex   uint8 = 0
	NotifyRevenueInfoIndex uint8 = 1
)

// RevenueInfo is the revenue accounted by the relay chain up to block When.
type RevenueInfo struct {
	When   BlockNumber `json:"when"`
	Amount Balance     `json:"amount"`
}

// Equal compares by value; RevenueInfo must not be compared with ==.
func (r RevenueInfo) Equal(o RevenueInfo) bool {
	return r.When == o.When && r.Amount.Equal(o.Amount)
}

// Notification is one relay chain push. Exactly one field is set.
type Notification struct {
	CoreCount *uint16
	Revenue   *RevenueInfo
}

// EncodeNotification serializes a notification. Used by the relay-side simulator and tests.
func EncodeNotification(n Notification) ([]byte, error) {
	w := NewWriter()
	switch {
	case n.CoreCount != nil && n.Revenue == nil:
		w.U8(NotifyCoreCountIndex)
		w.U16(*n.CoreCount)
	case n.Revenue != nil && n.CoreCount == nil:
		w.U8(NotifyRevenueInfoIndex)
		w.U32(n.Revenue.When)
		w.Balance(n.Revenue.Amount)
	default:
		return nil, fmt.Errorf("%w: notification must carry exactly one value", ErrMalformed)
	}
	return w.Result()
}

// DecodeNotification parses a relay chain push.
func DecodeNotification(b []byte) (Notification, error) {
	r := NewReader(b)
	var n Notification
	switch tag := r.U8("notification"); {
	case r.Err() != nil:
		return Notification{}, r.Err()
	case tag == NotifyCoreCountIndex:
		count := r.U16("core_count")
		n.CoreCount = &count
	case tag == NotifyRevenueInfoIndex:
		info := RevenueInfo{When: r.U32("when"), Amount: r.Balance("amount")}
		n.Revenue = &info
	default:
		return Notification{}, fmt.Errorf("%w: unknown notification %d", ErrMalformed, tag)
	}
	if err := r.Finish(); err != nil {
		return Notification{}, err
	}
	return n, nil
}

// EncodeCoreCount and the helpers below are the slot payload encodings used by the
// notification stores.
func EncodeCoreCount(count uint16) []byte {
	w := NewWriter()
	w.U16(count)
	out, _ := w.Result()
	return out
}

func DecodeCoreCount(b []byte) (uint16, error) {
	r := NewReader(b)
	v := r.U16("core_count")
	return v, r.Finish()
}

func EncodeRevenueInfo(info RevenueInfo) []byte {
	w := NewWriter()
	w.U32(info.When)
	w.Balance(info.Amount)
	out, _ := w.Result()
	return out
}

func DecodeRevenueInfo(b []byte) (RevenueInfo, error) {
	r := NewReader(b)
	info := RevenueInfo{When: r.U32("when"), Amount: r.Balance("amount")}
	return info, r.Finish()
}

// EncodeBlockNumber and DecodeBlockNumber carry chain head updates.
func EncodeBlockNumber(n BlockNumber) []byte {
	w := NewWriter()
	w.U32(n)
	out, _ := w.Result()
	return out
}

func DecodeBlockNumber(b []byte) (BlockNumber, error) {
	r := NewReader(b)
	v := r.U32("block_number")
	return v, r.Finish()
}
