package codec

import (
	"fmt"
)

// Encode serializes call wrapped in the Broker pallet variant:
// [pallet index][call index][fields in declaration order].
func Encode(call Call) []byte {
	w := NewWriter()
	w.U8(BrokerPalletIndex)
	w.U8(call.CallIndex())
	switch c := call.(type) {
	case RequestCoreCount:
		w.U16(c.Count)
	case RequestRevenueInfoAt:
		w.U32(c.When)
	case CreditAccount:
		w.Account(c.Who)
		w.Balance(c.Amount)
	case AssignCore:
		w.U16(c.Core)
		w.U32(c.Begin)
		w.Compact(uint64(len(c.Assignment)))
		for _, part := range c.Assignment {
			encodeAssignment(w, part.Assignment)
			w.U16(part.Parts)
		}
		w.OptionU32(c.EndHint)
	}
	// The writer targets an in-memory buffer and only sees fixed-width integers,
	// so Result cannot fail here.
	out, _ := w.Result()
	return out
}

func encodeAssignment(w *Writer, a CoreAssignment) {
	w.U8(uint8(a.kind))
	if id, ok := a.TaskID(); ok {
		w.U32(id)
	}
}

// Decode parses bytes produced by Encode. It is used for verification and tooling;
// the allocator never receives broker calls.
func Decode(b []byte) (Call, error) {
	r := NewReader(b)
	pallet := r.U8("pallet")
	index := r.U8("call")
	if err := r.Err(); err != nil {
		return nil, err
	}
	if pallet != BrokerPalletIndex {
		return nil, fmt.Errorf("%w: unknown pallet index %d", ErrMalformed, pallet)
	}

	var call Call
	switch index {
	case CallRequestCoreCount:
		call = RequestCoreCount{Count: r.U16("count")}
	case CallRequestRevenueInfoAt:
		call = RequestRevenueInfoAt{When: r.U32("when")}
	case CallCreditAccount:
		call = CreditAccount{Who: r.Account("who"), Amount: r.Balance("amount")}
	case CallAssignCore:
		call = decodeAssignCore(r)
	default:
		return nil, fmt.Errorf("%w: unknown call index %d", ErrMalformed, index)
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return call, nil
}

// minAssignmentPartSize is the smallest encoding of one (CoreAssignment, PartsOf57600) pair.
const minAssignmentPartSize = 3

func decodeAssignCore(r *Reader) AssignCore {
	c := AssignCore{
		Core:  r.U16("core"),
		Begin: r.U32("begin"),
	}
	n := r.Compact("assignment.len")
	if r.Err() != nil {
		return c
	}
	if n > uint64(r.Remaining()/minAssignmentPartSize) {
		r.Failf("assignment.len", "length %d exceeds remaining input", n)
		return c
	}
	if n > 0 {
		c.Assignment = make([]AssignmentPart, 0, n)
	}
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		a := decodeAssignment(r)
		parts := r.U16("assignment.parts")
		c.Assignment = append(c.Assignment, AssignmentPart{Assignment: a, Parts: parts})
	}
	c.EndHint = r.OptionU32("end_hint")
	return c
}

func decodeAssignment(r *Reader) CoreAssignment {
	kind := AssignmentKind(r.U8("assignment.kind"))
	switch kind {
	case AssignmentIdle:
		return Idle()
	case AssignmentPool:
		return Pool()
	case AssignmentTask:
		return Task(r.U32("assignment.task"))
	default:
		if r.Err() == nil {
			r.Failf("assignment.kind", "unknown assignment kind %d", kind)
		}
		return CoreAssignment{}
	}
}
