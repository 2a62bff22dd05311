// Package xcm builds the two-instruction XCM v3 program that carries a broker call to the
// relay chain, and its SCALE encoding.
package xcm

import "fmt"

// XCM v3 discriminants.
const (
	VersionV3 uint8 = 3

	InstructionTransact        uint8 = 6
	InstructionUnpaidExecution uint8 = 47

	weightLimitUnlimited uint8 = 0
	weightLimitLimited   uint8 = 1

	junctionsHere uint8 = 0
)

// OriginKind selects the origin the relay chain dispatches a Transact call with.
type OriginKind uint8

const (
	OriginNative           OriginKind = 0
	OriginSovereignAccount OriginKind = 1
	OriginSuperuser        OriginKind = 2
	OriginXcm              OriginKind = 3
)

// Weight is a two-dimensional weight (ref time, proof size).
type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

// MinimalTransactWeight is attached to every Transact instruction regardless of the
// call's size. It is a placeholder carried over from the relay chain integration, not
// a benchmarked bound.
var MinimalTransactWeight = Weight{RefTime: 1, ProofSize: 1}

// Location is a relative location with no interior junctions. That is all the
// allocator addresses: itself (Here) and the relay chain (Parent).
type Location struct {
	Parents uint8
}

var (
	Here   = Location{Parents: 0}
	Parent = Location{Parents: 1}
)

func (l Location) String() string {
	switch l.Parents {
	case 0:
		return "here"
	case 1:
		return "parent"
	default:
		return fmt.Sprintf("parents:%d", l.Parents)
	}
}

// Instruction is one XCM v3 instruction supported by this package.
type Instruction interface {
	Index() uint8
}

// UnpaidExecution lets the rest of the program run without buying execution.
// A nil WeightLimit means Unlimited; a nil CheckOrigin means no origin check.
type UnpaidExecution struct {
	WeightLimit *Weight
	CheckOrigin *Location
}

// Transact dispatches an encoded call on the destination.
type Transact struct {
	OriginKind          OriginKind
	RequireWeightAtMost Weight
	Call                []byte
}

func (UnpaidExecution) Index() uint8 { return InstructionUnpaidExecution }
func (Transact) Index() uint8        { return InstructionTransact }

// Message is an XCM program.
type Message []Instruction

// NewTransactMessage wraps an encoded call in the allocator's fixed program:
// unpaid execution with no weight limit and no origin check, followed by a native-origin
// Transact bounded by MinimalTransactWeight.
func NewTransactMessage(call []byte) Message {
	return Message{
		UnpaidExecution{},
		Transact{
			OriginKind:          OriginNative,
			RequireWeightAtMost: MinimalTransactWeight,
			Call:                call,
		},
	}
}

// TransactCall returns the call carried by the first Transact instruction.
func (m Message) TransactCall() ([]byte, bool) {
	for _, ins := range m {
		if tx, ok := ins.(Transact); ok {
			return tx.Call, true
		}
	}
	return nil, false
}
