package xcm

import (
	"fmt"

	"github.com/morezero/coretime-allocator/pkg/codec"
)

const encodeLogPrefix = "xcm:encode"

// maxInstructions bounds decoding; the allocator only ever builds two.
const maxInstructions = 100

// Encode serializes m as VersionedXcm::V3.
func (m Message) Encode() ([]byte, error) {
	w := codec.NewWriter()
	w.U8(VersionV3)
	w.Compact(uint64(len(m)))
	for _, ins := range m {
		w.U8(ins.Index())
		switch v := ins.(type) {
		case UnpaidExecution:
			encodeWeightLimit(w, v.WeightLimit)
			if v.CheckOrigin == nil {
				w.U8(0)
			} else {
				w.U8(1)
				encodeLocation(w, *v.CheckOrigin)
			}
		case Transact:
			w.U8(uint8(v.OriginKind))
			encodeWeight(w, v.RequireWeightAtMost)
			w.Bytes(v.Call)
		default:
			return nil, fmt.Errorf("%s - unsupported instruction %T", encodeLogPrefix, ins)
		}
	}
	return w.Result()
}

func encodeWeight(w *codec.Writer, wt Weight) {
	w.Compact(wt.RefTime)
	w.Compact(wt.ProofSize)
}

func encodeWeightLimit(w *codec.Writer, limit *Weight) {
	if limit == nil {
		w.U8(weightLimitUnlimited)
		return
	}
	w.U8(weightLimitLimited)
	encodeWeight(w, *limit)
}

func encodeLocation(w *codec.Writer, l Location) {
	w.U8(l.Parents)
	w.U8(junctionsHere)
}

// EncodeLocation serializes a MultiLocation with no interior junctions.
func EncodeLocation(l Location) []byte {
	w := codec.NewWriter()
	encodeLocation(w, l)
	out, _ := w.Result()
	return out
}

// Decode parses a VersionedXcm::V3 program made of the instructions this package knows.
func Decode(b []byte) (Message, error) {
	r := codec.NewReader(b)
	if v := r.U8("version"); r.Err() == nil && v != VersionV3 {
		return nil, fmt.Errorf("%w: unsupported xcm version %d", codec.ErrMalformed, v)
	}
	n := r.Compact("instructions.len")
	if r.Err() == nil && n > maxInstructions {
		return nil, fmt.Errorf("%w: %d instructions", codec.ErrMalformed, n)
	}

	var m Message
	for i := uint64(0); i < n && r.Err() == nil; i++ {
		switch idx := r.U8("instruction"); {
		case r.Err() != nil:
		case idx == InstructionUnpaidExecution:
			ins := UnpaidExecution{WeightLimit: decodeWeightLimit(r)}
			switch tag := r.U8("check_origin"); {
			case r.Err() != nil:
			case tag == 1:
				loc := decodeLocation(r)
				ins.CheckOrigin = &loc
			case tag != 0:
				r.Failf("check_origin", "invalid option tag %d", tag)
			}
			m = append(m, ins)
		case idx == InstructionTransact:
			m = append(m, Transact{
				OriginKind:          OriginKind(r.U8("origin_kind")),
				RequireWeightAtMost: decodeWeight(r),
				Call:                r.Bytes("call"),
			})
		default:
			r.Failf("instruction", "unsupported instruction %d", idx)
		}
	}
	if err := r.Finish(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeWeight(r *codec.Reader) Weight {
	return Weight{RefTime: r.Compact("ref_time"), ProofSize: r.Compact("proof_size")}
}

func decodeWeightLimit(r *codec.Reader) *Weight {
	switch tag := r.U8("weight_limit"); {
	case r.Err() != nil, tag == weightLimitUnlimited:
		return nil
	case tag == weightLimitLimited:
		w := decodeWeight(r)
		return &w
	default:
		r.Failf("weight_limit", "invalid tag %d", tag)
		return nil
	}
}

func decodeLocation(r *codec.Reader) Location {
	l := Location{Parents: r.U8("parents")}
	if j := r.U8("interior"); r.Err() == nil && j != junctionsHere {
		r.Failf("interior", "unsupported junctions %d", j)
	}
	return l
}
