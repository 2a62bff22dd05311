package codec

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
)

// ErrMalformed is returned by the decoders for input that is not a valid encoding.
var ErrMalformed = errors.New("malformed encoding")

// Writer accumulates SCALE output and keeps the first error, so encoders can be
// written as straight-line field lists.
type Writer struct {
	buf bytes.Buffer
	enc *scale.Encoder
	err error
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	w := &Writer{}
	w.enc = scale.NewEncoder(&w.buf)
	return w
}

func (w *Writer) U8(v uint8) {
	if w.err == nil {
		w.err = w.enc.PushByte(v)
	}
}

func (w *Writer) U16(v uint16) {
	if w.err == nil {
		w.err = w.enc.Encode(v)
	}
}

func (w *Writer) U32(v uint32) {
	if w.err == nil {
		w.err = w.enc.Encode(v)
	}
}

// Compact writes v in SCALE compact form.
func (w *Writer) Compact(v uint64) {
	if w.err == nil {
		w.err = w.enc.EncodeUintCompact(*new(big.Int).SetUint64(v))
	}
}

// Raw writes b without a length prefix.
func (w *Writer) Raw(b []byte) {
	if w.err == nil {
		w.err = w.enc.Write(b)
	}
}

// Bytes writes b as a Vec<u8>.
func (w *Writer) Bytes(b []byte) {
	w.Compact(uint64(len(b)))
	w.Raw(b)
}

// Balance writes a u128 through types.U128.
func (w *Writer) Balance(b Balance) {
	if w.err == nil {
		w.err = w.enc.Encode(b.U128())
	}
}

// Account writes an AccountId32 through types.AccountID.
func (w *Writer) Account(a AccountID) {
	if w.err == nil {
		w.err = w.enc.Encode(a.Types())
	}
}

// OptionU32 writes an Option<u32> through types.OptionU32.
func (w *Writer) OptionU32(v *uint32) {
	opt := types.NewOptionU32Empty()
	if v != nil {
		opt = types.NewOptionU32(types.U32(*v))
	}
	if w.err == nil {
		w.err = w.enc.Encode(opt)
	}
}

// Result returns the encoded bytes. Writing to an in-memory buffer only fails on
// encoder misuse, which is reported here.
func (w *Writer) Result() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// Reader is the decoding counterpart of Writer. The first error sticks and every
// later read returns zero values.
type Reader struct {
	r   *bytes.Reader
	dec *scale.Decoder
	err error
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	r := bytes.NewReader(b)
	return &Reader{r: r, dec: scale.NewDecoder(r)}
}

func (r *Reader) fail(field string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s: %v", ErrMalformed, field, err)
	}
}

func (r *Reader) U8(field string) uint8 {
	if r.err != nil {
		return 0
	}
	b, err := r.dec.ReadOneByte()
	if err != nil {
		r.fail(field, err)
		return 0
	}
	return b
}

func (r *Reader) U16(field string) uint16 {
	var v uint16
	if r.err != nil {
		return 0
	}
	if err := r.dec.Decode(&v); err != nil {
		r.fail(field, err)
		return 0
	}
	return v
}

func (r *Reader) U32(field string) uint32 {
	var v uint32
	if r.err != nil {
		return 0
	}
	if err := r.dec.Decode(&v); err != nil {
		r.fail(field, err)
		return 0
	}
	return v
}

func (r *Reader) Compact(field string) uint64 {
	if r.err != nil {
		return 0
	}
	v, err := r.dec.DecodeUintCompact()
	if err != nil {
		r.fail(field, err)
		return 0
	}
	if !v.IsUint64() {
		r.fail(field, fmt.Errorf("compact value %s overflows u64", v))
		return 0
	}
	return v.Uint64()
}

// Raw reads exactly n bytes.
func (r *Reader) Raw(field string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.r.Len() {
		r.fail(field, fmt.Errorf("need %d bytes, %d left", n, r.r.Len()))
		return nil
	}
	out := make([]byte, n)
	if n == 0 {
		return out
	}
	if err := r.dec.Read(out); err != nil {
		r.fail(field, err)
		return nil
	}
	return out
}

// Bytes reads a Vec<u8>.
func (r *Reader) Bytes(field string) []byte {
	n := r.Compact(field)
	if r.err != nil {
		return nil
	}
	if n > uint64(r.r.Len()) {
		r.fail(field, fmt.Errorf("length %d exceeds remaining %d bytes", n, r.r.Len()))
		return nil
	}
	return r.Raw(field, int(n))
}

// need fails field when fewer than n bytes remain.
func (r *Reader) need(field string, n int) bool {
	if r.err != nil {
		return false
	}
	if r.r.Len() < n {
		r.fail(field, fmt.Errorf("need %d bytes, %d left", n, r.r.Len()))
		return false
	}
	return true
}

func (r *Reader) Balance(field string) Balance {
	if !r.need(field, 16) {
		return Balance{}
	}
	var u types.U128
	if err := r.dec.Decode(&u); err != nil {
		r.fail(field, err)
		return Balance{}
	}
	b, err := BalanceFromU128(u)
	if err != nil {
		r.fail(field, err)
	}
	return b
}

func (r *Reader) Account(field string) AccountID {
	raw := r.Raw(field, types.AccountIDLen)
	if r.err != nil {
		return AccountID{}
	}
	acc, err := types.NewAccountID(raw)
	if err != nil {
		r.fail(field, err)
		return AccountID{}
	}
	return AccountID(*acc)
}

// OptionU32 reads an Option<u32> through types.OptionU32. The tag byte is required:
// the library decoder reads a missing tag as None.
func (r *Reader) OptionU32(field string) *uint32 {
	if !r.need(field, 1) {
		return nil
	}
	var opt types.OptionU32
	if err := r.dec.Decode(&opt); err != nil {
		r.fail(field, err)
		return nil
	}
	ok, v := opt.Unwrap()
	if !ok {
		return nil
	}
	out := uint32(v)
	return &out
}

// Err returns the first error recorded so far.
func (r *Reader) Err() error {
	return r.err
}

// Remaining is the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.r.Len()
}

// Failf records a semantic decoding error.
func (r *Reader) Failf(field, format string, args ...interface{}) {
	r.fail(field, fmt.Errorf(format, args...))
}

// Finish returns the first error, or an error if unread bytes remain.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if n := r.r.Len(); n != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, n)
	}
	return nil
}
