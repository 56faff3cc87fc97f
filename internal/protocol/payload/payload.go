// Package payload holds the primitive encodings carried inside a frame:
// raw big-endian scalars, length-prefixed strings, and counted arrays.
package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrShort          = errors.New("payload: short value")
	ErrStringTooLong  = errors.New("payload: string too long")
	ErrTrailing       = errors.New("payload: trailing bytes")
	ErrInvalidBoolean = errors.New("payload: invalid bool value")
)

// Writer appends encoded values to a growing byte slice.
type Writer struct {
	buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

func (w *Writer) U8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

func (w *Writer) Bool(v bool) *Writer {
	if v {
		return w.U8(1)
	}
	return w.U8(0)
}

func (w *Writer) U16(v uint16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

func (w *Writer) U32(v uint32) *Writer {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
	return w
}

func (w *Writer) U64(v uint64) *Writer {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
	return w
}

func (w *Writer) I32(v int32) *Writer {
	return w.U32(uint32(v))
}

// F32 writes the IEEE-754 bit pattern so NaN payloads and signed zeros survive.
func (w *Writer) F32(v float32) *Writer {
	return w.U32(math.Float32bits(v))
}

// String writes a u32 byte length followed by the raw bytes. No terminator.
func (w *Writer) String(v string) *Writer {
	w.U32(uint32(len(v)))
	w.buf = append(w.buf, v...)
	return w
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// Reader walks an encoded payload. Every getter fails with ErrShort instead
// of reading past the end.
type Reader struct {
	b   []byte
	off int
}

func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

func (r *Reader) Remaining() int {
	return len(r.b) - r.off
}

func (r *Reader) next(n int) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("%w: need=%d have=%d", ErrShort, n, r.Remaining())
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v, nil
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) Bool() (bool, error) {
	v, err := r.U8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidBoolean
	}
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

// String reads a length-prefixed string, rejecting lengths above maxLen
// before any bytes are copied.
func (r *Reader) String(maxLen int) (string, error) {
	l, err := r.U32()
	if err != nil {
		return "", err
	}
	if uint64(l) > uint64(maxLen) {
		return "", fmt.Errorf("%w: len=%d max=%d", ErrStringTooLong, l, maxLen)
	}
	b, err := r.next(int(l))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Done reports ErrTrailing when unread bytes remain.
func (r *Reader) Done() error {
	if r.Remaining() != 0 {
		return fmt.Errorf("%w: %d", ErrTrailing, r.Remaining())
	}
	return nil
}
