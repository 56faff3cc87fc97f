package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
)

// Decoder reassembles frames from an unframed byte stream. The buffer is
// sized once for the largest frame the limits allow and never grows.
type Decoder struct {
	limits    Limits
	buf       []byte
	n         int
	discarded uint64
}

func NewDecoder(limits Limits) *Decoder {
	if limits.Validate() != nil {
		limits = DefaultLimits()
	}
	return &Decoder{
		limits: limits,
		buf:    make([]byte, FrameLen(limits.MaxPayloadBytes)),
	}
}

// Feed copies as much of p as fits and returns the number of bytes accepted.
func (d *Decoder) Feed(p []byte) int {
	n := copy(d.buf[d.n:], p)
	d.n += n
	return n
}

// Free reports how many bytes Feed can currently accept.
func (d *Decoder) Free() int {
	return len(d.buf) - d.n
}

// Buffered reports how many bytes are waiting for a complete frame.
func (d *Decoder) Buffered() int {
	return d.n
}

// Discarded reports how many bytes have been dropped as noise or malformed data.
func (d *Decoder) Discarded() uint64 {
	return d.discarded
}

func (d *Decoder) Reset() {
	d.discarded += uint64(d.n)
	d.n = 0
}

// Next returns the next complete frame. ok is false with a nil error when
// more bytes are needed. A malformed candidate is dropped before ErrMalformed
// is returned, so callers can keep calling Next.
func (d *Decoder) Next() (Frame, bool, error) {
	d.syncToStart()
	if d.n < HeaderLen {
		return Frame{}, false, nil
	}

	head := d.buf[:HeaderLen]
	if head[1] != VersionByte {
		d.drop(1)
		return Frame{}, false, fmt.Errorf("%w: version=0x%02x", ErrMalformed, head[1])
	}
	if LengthChecksum(head[2], head[3]) != head[4] {
		d.drop(1)
		return Frame{}, false, fmt.Errorf("%w: length checksum", ErrMalformed)
	}
	payloadLen := int(binary.BigEndian.Uint16(head[2:4]))
	if payloadLen > d.limits.MaxPayloadBytes {
		d.drop(1)
		return Frame{}, false, fmt.Errorf("%w: payload_len=%d max=%d", ErrMalformed, payloadLen, d.limits.MaxPayloadBytes)
	}

	total := FrameLen(payloadLen)
	if d.n < total {
		return Frame{}, false, nil
	}

	end := HeaderLen + payloadLen
	want := binary.BigEndian.Uint32(d.buf[end:total])
	if got := crc32.ChecksumIEEE(d.buf[5:end]); got != want {
		d.drop(total)
		return Frame{}, false, fmt.Errorf("%w: crc got=0x%08x want=0x%08x", ErrMalformed, got, want)
	}

	f := Frame{
		Type:    binary.BigEndian.Uint16(head[5:7]),
		Payload: make([]byte, payloadLen),
	}
	copy(f.Payload, d.buf[HeaderLen:end])
	d.consume(total)
	return f, true, nil
}

func (d *Decoder) syncToStart() {
	if d.n == 0 || d.buf[0] == SyncByte {
		return
	}
	i := bytes.IndexByte(d.buf[:d.n], SyncByte)
	if i < 0 {
		d.drop(d.n)
		return
	}
	d.drop(i)
}

func (d *Decoder) drop(n int) {
	d.discarded += uint64(n)
	d.consume(n)
}

func (d *Decoder) consume(n int) {
	copy(d.buf, d.buf[n:d.n])
	d.n -= n
}
