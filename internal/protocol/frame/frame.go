package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	HeaderLen  = 7
	TrailerLen = 4

	SyncByte    byte = 0xFF
	VersionByte byte = 0xFE

	// MaxPayloadHardLimit is the largest length the uint16 length field can carry.
	MaxPayloadHardLimit = 0xFFFF
)

var (
	ErrPayloadTooLarge = errors.New("frame: payload too large")
	ErrMalformed       = errors.New("frame: malformed")
	ErrInvalidLimits   = errors.New("frame: invalid limits")
)

// Frame is one complete wire message.
type Frame struct {
	Type    uint16
	Payload []byte
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxPayloadBytes int
}

func DefaultLimits() Limits {
	return Limits{
		MaxPayloadBytes: 1024,
	}
}

func (l Limits) Validate() error {
	if l.MaxPayloadBytes <= 0 || l.MaxPayloadBytes > MaxPayloadHardLimit {
		return fmt.Errorf("%w: max_payload_bytes=%d", ErrInvalidLimits, l.MaxPayloadBytes)
	}
	return nil
}

// FrameLen returns the encoded size of a frame carrying n payload bytes.
func FrameLen(n int) int {
	return HeaderLen + n + TrailerLen
}

// Encode returns the wire bytes for f.
func Encode(f Frame, limits Limits) ([]byte, error) {
	if len(f.Payload) > limits.MaxPayloadBytes || len(f.Payload) > MaxPayloadHardLimit {
		return nil, fmt.Errorf("%w: len=%d max=%d", ErrPayloadTooLarge, len(f.Payload), limits.MaxPayloadBytes)
	}
	buf := make([]byte, FrameLen(len(f.Payload)))
	putHeader(buf[:HeaderLen], f.Type, uint16(len(f.Payload)))
	copy(buf[HeaderLen:], f.Payload)
	sum := crc32.ChecksumIEEE(buf[5 : HeaderLen+len(f.Payload)])
	binary.BigEndian.PutUint32(buf[HeaderLen+len(f.Payload):], sum)
	return buf, nil
}

func putHeader(b []byte, msgType uint16, payloadLen uint16) {
	b[0] = SyncByte
	b[1] = VersionByte
	binary.BigEndian.PutUint16(b[2:4], payloadLen)
	b[4] = LengthChecksum(b[2], b[3])
	binary.BigEndian.PutUint16(b[5:7], msgType)
}

// LengthChecksum guards the length field so a corrupt length is rejected
// before the decoder waits on a body that will never arrive.
func LengthChecksum(hi, lo byte) byte {
	return 255 - byte((int(hi)+int(lo))%256)
}
