package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/payload"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

const (
	ProtocolVersion uint8 = 1

	AckStatusAccepted uint8 = 0
	AckStatusRejected uint8 = 1
)

var (
	ErrInvalidHello     = errors.New("session: invalid hello")
	ErrInvalidHelloAck  = errors.New("session: invalid hello.ack")
	ErrInvalidHeartbeat = errors.New("session: invalid heartbeat")
)

// Hello is the client->host session-start payload.
type Hello struct {
	Version    uint8  `cbor:"1,keyasint"`
	Node       string `cbor:"2,keyasint"`
	Session    []byte `cbor:"3,keyasint"`
	MaxPayload uint16 `cbor:"4,keyasint"`
}

func (h Hello) Validate() error {
	if h.Version != ProtocolVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidHello, h.Version)
	}
	if strings.TrimSpace(h.Node) == "" {
		return fmt.Errorf("%w: missing node", ErrInvalidHello)
	}
	if _, err := uuid.FromBytes(h.Session); err != nil {
		return fmt.Errorf("%w: session: %v", ErrInvalidHello, err)
	}
	if h.MaxPayload == 0 {
		return fmt.Errorf("%w: missing max_payload", ErrInvalidHello)
	}
	return nil
}

// HelloAck is the host->client handshake response.
type HelloAck struct {
	Session    []byte `cbor:"1,keyasint"`
	Status     uint8  `cbor:"2,keyasint"`
	MaxPayload uint16 `cbor:"3,keyasint"`
	HostTimeMS uint64 `cbor:"4,keyasint"`
	Message    string `cbor:"5,keyasint,omitempty"`
}

func (a HelloAck) Validate() error {
	if a.Status != AckStatusAccepted && a.Status != AckStatusRejected {
		return fmt.Errorf("%w: invalid status %d", ErrInvalidHelloAck, a.Status)
	}
	if _, err := uuid.FromBytes(a.Session); err != nil {
		return fmt.Errorf("%w: session: %v", ErrInvalidHelloAck, err)
	}
	if a.Status == AckStatusAccepted && a.MaxPayload == 0 {
		return fmt.Errorf("%w: missing max_payload", ErrInvalidHelloAck)
	}
	return nil
}

func HelloFrame(h Hello) (frame.Frame, error) {
	if err := h.Validate(); err != nil {
		return frame.Frame{}, err
	}
	return controlFrame(schema.MsgHello, h)
}

func DecodeHello(f frame.Frame) (Hello, error) {
	var h Hello
	if err := decodeControl(f, schema.MsgHello, &h); err != nil {
		return Hello{}, fmt.Errorf("%w: %v", ErrInvalidHello, err)
	}
	if err := h.Validate(); err != nil {
		return Hello{}, err
	}
	return h, nil
}

func HelloAckFrame(a HelloAck) (frame.Frame, error) {
	if err := a.Validate(); err != nil {
		return frame.Frame{}, err
	}
	return controlFrame(schema.MsgHelloAck, a)
}

func DecodeHelloAck(f frame.Frame) (HelloAck, error) {
	var a HelloAck
	if err := decodeControl(f, schema.MsgHelloAck, &a); err != nil {
		return HelloAck{}, fmt.Errorf("%w: %v", ErrInvalidHelloAck, err)
	}
	if err := a.Validate(); err != nil {
		return HelloAck{}, err
	}
	return a, nil
}

func HeartbeatFrame(seq uint32) frame.Frame {
	return frame.Frame{Type: schema.MsgHeartbeat, Payload: payload.NewWriter(4).U32(seq).Bytes()}
}

func DecodeHeartbeat(f frame.Frame) (uint32, error) {
	if f.Type != schema.MsgHeartbeat {
		return 0, fmt.Errorf("%w: message_type=%s", ErrInvalidHeartbeat, schema.Name(f.Type))
	}
	if err := schema.Validate(f.Type, f.Payload); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidHeartbeat, err)
	}
	return payload.NewReader(f.Payload).U32()
}

func HeartbeatAckFrame(seq uint32, hostTimeMS uint64) frame.Frame {
	return frame.Frame{
		Type:    schema.MsgHeartbeatAck,
		Payload: payload.NewWriter(12).U32(seq).U64(hostTimeMS).Bytes(),
	}
}

func DecodeHeartbeatAck(f frame.Frame) (seq uint32, hostTimeMS uint64, err error) {
	if f.Type != schema.MsgHeartbeatAck {
		return 0, 0, fmt.Errorf("%w: message_type=%s", ErrInvalidHeartbeat, schema.Name(f.Type))
	}
	if err := schema.Validate(f.Type, f.Payload); err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrInvalidHeartbeat, err)
	}
	r := payload.NewReader(f.Payload)
	if seq, err = r.U32(); err != nil {
		return 0, 0, err
	}
	if hostTimeMS, err = r.U64(); err != nil {
		return 0, 0, err
	}
	return seq, hostTimeMS, nil
}

func DisconnectFrame() frame.Frame {
	return frame.Frame{Type: schema.MsgDisconnect}
}

func controlFrame(msgType uint16, v any) (frame.Frame, error) {
	b, err := cbor.Marshal(v)
	if err != nil {
		return frame.Frame{}, err
	}
	if err := schema.Validate(msgType, b); err != nil {
		return frame.Frame{}, err
	}
	return frame.Frame{Type: msgType, Payload: b}, nil
}

func decodeControl(f frame.Frame, msgType uint16, out any) error {
	if f.Type != msgType {
		return fmt.Errorf("unexpected message_type=%s", schema.Name(f.Type))
	}
	if err := schema.Validate(f.Type, f.Payload); err != nil {
		return err
	}
	return cbor.Unmarshal(f.Payload, out)
}
