package schema

import (
	"fmt"

	logs "github.com/danmuck/paramwire/internal/logging"
)

// Message type IDs carried in the frame header.
const (
	MsgHello         uint16 = 0x0000
	MsgHelloAck      uint16 = 0x0001
	MsgHeartbeat     uint16 = 0x0002
	MsgHeartbeatAck  uint16 = 0x0003
	MsgParamRequest  uint16 = 0x0006
	MsgParamResponse uint16 = 0x0007
	MsgDisconnect    uint16 = 0x000B
)

type Direction uint8

const (
	ClientToHost Direction = iota + 1
	HostToClient
	Both
)

// Requirement describes the minimum shape of one message type.
type Requirement struct {
	Name       string
	Direction  Direction
	MinPayload int
	MaxPayload int // zero means bounded only by frame limits
}

type ValidationError struct {
	MessageType uint16
	Reason      string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: message_type=0x%04x: %s", e.MessageType, e.Reason)
}

var requirements = map[uint16]Requirement{
	MsgHello:        {Name: "hello", Direction: ClientToHost, MinPayload: 1},
	MsgHelloAck:     {Name: "hello.ack", Direction: HostToClient, MinPayload: 1},
	MsgHeartbeat:    {Name: "heartbeat", Direction: ClientToHost, MinPayload: 4, MaxPayload: 4},
	MsgHeartbeatAck: {Name: "heartbeat.ack", Direction: HostToClient, MinPayload: 12, MaxPayload: 12},
	// id + name length + kind + count
	MsgParamRequest: {Name: "param.request", Direction: ClientToHost, MinPayload: 4 + 4 + 1 + 4},
	// id + name length + found
	MsgParamResponse: {Name: "param.response", Direction: HostToClient, MinPayload: 4 + 4 + 1},
	MsgDisconnect:    {Name: "disconnect", Direction: Both},
}

// Lookup returns the requirement for a message type.
func Lookup(messageType uint16) (Requirement, bool) {
	req, ok := requirements[messageType]
	return req, ok
}

// Name returns a printable name for a message type.
func Name(messageType uint16) string {
	if req, ok := requirements[messageType]; ok {
		return req.Name
	}
	return fmt.Sprintf("unknown(0x%04x)", messageType)
}

// Validate enforces a known message type and its payload length bounds.
func Validate(messageType uint16, payload []byte) error {
	logs.Tracef("schema.Validate message_type=0x%04x len=%d", messageType, len(payload))
	req, ok := requirements[messageType]
	if !ok {
		logs.Errf("schema.Validate unknown message_type=0x%04x", messageType)
		return ValidationError{MessageType: messageType, Reason: "unknown message_type"}
	}
	if len(payload) < req.MinPayload {
		logs.Errf(
			"schema.Validate short payload message_type=%s len=%d min=%d",
			req.Name,
			len(payload),
			req.MinPayload,
		)
		return ValidationError{MessageType: messageType, Reason: "payload shorter than minimum"}
	}
	if req.MaxPayload > 0 && len(payload) > req.MaxPayload {
		logs.Errf(
			"schema.Validate long payload message_type=%s len=%d max=%d",
			req.Name,
			len(payload),
			req.MaxPayload,
		)
		return ValidationError{MessageType: messageType, Reason: "payload longer than maximum"}
	}
	return nil
}

// ValidateInbound additionally rejects messages that cannot travel toward
// the receiving side.
func ValidateInbound(messageType uint16, payload []byte, from Direction) error {
	if err := Validate(messageType, payload); err != nil {
		return err
	}
	req := requirements[messageType]
	if req.Direction != Both && req.Direction != from {
		return ValidationError{MessageType: messageType, Reason: "unexpected direction"}
	}
	return nil
}
