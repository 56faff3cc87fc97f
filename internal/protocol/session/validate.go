package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidConfig    = errors.New("session: invalid config")
	ErrLivenessTooTight = errors.New("session: liveness window must exceed heartbeat interval")
)

// Validate rejects configs the state machine cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.NodeName) == "" {
		return fmt.Errorf("%w: missing node name", ErrInvalidConfig)
	}
	if c.HandshakeInterval <= 0 {
		return fmt.Errorf("%w: handshake interval %v", ErrInvalidConfig, c.HandshakeInterval)
	}
	if c.HandshakeAttempts <= 0 {
		return fmt.Errorf("%w: handshake attempts %d", ErrInvalidConfig, c.HandshakeAttempts)
	}
	if c.HeartbeatInterval <= 0 || c.LivenessWindow <= 0 {
		return fmt.Errorf("%w: heartbeat=%v liveness=%v", ErrInvalidConfig, c.HeartbeatInterval, c.LivenessWindow)
	}
	if c.LivenessWindow <= c.HeartbeatInterval {
		return ErrLivenessTooTight
	}
	if c.ParamTimeout <= 0 || c.PollInterval < 0 {
		return fmt.Errorf("%w: param timeout=%v poll=%v", ErrInvalidConfig, c.ParamTimeout, c.PollInterval)
	}
	if err := c.Limits().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MaxPayload < minUsefulPayload {
		return fmt.Errorf("%w: max payload %d below %d", ErrInvalidConfig, c.MaxPayload, minUsefulPayload)
	}
	if c.Backoff.InitialDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative backoff", ErrInvalidConfig)
	}
	return nil
}

// minUsefulPayload fits a hello and a scalar request for a maximum-length name.
const minUsefulPayload = 128
