package session

import (
	"time"

	"github.com/danmuck/paramwire/internal/protocol/frame"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines handshake, liveness and request timing.
type Config struct {
	NodeName          string
	HandshakeInterval time.Duration
	HandshakeAttempts int
	HeartbeatInterval time.Duration
	LivenessWindow    time.Duration
	ParamTimeout      time.Duration
	PollInterval      time.Duration
	MaxPayload        int
	Backoff           BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		NodeName:          "paramwire",
		HandshakeInterval: 500 * time.Millisecond,
		HandshakeAttempts: 5,
		HeartbeatInterval: 5 * time.Second,
		LivenessWindow:    15 * time.Second,
		ParamTimeout:      2 * time.Second,
		PollInterval:      10 * time.Millisecond,
		MaxPayload:        frame.DefaultLimits().MaxPayloadBytes,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero-valued fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.NodeName == "" {
		c.NodeName = d.NodeName
	}
	if c.HandshakeInterval == 0 {
		c.HandshakeInterval = d.HandshakeInterval
	}
	if c.HandshakeAttempts == 0 {
		c.HandshakeAttempts = d.HandshakeAttempts
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.LivenessWindow == 0 {
		c.LivenessWindow = d.LivenessWindow
	}
	if c.ParamTimeout == 0 {
		c.ParamTimeout = d.ParamTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxPayload == 0 {
		c.MaxPayload = d.MaxPayload
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = d.Backoff
	}
	return c
}

// Limits returns the local frame limits implied by MaxPayload.
func (c Config) Limits() frame.Limits {
	return frame.Limits{MaxPayloadBytes: c.MaxPayload}
}
