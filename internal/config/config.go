package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/paramwire/internal/protocol/session"
	"gopkg.in/yaml.v3"
)

const (
	TransportSerial = "serial"
	TransportTCP    = "tcp"

	DefaultHostPort = "11411"
)

// Duration reads and writes as a Go duration string ("500ms", "5s").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type ClientConfig struct {
	Node      string          `toml:"node" yaml:"node"`
	Transport TransportConfig `toml:"transport" yaml:"transport"`
	Session   SessionConfig   `toml:"session" yaml:"session"`
}

type TransportConfig struct {
	Kind        string   `toml:"kind" yaml:"kind"`
	Device      string   `toml:"device" yaml:"device"`
	Baud        int      `toml:"baud" yaml:"baud"`
	Address     string   `toml:"address" yaml:"address"`
	DialTimeout Duration `toml:"dial_timeout" yaml:"dial_timeout"`
}

type SessionConfig struct {
	HandshakeInterval Duration `toml:"handshake_interval" yaml:"handshake_interval"`
	HandshakeAttempts int      `toml:"handshake_attempts" yaml:"handshake_attempts"`
	HeartbeatInterval Duration `toml:"heartbeat_interval" yaml:"heartbeat_interval"`
	LivenessWindow    Duration `toml:"liveness_window" yaml:"liveness_window"`
	ParamTimeout      Duration `toml:"param_timeout" yaml:"param_timeout"`
	PollInterval      Duration `toml:"poll_interval" yaml:"poll_interval"`
	ConnectTimeout    Duration `toml:"connect_timeout" yaml:"connect_timeout"`
	MaxPayload        int      `toml:"max_payload" yaml:"max_payload"`
	Backoff           Backoff  `toml:"backoff" yaml:"backoff"`
}

type Backoff struct {
	Initial    Duration `toml:"initial" yaml:"initial"`
	Multiplier float64  `toml:"multiplier" yaml:"multiplier"`
	Max        Duration `toml:"max" yaml:"max"`
	Jitter     bool     `toml:"jitter" yaml:"jitter"`
}

type HostConfig struct {
	Listen     string `toml:"listen" yaml:"listen"`
	ParamsFile string `toml:"params_file" yaml:"params_file"`
	MaxPayload int    `toml:"max_payload" yaml:"max_payload"`
	Metrics    string `toml:"metrics" yaml:"metrics"`
}

func DefaultClientConfig() ClientConfig {
	d := session.DefaultConfig()
	return ClientConfig{
		Node: d.NodeName,
		Transport: TransportConfig{
			Kind:        TransportTCP,
			Baud:        115200,
			Address:     "localhost:" + DefaultHostPort,
			DialTimeout: Duration{2 * time.Second},
		},
		Session: SessionConfig{
			HandshakeInterval: Duration{d.HandshakeInterval},
			HandshakeAttempts: d.HandshakeAttempts,
			HeartbeatInterval: Duration{d.HeartbeatInterval},
			LivenessWindow:    Duration{d.LivenessWindow},
			ParamTimeout:      Duration{d.ParamTimeout},
			PollInterval:      Duration{d.PollInterval},
			ConnectTimeout:    Duration{5 * time.Second},
			MaxPayload:        d.MaxPayload,
			Backoff: Backoff{
				Initial:    Duration{d.Backoff.InitialDelay},
				Multiplier: d.Backoff.Multiplier,
				Max:        Duration{d.Backoff.MaxDelay},
				Jitter:     d.Backoff.Jitter,
			},
		},
	}
}

func DefaultHostConfig() HostConfig {
	return HostConfig{
		Listen:     ":" + DefaultHostPort,
		MaxPayload: session.DefaultConfig().MaxPayload,
	}
}

// SessionConfig converts the file form into the state machine config.
func (c ClientConfig) SessionConfig() session.Config {
	s := c.Session
	return session.Config{
		NodeName:          c.Node,
		HandshakeInterval: s.HandshakeInterval.Duration,
		HandshakeAttempts: s.HandshakeAttempts,
		HeartbeatInterval: s.HeartbeatInterval.Duration,
		LivenessWindow:    s.LivenessWindow.Duration,
		ParamTimeout:      s.ParamTimeout.Duration,
		PollInterval:      s.PollInterval.Duration,
		MaxPayload:        s.MaxPayload,
		Backoff: session.BackoffConfig{
			InitialDelay: s.Backoff.Initial.Duration,
			Multiplier:   s.Backoff.Multiplier,
			MaxDelay:     s.Backoff.Max.Duration,
			Jitter:       s.Backoff.Jitter,
		},
	}
}

// LoadClientConfig reads a TOML or YAML file over DefaultClientConfig.
// Unknown keys are rejected.
func LoadClientConfig(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if err := load(path, &cfg); err != nil {
		return ClientConfig{}, err
	}
	if err := ValidateClientConfig(cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

func LoadHostConfig(path string) (HostConfig, error) {
	cfg := DefaultHostConfig()
	if err := load(path, &cfg); err != nil {
		return HostConfig{}, err
	}
	if err := ValidateHostConfig(cfg); err != nil {
		return HostConfig{}, err
	}
	return cfg, nil
}

func load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(out); err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	default:
		meta, err := toml.Decode(string(data), out)
		if err != nil {
			return fmt.Errorf("config parse failed (%s): %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("config parse failed (%s): unknown key %q", path, undecoded[0].String())
		}
	}
	return nil
}

func ValidateClientConfig(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Node) == "" {
		return fmt.Errorf("client config missing node")
	}
	switch cfg.Transport.Kind {
	case TransportSerial:
		if strings.TrimSpace(cfg.Transport.Device) == "" {
			return fmt.Errorf("serial transport missing device")
		}
		if cfg.Transport.Baud <= 0 {
			return fmt.Errorf("serial transport invalid baud %d", cfg.Transport.Baud)
		}
	case TransportTCP:
		if strings.TrimSpace(cfg.Transport.Address) == "" {
			return fmt.Errorf("tcp transport missing address")
		}
	default:
		return fmt.Errorf("unknown transport kind: %q", cfg.Transport.Kind)
	}
	if err := cfg.SessionConfig().Validate(); err != nil {
		return fmt.Errorf("session config invalid: %w", err)
	}
	return nil
}

func ValidateHostConfig(cfg HostConfig) error {
	if strings.TrimSpace(cfg.Listen) == "" {
		return fmt.Errorf("host config missing listen")
	}
	if cfg.MaxPayload <= 0 {
		return fmt.Errorf("host config invalid max_payload %d", cfg.MaxPayload)
	}
	return nil
}
