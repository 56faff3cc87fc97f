package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "client":
		return clientTemplate, nil
	case "client-yaml":
		return clientYAMLTemplate, nil
	case "host":
		return hostTemplate, nil
	case "params":
		return paramsTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const clientTemplate = `node = "paramwire"

[transport]
kind = "tcp"
address = "localhost:11411"
dial_timeout = "2s"
# kind = "serial"
# device = "/dev/ttyUSB0"
# baud = 115200

[session]
handshake_interval = "500ms"
handshake_attempts = 5
heartbeat_interval = "5s"
liveness_window = "15s"
param_timeout = "2s"
poll_interval = "10ms"
connect_timeout = "5s"
max_payload = 1024

[session.backoff]
initial = "250ms"
multiplier = 2.0
max = "5s"
jitter = true
`

const clientYAMLTemplate = `node: paramwire
transport:
  kind: serial
  device: /dev/ttyUSB0
  baud: 115200
session:
  param_timeout: 2s
  liveness_window: 15s
`

const hostTemplate = `listen = ":11411"
params_file = "params.toml"
max_payload = 1024
metrics = ""
`

const paramsTemplate = `int = 42
float = 3.14
string = "hello"
int_array = [1, 2, 3]
float_array = [0.5, 1.5, 2.5]
string_array = ["a", "bb", "ccc"]

[motor]
max_rpm = 3000
gain = 0.25
`
