package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/paramwire/internal/paramhost"
	"github.com/danmuck/paramwire/internal/protocol/session"
	"github.com/danmuck/paramwire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestClientTemplateMatchesDefaults(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "client.toml")
	require.NoError(t, WriteTemplate(path, "client", false))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultClientConfig(), cfg)
	assert.Equal(t, session.DefaultConfig(), cfg.SessionConfig())
}

func TestLoadClientConfigOverlaysDefaults(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "client.toml", `
node = "rover"

[transport]
kind = "serial"
device = "/dev/ttyACM0"

[session]
param_timeout = "750ms"

[session.backoff]
jitter = false
`)
	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "rover", cfg.Node)
	assert.Equal(t, TransportSerial, cfg.Transport.Kind)
	assert.Equal(t, 115200, cfg.Transport.Baud)
	assert.Equal(t, 750*time.Millisecond, cfg.Session.ParamTimeout.Duration)
	assert.Equal(t, 15*time.Second, cfg.Session.LivenessWindow.Duration)
	assert.False(t, cfg.Session.Backoff.Jitter)
	assert.Equal(t, "rover", cfg.SessionConfig().NodeName)
}

func TestLoadClientConfigYAML(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, WriteTemplate(path, "client-yaml", false))

	cfg, err := LoadClientConfig(path)
	require.NoError(t, err)
	assert.Equal(t, TransportSerial, cfg.Transport.Kind)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Transport.Device)
	assert.Equal(t, 2*time.Second, cfg.Session.ParamTimeout.Duration)
}

func TestLoadClientConfigRejectsUnknownKeys(t *testing.T) {
	testlog.Start(t)
	_, err := LoadClientConfig(writeFile(t, "bad.toml", "nod = \"typo\"\n"))
	assert.ErrorContains(t, err, "unknown key")

	_, err = LoadClientConfig(writeFile(t, "bad.yaml", "nod: typo\n"))
	assert.Error(t, err)
}

func TestValidateClientConfig(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultClientConfig()
	cfg.Transport.Kind = "usb"
	assert.ErrorContains(t, ValidateClientConfig(cfg), "unknown transport kind")

	cfg = DefaultClientConfig()
	cfg.Transport.Kind = TransportSerial
	assert.ErrorContains(t, ValidateClientConfig(cfg), "missing device")

	cfg = DefaultClientConfig()
	cfg.Session.LivenessWindow = Duration{time.Second}
	assert.ErrorContains(t, ValidateClientConfig(cfg), "session config invalid")
}

func TestHostAndParamsTemplates(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	hostPath := filepath.Join(dir, "host.toml")
	require.NoError(t, WriteTemplate(hostPath, "host", false))
	hostCfg, err := LoadHostConfig(hostPath)
	require.NoError(t, err)
	assert.Equal(t, ":11411", hostCfg.Listen)
	assert.Equal(t, "params.toml", hostCfg.ParamsFile)

	paramsPath := filepath.Join(dir, "params.toml")
	require.NoError(t, WriteTemplate(paramsPath, "params", false))
	store, err := paramhost.LoadStore(paramsPath)
	require.NoError(t, err)
	assert.Contains(t, store.Names(), "motor.max_rpm")
}

func TestWriteTemplateRespectsOverwrite(t *testing.T) {
	testlog.Start(t)
	path := writeFile(t, "client.toml", "existing")
	assert.ErrorContains(t, WriteTemplate(path, "client", false), "already exists")
	require.NoError(t, WriteTemplate(path, "client", true))

	_, err := Template("nope")
	assert.Error(t, err)
}
