package session

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/danmuck/paramwire/internal/testutil/testlog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NodeName = "test-node"
	cfg.Backoff.Jitter = false
	return cfg
}

func ackFor(t *testing.T, session uuid.UUID, status uint8, maxPayload uint16, hostMS uint64) frame.Frame {
	t.Helper()
	f, err := HelloAckFrame(HelloAck{Session: session[:], Status: status, MaxPayload: maxPayload, HostTimeMS: hostMS})
	require.NoError(t, err)
	return f
}

func connect(t *testing.T, m *Machine, now time.Time) {
	t.Helper()
	out := m.Start(now)
	require.Len(t, out, 1)
	ev, _ := m.OnFrame(now, ackFor(t, m.SessionID(), AckStatusAccepted, 4096, 0))
	require.Equal(t, EventConnected, ev)
}

func TestStartSendsHello(t *testing.T) {
	testlog.Start(t)
	m := NewMachine(testConfig(), rand.New(rand.NewSource(1)))
	assert.Equal(t, Disconnected, m.State())

	out := m.Start(time.Unix(1700000000, 0))
	require.Len(t, out, 1)
	assert.Equal(t, Handshaking, m.State())

	h, err := DecodeHello(out[0])
	require.NoError(t, err)
	assert.Equal(t, "test-node", h.Node)
	assert.Equal(t, m.SessionID().String(), uuid.Must(uuid.FromBytes(h.Session)).String())
	assert.Equal(t, uint16(1024), h.MaxPayload)
}

func TestHelloAckNegotiatesLimitsAndHostTime(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(1700000000, 0)
	m := NewMachine(testConfig(), nil)
	m.Start(now)

	ev, _ := m.OnFrame(now, ackFor(t, m.SessionID(), AckStatusAccepted, 256, uint64(now.Add(time.Minute).UnixMilli())))
	require.Equal(t, EventConnected, ev)
	assert.True(t, m.Connected())
	assert.Equal(t, 256, m.Limits().MaxPayloadBytes)

	host, ok := m.HostTime(now.Add(time.Second))
	require.True(t, ok)
	assert.Equal(t, now.Add(time.Minute+time.Second).UnixMilli(), host.UnixMilli())
}

func TestStaleHelloAckIgnored(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(1700000000, 0)
	m := NewMachine(testConfig(), nil)
	m.Start(now)

	ev, _ := m.OnFrame(now, ackFor(t, uuid.New(), AckStatusAccepted, 1024, 0))
	assert.Equal(t, EventNone, ev)
	assert.Equal(t, Handshaking, m.State())
}

func TestHelloAckIgnoredOutsideHandshake(t *testing.T) {
	testlog.Start(t)
	m := NewMachine(testConfig(), nil)
	ev, _ := m.OnFrame(time.Unix(1700000000, 0), ackFor(t, uuid.New(), AckStatusAccepted, 1024, 0))
	assert.Equal(t, EventNone, ev)
	assert.Equal(t, Disconnected, m.State())
}

func TestHandshakeRetriesThenBacksOff(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.HandshakeAttempts = 3
	now := time.Unix(1700000000, 0)
	m := NewMachine(cfg, nil)
	m.Start(now)

	_, out := m.Tick(now.Add(100 * time.Millisecond))
	assert.Empty(t, out, "hello resent before interval")

	hellos := 1
	for i := 1; i <= 2; i++ {
		_, out = m.Tick(now.Add(time.Duration(i) * cfg.HandshakeInterval))
		require.Len(t, out, 1)
		assert.Equal(t, schema.MsgHello, out[0].Type)
		hellos++
	}
	assert.Equal(t, cfg.HandshakeAttempts, hellos)

	failAt := now.Add(3 * cfg.HandshakeInterval)
	ev, out := m.Tick(failAt)
	assert.Equal(t, EventNone, ev)
	assert.Empty(t, out)
	assert.Equal(t, Disconnected, m.State())

	retryAt, armed := m.RetryAt()
	require.True(t, armed)
	assert.Equal(t, failAt.Add(cfg.Backoff.InitialDelay), retryAt)

	_, out = m.Tick(retryAt.Add(-time.Millisecond))
	assert.Empty(t, out)
	first := m.SessionID()
	_, out = m.Tick(retryAt)
	require.Len(t, out, 1)
	assert.Equal(t, Handshaking, m.State())
	assert.NotEqual(t, first, m.SessionID())
}

func TestRejectedHelloSchedulesRetry(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(1700000000, 0)
	m := NewMachine(testConfig(), nil)
	m.Start(now)
	ev, _ := m.OnFrame(now, ackFor(t, m.SessionID(), AckStatusRejected, 0, 0))
	assert.Equal(t, EventNone, ev)
	assert.Equal(t, Disconnected, m.State())
	_, armed := m.RetryAt()
	assert.True(t, armed)
}

func TestHeartbeatCadence(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	now := time.Unix(1700000000, 0)
	m := NewMachine(cfg, nil)
	connect(t, m, now)

	_, out := m.Tick(now.Add(cfg.HeartbeatInterval - time.Millisecond))
	assert.Empty(t, out)

	_, out = m.Tick(now.Add(cfg.HeartbeatInterval))
	require.Len(t, out, 1)
	seq, err := DecodeHeartbeat(out[0])
	require.NoError(t, err)
	assert.Equal(t, uint32(1), seq)
}

func TestLivenessExpiryDisconnects(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	now := time.Unix(1700000000, 0)
	m := NewMachine(cfg, nil)
	connect(t, m, now)

	ev, _ := m.OnFrame(now.Add(10*time.Second), HeartbeatAckFrame(1, 0))
	assert.Equal(t, EventNone, ev)

	ev, _ = m.Tick(now.Add(10*time.Second + cfg.LivenessWindow))
	assert.Equal(t, EventNone, ev)
	assert.True(t, m.Connected())

	ev, _ = m.Tick(now.Add(10*time.Second + cfg.LivenessWindow + time.Millisecond))
	assert.Equal(t, EventDisconnected, ev)
	assert.Equal(t, Disconnected, m.State())
	assert.Equal(t, cfg.MaxPayload, m.Limits().MaxPayloadBytes)
}

func TestHostDisconnectAndLinkDown(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(1700000000, 0)
	m := NewMachine(testConfig(), nil)
	connect(t, m, now)

	ev, _ := m.OnFrame(now, DisconnectFrame())
	assert.Equal(t, EventDisconnected, ev)
	assert.Equal(t, EventNone, m.LinkDown(now))

	connect(t, m, now)
	assert.Equal(t, EventDisconnected, m.LinkDown(now))
}

func TestStopDoesNotRetry(t *testing.T) {
	testlog.Start(t)
	now := time.Unix(1700000000, 0)
	m := NewMachine(testConfig(), nil)
	connect(t, m, now)
	assert.Equal(t, EventDisconnected, m.Stop())
	_, armed := m.RetryAt()
	assert.False(t, armed)
	_, out := m.Tick(now.Add(time.Hour))
	assert.Empty(t, out)
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.LivenessWindow = cfg.HeartbeatInterval
	assert.True(t, errors.Is(cfg.Validate(), ErrLivenessTooTight))

	cfg = DefaultConfig()
	cfg.MaxPayload = 64
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.HandshakeAttempts = -1
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	filled := Config{NodeName: "x"}.WithDefaults()
	assert.Equal(t, "x", filled.NodeName)
	assert.Equal(t, DefaultConfig().ParamTimeout, filled.ParamTimeout)
}
