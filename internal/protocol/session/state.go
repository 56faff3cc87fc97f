package session

import (
	"fmt"
	"math/rand"
	"time"

	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/google/uuid"
)

type State uint8

const (
	Disconnected State = iota
	Handshaking
	Connected
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Handshaking:
		return "handshaking"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// Event reports a connection edge produced by OnFrame, Tick or LinkDown.
type Event uint8

const (
	EventNone Event = iota
	EventConnected
	EventDisconnected
)

// Machine drives Disconnected -> Handshaking -> Connected and detects loss
// of liveness. It never skips Handshaking on the way up and may fall back to
// Disconnected from any state.
type Machine struct {
	cfg   Config
	rng   *rand.Rand
	state State

	started bool
	session uuid.UUID
	attempt int
	cycle   int

	lastHello     time.Time
	lastRx        time.Time
	lastHeartbeat time.Time
	heartbeatSeq  uint32

	retryArmed bool
	retryAt    time.Time

	limits     frame.Limits
	hostOffset time.Duration
	hostKnown  bool
}

func NewMachine(cfg Config, rng *rand.Rand) *Machine {
	cfg = cfg.WithDefaults()
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Machine{
		cfg:    cfg,
		rng:    rng,
		limits: cfg.Limits(),
	}
}

func (m *Machine) State() State               { return m.state }
func (m *Machine) Connected() bool            { return m.state == Connected }
func (m *Machine) SessionID() uuid.UUID       { return m.session }
func (m *Machine) Config() Config             { return m.cfg }
func (m *Machine) Limits() frame.Limits       { return m.limits }
func (m *Machine) RetryAt() (time.Time, bool) { return m.retryAt, m.retryArmed }

// HostTime estimates the host clock at now from the last ack carrying it.
func (m *Machine) HostTime(now time.Time) (time.Time, bool) {
	if !m.hostKnown {
		return time.Time{}, false
	}
	return now.Add(m.hostOffset), true
}

// Start begins a handshake with a fresh session id and returns the first hello.
func (m *Machine) Start(now time.Time) []frame.Frame {
	m.started = true
	m.state = Handshaking
	m.session = uuid.New()
	m.attempt = 1
	m.retryArmed = false
	m.limits = m.cfg.Limits()
	m.lastHello = now
	logs.Infof("session.Machine start node=%q session=%s cycle=%d", m.cfg.NodeName, m.session, m.cycle)
	return m.hello()
}

// Stop returns to Disconnected without scheduling a retry.
func (m *Machine) Stop() Event {
	ev := m.edge()
	m.started = false
	m.state = Disconnected
	m.retryArmed = false
	return ev
}

// LinkDown reports loss of the physical transport.
func (m *Machine) LinkDown(now time.Time) Event {
	if m.state == Disconnected {
		return EventNone
	}
	logs.Warnf("session.Machine link down state=%s", m.state)
	return m.drop(now)
}

// OnFrame consumes one inbound frame. Every frame refreshes liveness; frames
// the machine does not own are otherwise ignored.
func (m *Machine) OnFrame(now time.Time, f frame.Frame) (Event, []frame.Frame) {
	m.lastRx = now
	switch f.Type {
	case schema.MsgHelloAck:
		return m.onHelloAck(now, f), nil
	case schema.MsgHeartbeatAck:
		if m.state != Connected {
			return EventNone, nil
		}
		_, hostMS, err := DecodeHeartbeatAck(f)
		if err != nil {
			logs.Warnf("session.Machine heartbeat.ack err=%v", err)
			return EventNone, nil
		}
		m.setHostTime(now, hostMS)
	case schema.MsgDisconnect:
		if m.state != Disconnected {
			logs.Warnf("session.Machine host disconnect state=%s", m.state)
			return m.drop(now), nil
		}
	}
	return EventNone, nil
}

func (m *Machine) onHelloAck(now time.Time, f frame.Frame) Event {
	if m.state != Handshaking {
		logs.Debugf("session.Machine ignore hello.ack state=%s", m.state)
		return EventNone
	}
	ack, err := DecodeHelloAck(f)
	if err != nil {
		logs.Warnf("session.Machine hello.ack err=%v", err)
		return EventNone
	}
	if id, _ := uuid.FromBytes(ack.Session); id != m.session {
		logs.Debugf("session.Machine stale hello.ack session=%s want=%s", id, m.session)
		return EventNone
	}
	if ack.Status != AckStatusAccepted {
		logs.Warnf("session.Machine hello rejected session=%s message=%q", m.session, ack.Message)
		return m.drop(now)
	}

	m.state = Connected
	m.cycle = 0
	m.lastHeartbeat = now
	if host := int(ack.MaxPayload); host < m.limits.MaxPayloadBytes {
		m.limits.MaxPayloadBytes = host
	}
	if ack.HostTimeMS != 0 {
		m.setHostTime(now, ack.HostTimeMS)
	}
	logs.Infof(
		"session.Machine connected session=%s attempts=%d max_payload=%d",
		m.session,
		m.attempt,
		m.limits.MaxPayloadBytes,
	)
	return EventConnected
}

// Tick advances timers: hello retransmission and retry scheduling while not
// connected, heartbeats and the liveness check while connected.
func (m *Machine) Tick(now time.Time) (Event, []frame.Frame) {
	switch m.state {
	case Disconnected:
		if m.retryArmed && !now.Before(m.retryAt) {
			return EventNone, m.Start(now)
		}
	case Handshaking:
		if now.Sub(m.lastHello) < m.cfg.HandshakeInterval {
			return EventNone, nil
		}
		if m.attempt >= m.cfg.HandshakeAttempts {
			logs.Warnf("session.Machine handshake failed session=%s attempts=%d", m.session, m.attempt)
			return m.drop(now), nil
		}
		m.attempt++
		m.lastHello = now
		logs.Debugf("session.Machine resend hello session=%s attempt=%d", m.session, m.attempt)
		return EventNone, m.hello()
	case Connected:
		if now.Sub(m.lastRx) > m.cfg.LivenessWindow {
			logs.Warnf("session.Machine liveness expired silent=%v", now.Sub(m.lastRx))
			return m.drop(now), nil
		}
		if now.Sub(m.lastHeartbeat) >= m.cfg.HeartbeatInterval {
			m.lastHeartbeat = now
			m.heartbeatSeq++
			return EventNone, []frame.Frame{HeartbeatFrame(m.heartbeatSeq)}
		}
	}
	return EventNone, nil
}

// drop falls back to Disconnected and, once started, schedules a new
// handshake after the backoff delay for the current failure cycle.
func (m *Machine) drop(now time.Time) Event {
	ev := m.edge()
	m.state = Disconnected
	m.limits = m.cfg.Limits()
	if !m.started {
		return ev
	}
	m.cycle++
	m.retryArmed = true
	m.retryAt = now.Add(NextBackoffDelay(m.cfg.Backoff, m.cycle, m.rng))
	logs.Debugf("session.Machine retry scheduled in=%v cycle=%d", m.retryAt.Sub(now), m.cycle)
	return ev
}

func (m *Machine) edge() Event {
	if m.state == Connected {
		return EventDisconnected
	}
	return EventNone
}

func (m *Machine) hello() []frame.Frame {
	f, err := HelloFrame(Hello{
		Version:    ProtocolVersion,
		Node:       m.cfg.NodeName,
		Session:    m.session[:],
		MaxPayload: uint16(m.cfg.MaxPayload),
	})
	if err != nil {
		logs.Errf("session.Machine build hello err=%v", err)
		return nil
	}
	return []frame.Frame{f}
}

func (m *Machine) setHostTime(now time.Time, hostMS uint64) {
	m.hostOffset = time.UnixMilli(int64(hostMS)).Sub(now)
	m.hostKnown = true
}
