// Package node is the client side of paramwire: a polling driver over a
// transport plus the blocking parameter getters built on it.
//
// A Node is not safe for concurrent use. All work happens inside SpinOnce,
// which the getters call in a loop while they wait.
package node

import (
	"errors"
	"fmt"
	"time"

	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/danmuck/paramwire/internal/observability"
	"github.com/danmuck/paramwire/internal/param"
	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/danmuck/paramwire/internal/protocol/session"
	"github.com/danmuck/paramwire/internal/transport"
)

var ErrNotConnected = errors.New("node: not connected")

// Clock supplies time to the node. Sleep is called between polls while a
// getter waits.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type systemClock struct{}

func (systemClock) Now() time.Time        { return time.Now() }
func (systemClock) Sleep(d time.Duration) { time.Sleep(d) }

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

type Option func(*Node)

func WithConfig(cfg session.Config) Option {
	return func(n *Node) { n.cfg = cfg }
}

func WithClock(c Clock) Option {
	return func(n *Node) {
		if c != nil {
			n.clock = c
		}
	}
}

// WithName overrides the node name sent in hello and used as the metrics label.
func WithName(name string) Option {
	return func(n *Node) { n.name = name }
}

// Stats counts traffic since the node was created.
type Stats struct {
	FramesIn  uint64
	FramesOut uint64
	BytesIn   uint64
	BytesOut  uint64
	Malformed uint64
	Requests  uint64
	Answered  uint64
	Failed    uint64
}

type Node struct {
	t     transport.Transport
	cfg   session.Config
	clock Clock
	name  string

	m       *session.Machine
	pending *session.PendingTable
	dec     *frame.Decoder
	rx      []byte
	nextID  uint32
	state   session.State
	stats   Stats
}

// readBudget bounds the bytes one SpinOnce consumes, in units of the
// largest frame.
const readBudget = 4

func New(t transport.Transport, opts ...Option) (*Node, error) {
	if t == nil {
		return nil, errors.New("node: nil transport")
	}
	n := &Node{
		t:     t,
		cfg:   session.DefaultConfig(),
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.name != "" {
		n.cfg.NodeName = n.name
	}
	n.cfg = n.cfg.WithDefaults()
	if err := n.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("node: %w", err)
	}
	n.name = n.cfg.NodeName
	n.m = session.NewMachine(n.cfg, nil)
	n.pending = session.NewPendingTable()
	n.dec = frame.NewDecoder(n.cfg.Limits())
	n.rx = make([]byte, 256)
	observability.SetConnectionState(n.name, int(session.Disconnected))
	return n, nil
}

// InitNode starts the handshake. It may be called again to restart it.
func (n *Node) InitNode() {
	now := n.clock.Now()
	if ev := n.m.Stop(); ev == session.EventDisconnected {
		n.onDisconnect()
	}
	n.dec.Reset()
	logs.Infof("node.InitNode name=%s max_payload=%d", n.name, n.cfg.MaxPayload)
	n.writeFrames(n.m.Start(now))
	n.syncState()
}

func (n *Node) Connected() bool {
	return n.m.Connected()
}

func (n *Node) State() session.State {
	return n.m.State()
}

func (n *Node) Name() string {
	return n.name
}

func (n *Node) Config() session.Config {
	return n.cfg
}

func (n *Node) Stats() Stats {
	return n.stats
}

// HostTime estimates the host clock from the last hello.ack or heartbeat.ack.
func (n *Node) HostTime() (time.Time, bool) {
	return n.m.HostTime(n.clock.Now())
}

// SpinOnce performs one non-blocking protocol step: it drains available
// input, dispatches complete frames in arrival order, advances handshake and
// heartbeat timers, and expires overdue requests.
func (n *Node) SpinOnce() {
	now := n.clock.Now()
	if !n.t.Connected() {
		if ev := n.m.LinkDown(now); ev == session.EventDisconnected {
			n.onDisconnect()
		}
		n.expire(now)
		n.syncState()
		return
	}

	n.readAvailable(now)
	ev, out := n.m.Tick(now)
	if ev == session.EventDisconnected {
		n.onDisconnect()
	}
	n.writeFrames(out)
	n.expire(now)
	n.syncState()
}

// WaitConnected spins until the session is up or timeout elapses.
func (n *Node) WaitConnected(timeout time.Duration) bool {
	deadline := n.clock.Now().Add(timeout)
	for {
		n.SpinOnce()
		if n.Connected() {
			return true
		}
		if !n.clock.Now().Before(deadline) {
			return false
		}
		n.clock.Sleep(n.cfg.PollInterval)
	}
}

// Shutdown tells the host the session is over and fails outstanding calls.
// No reconnect is scheduled.
func (n *Node) Shutdown() {
	if n.m.Connected() {
		n.writeFrames([]frame.Frame{session.DisconnectFrame()})
	}
	n.m.Stop()
	n.onDisconnect()
	n.syncState()
	logs.Infof("node.Shutdown name=%s", n.name)
}

func (n *Node) readAvailable(now time.Time) {
	budget := readBudget * frame.FrameLen(n.cfg.MaxPayload)
	for budget > 0 {
		want := min(n.dec.Free(), len(n.rx), budget)
		if want == 0 {
			n.drainFrames(now)
			if n.dec.Free() == 0 {
				n.dec.Reset()
			}
			continue
		}
		read, err := n.t.Read(n.rx[:want])
		if err != nil {
			logs.Warnf("node.SpinOnce read err=%v", err)
			if ev := n.m.LinkDown(now); ev == session.EventDisconnected {
				n.onDisconnect()
			}
			return
		}
		if read == 0 {
			break
		}
		budget -= read
		n.stats.BytesIn += uint64(read)
		n.dec.Feed(n.rx[:read])
		n.drainFrames(now)
	}
}

func (n *Node) drainFrames(now time.Time) {
	for {
		f, ok, err := n.dec.Next()
		if err != nil {
			n.stats.Malformed++
			observability.RecordMalformed(n.name)
			logs.Debugf("node.SpinOnce drop err=%v", err)
			continue
		}
		if !ok {
			return
		}
		n.dispatch(now, f)
	}
}

func (n *Node) dispatch(now time.Time, f frame.Frame) {
	n.stats.FramesIn++
	observability.RecordFrame(n.name, observability.DirectionRx, schema.Name(f.Type))
	if err := schema.ValidateInbound(f.Type, f.Payload, schema.HostToClient); err != nil {
		n.stats.Malformed++
		logs.Warnf("node.dispatch reject err=%v", err)
		return
	}

	ev, out := n.m.OnFrame(now, f)
	switch ev {
	case session.EventConnected:
		logs.Infof("node.dispatch connected name=%s session=%s", n.name, n.m.SessionID())
	case session.EventDisconnected:
		n.onDisconnect()
	}
	n.writeFrames(out)

	if f.Type != schema.MsgParamResponse {
		return
	}
	resp, err := param.DecodeResponse(f)
	if err != nil {
		n.stats.Malformed++
		logs.Warnf("node.dispatch param.response err=%v", err)
		return
	}
	if _, ok := n.pending.Resolve(resp); !ok {
		logs.Debugf("node.dispatch unmatched param.response id=%d name=%q", resp.ID, resp.Name)
	}
}

func (n *Node) expire(now time.Time) {
	for _, call := range n.pending.Expire(now) {
		logs.Debugf("node.expire id=%d name=%q", call.Request().ID, call.Request().Name)
	}
}

func (n *Node) onDisconnect() {
	failed := n.pending.FailAll(session.StatusDisconnected)
	n.dec.Reset()
	logs.Warnf("node.onDisconnect name=%s failed_calls=%d", n.name, len(failed))
}

func (n *Node) writeFrames(out []frame.Frame) {
	for _, f := range out {
		b, err := frame.Encode(f, n.m.Limits())
		if err != nil {
			logs.Errf("node.write encode type=%s err=%v", schema.Name(f.Type), err)
			continue
		}
		if f.Type == schema.MsgHello {
			observability.RecordHandshakeAttempt(n.name)
		}
		if err := n.writeRaw(f.Type, b); err != nil {
			logs.Warnf("node.write type=%s err=%v", schema.Name(f.Type), err)
		}
	}
}

func (n *Node) writeRaw(msgType uint16, b []byte) error {
	total := len(b)
	for len(b) > 0 {
		w, err := n.t.Write(b)
		if err != nil {
			return err
		}
		if w == 0 {
			return fmt.Errorf("node: short write %d/%d", total-len(b), total)
		}
		b = b[w:]
	}
	n.stats.FramesOut++
	n.stats.BytesOut += uint64(total)
	observability.RecordFrame(n.name, observability.DirectionTx, schema.Name(msgType))
	return nil
}

func (n *Node) syncState() {
	if s := n.m.State(); s != n.state {
		logs.Debugf("node.state name=%s %s -> %s", n.name, n.state, s)
		n.state = s
		observability.SetConnectionState(n.name, int(s))
	}
}
