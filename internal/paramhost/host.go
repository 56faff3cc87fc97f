// Package paramhost is a reference host that serves a parameter store to a
// single client over a transport.
package paramhost

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/danmuck/paramwire/internal/observability"
	"github.com/danmuck/paramwire/internal/param"
	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/danmuck/paramwire/internal/protocol/session"
	"github.com/danmuck/paramwire/internal/transport"
)

const readChunk = 256

type Option func(*Host)

// WithLimits sets the largest payload the host accepts and sends.
func WithLimits(l frame.Limits) Option {
	return func(h *Host) {
		if l.Validate() == nil {
			h.limits = l
		}
	}
}

// WithClock sets the host clock reported in hello.ack and heartbeat.ack.
func WithClock(now func() time.Time) Option {
	return func(h *Host) {
		if now != nil {
			h.now = now
		}
	}
}

func WithName(name string) Option {
	return func(h *Host) {
		if name != "" {
			h.name = name
		}
	}
}

// Host answers hello, heartbeat and param.request frames. It is driven by
// Step or Run from a single goroutine; SetMute may be called from any.
type Host struct {
	t      transport.Transport
	store  *Store
	limits frame.Limits
	now    func() time.Time
	name   string

	dec     *frame.Decoder
	buf     []byte
	session []byte
	peer    string
	send    frame.Limits

	muted    atomic.Bool
	answered atomic.Uint64
}

func NewHost(t transport.Transport, store *Store, opts ...Option) *Host {
	h := &Host{
		t:      t,
		store:  store,
		limits: frame.DefaultLimits(),
		now:    time.Now,
		name:   "paramhost",
		buf:    make([]byte, readChunk),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.dec = frame.NewDecoder(h.limits)
	h.send = h.limits
	return h
}

// SetMute makes the host drain input without replying.
func (h *Host) SetMute(muted bool) {
	h.muted.Store(muted)
}

// Answered reports how many param.request frames received a response.
func (h *Host) Answered() uint64 {
	return h.answered.Load()
}

// Step drains whatever the transport has buffered and answers every complete
// frame. It never blocks and returns the number of frames handled.
func (h *Host) Step() (int, error) {
	handled := 0
	for {
		if !h.t.Connected() {
			return handled, transport.ErrClosed
		}
		free := h.dec.Free()
		if free > len(h.buf) {
			free = len(h.buf)
		}
		n := 0
		if free > 0 {
			var err error
			n, err = h.t.Read(h.buf[:free])
			if err != nil {
				return handled, err
			}
			h.dec.Feed(h.buf[:n])
		}
		progressed := false
		for {
			f, ok, err := h.dec.Next()
			if err != nil {
				logs.Debugf("paramhost.Step drop err=%v", err)
				observability.RecordMalformed(h.name)
				progressed = true
				continue
			}
			if !ok {
				break
			}
			progressed = true
			handled++
			if err := h.handle(f); err != nil {
				return handled, err
			}
		}
		if n == 0 && !progressed {
			return handled, nil
		}
	}
}

// Run steps every interval until ctx is done or the transport fails.
func (h *Host) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := h.Step(); err != nil {
			if errors.Is(err, transport.ErrClosed) {
				logs.Infof("paramhost.Run transport closed name=%s", h.name)
			}
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (h *Host) handle(f frame.Frame) error {
	observability.RecordFrame(h.name, observability.DirectionRx, schema.Name(f.Type))
	if err := schema.ValidateInbound(f.Type, f.Payload, schema.ClientToHost); err != nil {
		logs.Warnf("paramhost.handle reject err=%v", err)
		return nil
	}
	if h.muted.Load() {
		logs.Tracef("paramhost.handle muted drop type=%s", schema.Name(f.Type))
		return nil
	}
	switch f.Type {
	case schema.MsgHello:
		return h.onHello(f)
	case schema.MsgHeartbeat:
		seq, err := session.DecodeHeartbeat(f)
		if err != nil {
			logs.Warnf("paramhost.handle heartbeat err=%v", err)
			return nil
		}
		return h.write(session.HeartbeatAckFrame(seq, h.nowMS()))
	case schema.MsgParamRequest:
		return h.onRequest(f)
	case schema.MsgDisconnect:
		logs.Infof("paramhost.handle peer disconnect node=%q", h.peer)
		h.session = nil
		h.send = h.limits
	}
	return nil
}

func (h *Host) onHello(f frame.Frame) error {
	hello, err := session.DecodeHello(f)
	if err != nil {
		logs.Warnf("paramhost.onHello err=%v", err)
		return nil
	}
	maxPayload := h.limits.MaxPayloadBytes
	if int(hello.MaxPayload) < maxPayload {
		maxPayload = int(hello.MaxPayload)
	}
	ack, err := session.HelloAckFrame(session.HelloAck{
		Session:    hello.Session,
		Status:     session.AckStatusAccepted,
		MaxPayload: uint16(maxPayload),
		HostTimeMS: h.nowMS(),
	})
	if err != nil {
		return err
	}
	h.session = hello.Session
	h.peer = hello.Node
	h.send = frame.Limits{MaxPayloadBytes: maxPayload}
	logs.Infof("paramhost.onHello accepted node=%q max_payload=%d", hello.Node, maxPayload)
	return h.write(ack)
}

func (h *Host) onRequest(f frame.Frame) error {
	req, err := param.DecodeRequest(f)
	if err != nil {
		logs.Warnf("paramhost.onRequest err=%v", err)
		return nil
	}
	resp := param.Response{ID: req.ID, Name: req.Name}
	if v, ok := h.store.Get(req.Name); ok {
		resp.Found = true
		resp.Value = v
	}
	b, err := param.EncodeResponseFrame(resp, h.send)
	if errors.Is(err, frame.ErrPayloadTooLarge) {
		logs.Warnf("paramhost.onRequest %q does not fit max_payload=%d", req.Name, h.send.MaxPayloadBytes)
		b, err = param.EncodeResponseFrame(param.Response{ID: req.ID, Name: req.Name}, h.send)
	}
	if err != nil {
		return err
	}
	logs.Debugf("paramhost.onRequest id=%d name=%q found=%t", req.ID, req.Name, resp.Found)
	h.answered.Add(1)
	return h.writeRaw(schema.MsgParamResponse, b)
}

func (h *Host) write(f frame.Frame) error {
	b, err := frame.Encode(f, h.send)
	if err != nil {
		return err
	}
	return h.writeRaw(f.Type, b)
}

func (h *Host) writeRaw(msgType uint16, b []byte) error {
	for len(b) > 0 {
		n, err := h.t.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			logs.Warnf("paramhost.write transport full, dropped type=%s remaining=%d", schema.Name(msgType), len(b))
			return nil
		}
		b = b[n:]
	}
	observability.RecordFrame(h.name, observability.DirectionTx, schema.Name(msgType))
	return nil
}

func (h *Host) nowMS() uint64 {
	return uint64(h.now().UnixMilli())
}
