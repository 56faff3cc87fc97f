package node

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/danmuck/paramwire/internal/observability"
	"github.com/danmuck/paramwire/internal/param"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/danmuck/paramwire/internal/protocol/session"
)

var (
	ErrStringTooLong = errors.New("node: string exceeds buffer")
	ErrDestination   = errors.New("node: destination too small")
)

// Request registers a parameter request and writes exactly one request
// frame. It does not wait; the returned call completes inside SpinOnce.
func (n *Node) Request(name string, kind param.Kind, count int) (*session.Call, error) {
	if !n.m.Connected() {
		return nil, ErrNotConnected
	}
	// Range-check before narrowing to the uint32 wire count.
	if count < 1 || count > param.MaxArrayLen || (!kind.IsArray() && count != 1) {
		return nil, fmt.Errorf("%w: count %d for %s", param.ErrInvalidRequest, count, kind)
	}
	req := param.Request{ID: n.nextID + 1, Name: name, Kind: kind, Count: uint32(count)}
	b, err := param.EncodeRequestFrame(req, n.m.Limits())
	if err != nil {
		return nil, err
	}
	n.nextID = req.ID

	now := n.clock.Now()
	call, prev := n.pending.Register(req, now, now.Add(n.cfg.ParamTimeout))
	if prev != nil {
		logs.Warnf("node.Request superseded id=%d name=%q by id=%d", prev.Request().ID, name, req.ID)
	}
	if err := n.writeRaw(schema.MsgParamRequest, b); err != nil {
		n.pending.Forget(call)
		return nil, err
	}
	n.stats.Requests++
	logs.Debugf("node.Request id=%d name=%q kind=%s count=%d", req.ID, name, kind, count)
	return call, nil
}

// Await spins until call completes and returns its error, nil on success.
func (n *Node) Await(call *session.Call) error {
	for !call.Done() {
		n.SpinOnce()
		if call.Done() {
			break
		}
		n.clock.Sleep(n.cfg.PollInterval)
	}
	n.pending.Forget(call)
	return call.Err()
}

// Fetch requests name and waits for a value of exactly kind and count.
func (n *Node) Fetch(name string, kind param.Kind, count int) (param.Value, error) {
	start := n.clock.Now()
	call, err := n.Request(name, kind, count)
	if err != nil {
		n.record(kind, err, start)
		return param.Value{}, err
	}
	err = n.Await(call)
	n.record(kind, err, start)
	if err != nil {
		return param.Value{}, err
	}
	resp, _ := call.Response()
	return resp.Value, nil
}

func (n *Node) GetInt(name string, dst *int32) bool {
	if dst == nil {
		return false
	}
	v, err := n.Fetch(name, param.KindInt32, 1)
	if err != nil {
		return n.fail(name, err)
	}
	*dst, _ = v.AsInt32()
	return true
}

func (n *Node) GetFloat(name string, dst *float32) bool {
	if dst == nil {
		return false
	}
	v, err := n.Fetch(name, param.KindFloat32, 1)
	if err != nil {
		return n.fail(name, err)
	}
	*dst, _ = v.AsFloat32()
	return true
}

// GetString copies the value into dst followed by a NUL byte. It fails
// without writing when the value and terminator do not fit in len(dst).
func (n *Node) GetString(name string, dst []byte) bool {
	if len(dst) == 0 {
		return false
	}
	v, err := n.Fetch(name, param.KindString, 1)
	if err != nil {
		return n.fail(name, err)
	}
	s, _ := v.AsString()
	if len(s)+1 > len(dst) {
		return n.fail(name, fmt.Errorf("%w: len=%d buffer=%d", ErrStringTooLong, len(s), len(dst)))
	}
	putCString(dst, s)
	return true
}

// GetInts fills dst[:count] when the host array has exactly count elements.
func (n *Node) GetInts(name string, dst []int32, count int) bool {
	if count <= 0 || count > len(dst) {
		return n.fail(name, fmt.Errorf("%w: count=%d len=%d", ErrDestination, count, len(dst)))
	}
	v, err := n.Fetch(name, param.KindInt32Array, count)
	if err != nil {
		return n.fail(name, err)
	}
	vs, _ := v.AsInt32s()
	copy(dst[:count], vs)
	return true
}

func (n *Node) GetFloats(name string, dst []float32, count int) bool {
	if count <= 0 || count > len(dst) {
		return n.fail(name, fmt.Errorf("%w: count=%d len=%d", ErrDestination, count, len(dst)))
	}
	v, err := n.Fetch(name, param.KindFloat32Array, count)
	if err != nil {
		return n.fail(name, err)
	}
	vs, _ := v.AsFloat32s()
	copy(dst[:count], vs)
	return true
}

// GetStrings fills dst[:count] with NUL-terminated values. Every value is
// checked against its buffer before any buffer is written.
func (n *Node) GetStrings(name string, dst [][]byte, count int) bool {
	if count <= 0 || count > len(dst) {
		return n.fail(name, fmt.Errorf("%w: count=%d len=%d", ErrDestination, count, len(dst)))
	}
	v, err := n.Fetch(name, param.KindStringArray, count)
	if err != nil {
		return n.fail(name, err)
	}
	vs, _ := v.AsStrings()
	for i, s := range vs {
		if len(s)+1 > len(dst[i]) {
			return n.fail(name, fmt.Errorf("%w: index=%d len=%d buffer=%d", ErrStringTooLong, i, len(s), len(dst[i])))
		}
	}
	for i, s := range vs {
		putCString(dst[i], s)
	}
	return true
}

// CString returns the bytes of buf before the first NUL.
func CString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		return string(buf[:i])
	}
	return string(buf)
}

func putCString(dst []byte, s string) {
	copy(dst, s)
	dst[len(s)] = 0
}

func (n *Node) fail(name string, err error) bool {
	n.stats.Failed++
	logs.Debugf("node.get name=%q err=%v", name, err)
	return false
}

func (n *Node) record(kind param.Kind, err error, start time.Time) {
	if err == nil {
		n.stats.Answered++
	}
	observability.RecordParamRequest(n.name, kind.String(), resultLabel(err), n.clock.Now().Sub(start))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotConnected):
		return "not_connected"
	case errors.Is(err, param.ErrNotFound):
		return "not_found"
	case errors.Is(err, param.ErrKindMismatch):
		return "kind_mismatch"
	case errors.Is(err, param.ErrCountMismatch):
		return "count_mismatch"
	case errors.Is(err, session.ErrTimeout):
		return "timeout"
	case errors.Is(err, session.ErrSuperseded):
		return "superseded"
	case errors.Is(err, session.ErrDisconnected):
		return "disconnected"
	case errors.Is(err, param.ErrInvalidRequest):
		return "invalid"
	default:
		return "error"
	}
}
