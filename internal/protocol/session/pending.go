package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/paramwire/internal/param"
	"github.com/emirpasic/gods/maps/treemap"
)

type CallStatus uint8

const (
	StatusPending CallStatus = iota
	StatusAnswered
	StatusTimedOut
	StatusSuperseded
	StatusDisconnected
)

func (s CallStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAnswered:
		return "answered"
	case StatusTimedOut:
		return "timeout"
	case StatusSuperseded:
		return "superseded"
	case StatusDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

var (
	ErrTimeout      = errors.New("session: request timed out")
	ErrSuperseded   = errors.New("session: request superseded")
	ErrDisconnected = errors.New("session: disconnected")
	ErrPending      = errors.New("session: request pending")
)

// Call tracks one outstanding parameter request.
type Call struct {
	req      param.Request
	issuedAt time.Time
	deadline time.Time
	status   CallStatus
	resp     param.Response
}

func (c *Call) Request() param.Request { return c.req }
func (c *Call) IssuedAt() time.Time    { return c.issuedAt }
func (c *Call) Deadline() time.Time    { return c.deadline }
func (c *Call) Status() CallStatus     { return c.status }
func (c *Call) Done() bool             { return c.status != StatusPending }

// Response returns the host answer once the call was answered.
func (c *Call) Response() (param.Response, bool) {
	if c.status != StatusAnswered {
		return param.Response{}, false
	}
	return c.resp, true
}

// Err is nil only for an answered call whose value matches the request.
func (c *Call) Err() error {
	switch c.status {
	case StatusPending:
		return ErrPending
	case StatusAnswered:
		return c.resp.Match(c.req)
	case StatusTimedOut:
		return ErrTimeout
	case StatusSuperseded:
		return ErrSuperseded
	default:
		return ErrDisconnected
	}
}

// PendingTable stores outstanding calls by parameter name, at most one per
// name. It is not safe for concurrent use.
type PendingTable struct {
	items *treemap.Map
}

func NewPendingTable() *PendingTable {
	return &PendingTable{items: treemap.NewWithStringComparator()}
}

// Register adds a call for req. An outstanding call on the same name is
// completed as superseded and returned so its owner can observe the failure.
func (p *PendingTable) Register(req param.Request, now, deadline time.Time) (call *Call, superseded *Call) {
	if prev, ok := p.Get(req.Name); ok {
		prev.status = StatusSuperseded
		superseded = prev
	}
	call = &Call{req: req, issuedAt: now, deadline: deadline}
	p.items.Put(req.Name, call)
	return call, superseded
}

func (p *PendingTable) Get(name string) (*Call, bool) {
	v, ok := p.items.Get(name)
	if !ok {
		return nil, false
	}
	return v.(*Call), true
}

// Resolve completes the call matching resp by name and request id. Responses
// for abandoned or replaced calls do not match and are reported as false.
func (p *PendingTable) Resolve(resp param.Response) (*Call, bool) {
	call, ok := p.Get(resp.Name)
	if !ok || call.req.ID != resp.ID {
		return nil, false
	}
	call.status = StatusAnswered
	call.resp = resp
	p.items.Remove(resp.Name)
	return call, true
}

// Expire completes and removes every call whose deadline has passed.
func (p *PendingTable) Expire(now time.Time) []*Call {
	var expired []*Call
	for _, v := range p.items.Values() {
		call := v.(*Call)
		if now.Before(call.deadline) {
			continue
		}
		call.status = StatusTimedOut
		expired = append(expired, call)
	}
	for _, call := range expired {
		p.items.Remove(call.req.Name)
	}
	return expired
}

// FailAll completes every outstanding call with status and empties the table.
func (p *PendingTable) FailAll(status CallStatus) []*Call {
	out := make([]*Call, 0, p.items.Size())
	for _, v := range p.items.Values() {
		call := v.(*Call)
		call.status = status
		out = append(out, call)
	}
	p.items.Clear()
	return out
}

// Forget removes call if it is still the registered call for its name.
func (p *PendingTable) Forget(call *Call) {
	if cur, ok := p.Get(call.req.Name); ok && cur == call {
		p.items.Remove(call.req.Name)
	}
}

func (p *PendingTable) Len() int {
	return p.items.Size()
}

// Names returns outstanding parameter names in sorted order.
func (p *PendingTable) Names() []string {
	keys := p.items.Keys()
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k.(string))
	}
	return out
}
