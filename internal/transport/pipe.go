package transport

import "sync"

// pipe is an in-memory link with one bounded buffer per direction.
type pipe struct {
	mu       sync.Mutex
	capacity int
	buf      [2][]byte
	down     bool
}

// PipeEnd is one side of an in-memory link. Both ends are safe for use from
// different goroutines.
type PipeEnd struct {
	p    *pipe
	side int
}

// NewPipe returns two connected ends. Each direction holds at most capacity
// unread bytes; writes past that are short.
func NewPipe(capacity int) (*PipeEnd, *PipeEnd) {
	if capacity <= 0 {
		capacity = 4096
	}
	p := &pipe{capacity: capacity}
	return &PipeEnd{p: p, side: 0}, &PipeEnd{p: p, side: 1}
}

func (e *PipeEnd) Connected() bool {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return !e.p.down
}

func (e *PipeEnd) Read(b []byte) (int, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if e.p.down {
		return 0, ErrClosed
	}
	in := e.p.buf[e.side]
	n := copy(b, in)
	e.p.buf[e.side] = in[:copy(in, in[n:])]
	return n, nil
}

func (e *PipeEnd) Write(b []byte) (int, error) {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	if e.p.down {
		return 0, ErrClosed
	}
	return e.p.push(1-e.side, b), nil
}

// Inject queues raw bytes for this end to read, as if the peer sent them.
func (e *PipeEnd) Inject(b []byte) int {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return e.p.push(e.side, b)
}

// Drop takes the link down for both ends and discards buffered bytes.
func (e *PipeEnd) Drop() {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	e.p.down = true
	e.p.buf[0], e.p.buf[1] = nil, nil
}

// Restore brings a dropped link back up with empty buffers.
func (e *PipeEnd) Restore() {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	e.p.down = false
}

func (e *PipeEnd) Close() error {
	e.Drop()
	return nil
}

// Pending reports how many bytes are waiting for this end to read.
func (e *PipeEnd) Pending() int {
	e.p.mu.Lock()
	defer e.p.mu.Unlock()
	return len(e.p.buf[e.side])
}

func (p *pipe) push(side int, b []byte) int {
	room := p.capacity - len(p.buf[side])
	if room <= 0 {
		return 0
	}
	if len(b) > room {
		b = b[:room]
	}
	p.buf[side] = append(p.buf[side], b...)
	return len(b)
}
