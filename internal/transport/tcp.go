package transport

import (
	"net"
	"sync"
	"time"

	logs "github.com/danmuck/paramwire/internal/logging"
	"github.com/pkg/errors"
)

const (
	tcpPollWait     = time.Millisecond
	tcpWriteTimeout = time.Second
)

// TCP wraps a stream connection. Reads poll with a short deadline so an idle
// link reads as 0 bytes rather than blocking.
type TCP struct {
	mu   sync.Mutex
	conn net.Conn
	up   bool
}

func DialTCP(addr string, timeout time.Duration) (*TCP, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial tcp %s", addr)
	}
	logs.Infof("transport.DialTCP connected addr=%s", conn.RemoteAddr())
	return NewTCP(conn), nil
}

func NewTCP(conn net.Conn) *TCP {
	return &TCP{conn: conn, up: true}
}

func (t *TCP) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.up
}

func (t *TCP) Read(p []byte) (int, error) {
	if !t.Connected() {
		return 0, ErrClosed
	}
	if err := t.conn.SetReadDeadline(time.Now().Add(tcpPollWait)); err != nil {
		return 0, t.fail(errors.Wrap(err, "transport: set read deadline"))
	}
	n, err := t.conn.Read(p)
	if err == nil {
		return n, nil
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return n, nil
	}
	return n, t.fail(errors.Wrapf(err, "transport: read %s", t.conn.RemoteAddr()))
}

func (t *TCP) Write(p []byte) (int, error) {
	if !t.Connected() {
		return 0, ErrClosed
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(tcpWriteTimeout)); err != nil {
		return 0, t.fail(errors.Wrap(err, "transport: set write deadline"))
	}
	n, err := t.conn.Write(p)
	if err != nil {
		return n, t.fail(errors.Wrapf(err, "transport: write %s", t.conn.RemoteAddr()))
	}
	return n, nil
}

func (t *TCP) Close() error {
	t.mu.Lock()
	t.up = false
	t.mu.Unlock()
	return t.conn.Close()
}

func (t *TCP) fail(err error) error {
	t.mu.Lock()
	wasUp := t.up
	t.up = false
	t.mu.Unlock()
	if wasUp {
		logs.Warnf("transport.TCP link down err=%v", err)
	}
	_ = t.conn.Close()
	return err
}
