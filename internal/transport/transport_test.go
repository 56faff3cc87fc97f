package transport

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/danmuck/paramwire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Transport = (*PipeEnd)(nil)
	_ Transport = (*TCP)(nil)
	_ Transport = (*Serial)(nil)
)

func TestPipeDeliversBothDirections(t *testing.T) {
	testlog.Start(t)
	a, b := NewPipe(16)

	n, err := a.Write([]byte("ping"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, 4, b.Pending())

	buf := make([]byte, 8)
	n, err = b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf[:n]))

	n, err = a.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = b.Write([]byte("pong"))
	require.NoError(t, err)
	n, _ = a.Read(buf[:2])
	assert.Equal(t, "po", string(buf[:n]))
	n, _ = a.Read(buf)
	assert.Equal(t, "ng", string(buf[:n]))
}

func TestPipeWritesAreBounded(t *testing.T) {
	testlog.Start(t)
	a, b := NewPipe(4)
	n, err := a.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	n, _ = a.Write([]byte("g"))
	assert.Equal(t, 0, n)
	assert.Equal(t, 4, b.Pending())
}

func TestPipeDropAndRestore(t *testing.T) {
	testlog.Start(t)
	a, b := NewPipe(16)
	_, _ = a.Write([]byte("lost"))
	b.Drop()

	assert.False(t, a.Connected())
	_, err := a.Write([]byte("x"))
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = b.Read(make([]byte, 4))
	assert.True(t, errors.Is(err, ErrClosed))

	a.Restore()
	assert.True(t, b.Connected())
	assert.Equal(t, 0, b.Pending())
}

func TestPipeInject(t *testing.T) {
	testlog.Start(t)
	a, _ := NewPipe(16)
	assert.Equal(t, 3, a.Inject([]byte{1, 2, 3}))
	buf := make([]byte, 4)
	n, err := a.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestTCPPollsWithoutBlocking(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := DialTCP(ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer client.Close()
	server := <-accepted
	defer server.Close()

	buf := make([]byte, 16)
	start := time.Now()
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	_, err = server.Write([]byte("hello"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		n, err = client.Read(buf)
		return err == nil && n > 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "hello", string(buf[:n]))

	_ = server.Close()
	require.Eventually(t, func() bool {
		_, err = client.Read(buf)
		return err != nil
	}, time.Second, 5*time.Millisecond)
	assert.False(t, client.Connected())
}

func TestDialTCPWrapsError(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	_, err = DialTCP(addr, 200*time.Millisecond)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transport: dial tcp")
}

func TestOpenSerialRequiresDevice(t *testing.T) {
	testlog.Start(t)
	_, err := OpenSerial(SerialConfig{})
	assert.Error(t, err)
}
