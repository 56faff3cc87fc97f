// Package transport adapts byte links to the non-blocking contract the node
// polls: Read and Write never wait for the peer, and a read with nothing
// pending returns 0 bytes and a nil error.
package transport

import "github.com/pkg/errors"

// Transport is a bidirectional byte link. Connected reports whether the
// physical link is up; once it is false Read and Write return ErrClosed.
type Transport interface {
	Connected() bool
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

var ErrClosed = errors.New("transport: closed")
