package param

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxNameLen  = 64
	MaxArrayLen = 64
)

var (
	ErrInvalidRequest = errors.New("param: invalid request")
	ErrMalformed      = errors.New("param: malformed message")
	ErrNotFound       = errors.New("param: not found")
	ErrKindMismatch   = errors.New("param: kind mismatch")
	ErrCountMismatch  = errors.New("param: count mismatch")
)

// Request asks the host for one named parameter of an expected shape.
// Count is 1 for scalars and the exact expected length for arrays.
type Request struct {
	ID    uint32
	Name  string
	Kind  Kind
	Count uint32
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRequest)
	}
	if len(r.Name) > MaxNameLen {
		return fmt.Errorf("%w: name length %d exceeds %d", ErrInvalidRequest, len(r.Name), MaxNameLen)
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: invalid kind %d", ErrInvalidRequest, uint8(r.Kind))
	}
	if !r.Kind.IsArray() {
		if r.Count != 1 {
			return fmt.Errorf("%w: scalar count must be 1, got %d", ErrInvalidRequest, r.Count)
		}
		return nil
	}
	if r.Count == 0 || r.Count > MaxArrayLen {
		return fmt.Errorf("%w: array count %d outside [1,%d]", ErrInvalidRequest, r.Count, MaxArrayLen)
	}
	return nil
}

// Response carries the host's answer. Value is only meaningful when Found.
type Response struct {
	ID    uint32
	Name  string
	Found bool
	Value Value
}

// Match checks a response against the request it answers.
func (r Response) Match(req Request) error {
	if !r.Found {
		return fmt.Errorf("%w: %q", ErrNotFound, req.Name)
	}
	if r.Value.Kind() != req.Kind {
		return fmt.Errorf("%w: %q got=%s want=%s", ErrKindMismatch, req.Name, r.Value.Kind(), req.Kind)
	}
	if uint32(r.Value.Len()) != req.Count {
		return fmt.Errorf("%w: %q got=%d want=%d", ErrCountMismatch, req.Name, r.Value.Len(), req.Count)
	}
	return nil
}
