package param

import (
	"errors"
	"math"
	"testing"

	"github.com/danmuck/paramwire/internal/protocol/frame"
	"github.com/danmuck/paramwire/internal/protocol/payload"
	"github.com/danmuck/paramwire/internal/protocol/schema"
	"github.com/danmuck/paramwire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeOne(t *testing.T, b []byte) frame.Frame {
	t.Helper()
	d := frame.NewDecoder(frame.DefaultLimits())
	d.Feed(b)
	f, ok, err := d.Next()
	require.NoError(t, err)
	require.True(t, ok)
	return f
}

func TestRequestValidate(t *testing.T) {
	testlog.Start(t)
	assert.NoError(t, Request{Name: "int", Kind: KindInt32, Count: 1}.Validate())
	assert.NoError(t, Request{Name: "int_array", Kind: KindInt32Array, Count: 3}.Validate())

	bad := []Request{
		{Name: "", Kind: KindInt32, Count: 1},
		{Name: string(make([]byte, MaxNameLen+1)), Kind: KindInt32, Count: 1},
		{Name: "x", Kind: KindInvalid, Count: 1},
		{Name: "x", Kind: KindFloat32, Count: 2},
		{Name: "x", Kind: KindStringArray, Count: 0},
		{Name: "x", Kind: KindStringArray, Count: MaxArrayLen + 1},
	}
	for _, req := range bad {
		assert.True(t, errors.Is(req.Validate(), ErrInvalidRequest), "%+v", req)
	}
}

func TestRequestFrameRoundTrip(t *testing.T) {
	testlog.Start(t)
	in := Request{ID: 7, Name: "float_array", Kind: KindFloat32Array, Count: 3}
	b, err := EncodeRequestFrame(in, frame.DefaultLimits())
	require.NoError(t, err)

	out, err := DecodeRequest(decodeOne(t, b))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestResponseFrameCarriesEveryKind(t *testing.T) {
	testlog.Start(t)
	values := []Value{
		Int32(-42),
		Float32(float32(math.Inf(-1))),
		String("hello"),
		Int32s([]int32{1, 2, 3}),
		Float32s([]float32{0.5, -1.25, 3e-9}),
		Strings([]string{"a", "bb", "ccc"}),
		Strings([]string{"", "\x00bin\xff"}),
	}
	for i, v := range values {
		in := Response{ID: uint32(i), Name: "p", Found: true, Value: v}
		b, err := EncodeResponseFrame(in, frame.DefaultLimits())
		require.NoError(t, err)
		out, err := DecodeResponse(decodeOne(t, b))
		require.NoError(t, err)
		assert.Equal(t, in.ID, out.ID)
		assert.True(t, out.Found)
		assert.True(t, v.Equal(out.Value), "value %d: got %s want %s", i, out.Value, v)
	}
}

func TestResponseNotFound(t *testing.T) {
	testlog.Start(t)
	b, err := EncodeResponseFrame(Response{ID: 3, Name: "nonexisting"}, frame.DefaultLimits())
	require.NoError(t, err)
	out, err := DecodeResponse(decodeOne(t, b))
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, "nonexisting", out.Name)
	assert.False(t, out.Value.IsValid())
}

func TestDecodeResponseRejectsHostileCount(t *testing.T) {
	testlog.Start(t)
	p := payload.NewWriter(0).
		U32(1).
		String("int_array").
		Bool(true).
		U8(uint8(KindInt32Array)).
		U32(1 << 30).
		I32(1).
		Bytes()
	_, err := DecodeResponse(frame.Frame{Type: schema.MsgParamResponse, Payload: p})
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestDecodeResponseKeepsLongArray(t *testing.T) {
	testlog.Start(t)
	in := Response{ID: 4, Name: "int_array", Found: true, Value: Int32s(make([]int32, MaxArrayLen+1))}
	b, err := EncodeResponseFrame(in, frame.DefaultLimits())
	require.NoError(t, err)

	out, err := DecodeResponse(decodeOne(t, b))
	require.NoError(t, err)
	assert.Equal(t, MaxArrayLen+1, out.Value.Len())
	err = out.Match(Request{Name: "int_array", Kind: KindInt32Array, Count: 3})
	assert.True(t, errors.Is(err, ErrCountMismatch), "got %v", err)
}

func TestDecodeResponseRejectsScalarWithCount(t *testing.T) {
	testlog.Start(t)
	p := payload.NewWriter(0).
		U32(1).
		String("int").
		Bool(true).
		U8(uint8(KindInt32)).
		U32(2).
		I32(1).
		I32(2).
		Bytes()
	_, err := DecodeResponse(frame.Frame{Type: schema.MsgParamResponse, Payload: p})
	assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
}

func TestDecodeResponseWrongType(t *testing.T) {
	testlog.Start(t)
	_, err := DecodeResponse(frame.Frame{Type: schema.MsgHeartbeatAck, Payload: make([]byte, 12)})
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestResponseMatch(t *testing.T) {
	testlog.Start(t)
	req := Request{Name: "int_array", Kind: KindInt32Array, Count: 3}
	assert.NoError(t, Response{Found: true, Value: Int32s([]int32{1, 2, 3})}.Match(req))
	assert.True(t, errors.Is(Response{}.Match(req), ErrNotFound))
	assert.True(t, errors.Is(Response{Found: true, Value: Float32s([]float32{1, 2, 3})}.Match(req), ErrKindMismatch))
	assert.True(t, errors.Is(Response{Found: true, Value: Int32s([]int32{1, 2})}.Match(req), ErrCountMismatch))
}
