package payload

import (
	"errors"
	"math"
	"testing"

	"github.com/danmuck/paramwire/internal/testutil/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLayoutIsBigEndian(t *testing.T) {
	testlog.Start(t)
	b := NewWriter(0).U16(0x0102).I32(-2).String("ab").Bytes()
	assert.Equal(t, []byte{0x01, 0x02, 0xFF, 0xFF, 0xFF, 0xFE, 0, 0, 0, 2, 'a', 'b'}, b)
}

func TestReaderRecoversValues(t *testing.T) {
	testlog.Start(t)
	nan := math.Float32frombits(0x7FC00001)
	b := NewWriter(32).
		U8(9).
		Bool(true).
		U32(42).
		U64(1 << 40).
		F32(nan).
		String("").
		String("ccc").
		Bytes()

	r := NewReader(b)
	u8, err := r.U8()
	require.NoError(t, err)
	assert.Equal(t, uint8(9), u8)
	flag, err := r.Bool()
	require.NoError(t, err)
	assert.True(t, flag)
	u32, err := r.U32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u32)
	u64, err := r.U64()
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), u64)
	f, err := r.F32()
	require.NoError(t, err)
	assert.Equal(t, math.Float32bits(nan), math.Float32bits(f))
	empty, err := r.String(8)
	require.NoError(t, err)
	assert.Equal(t, "", empty)
	s, err := r.String(8)
	require.NoError(t, err)
	assert.Equal(t, "ccc", s)
	assert.NoError(t, r.Done())
}

func TestReaderShortValue(t *testing.T) {
	testlog.Start(t)
	_, err := NewReader([]byte{1, 2, 3}).U32()
	assert.True(t, errors.Is(err, ErrShort), "got %v", err)

	// declared length 5, two bytes present
	_, err = NewReader([]byte{0, 0, 0, 5, 'a', 'b'}).String(16)
	assert.True(t, errors.Is(err, ErrShort), "got %v", err)
}

func TestReaderStringBound(t *testing.T) {
	testlog.Start(t)
	b := NewWriter(0).String("toolong").Bytes()
	_, err := NewReader(b).String(3)
	assert.True(t, errors.Is(err, ErrStringTooLong), "got %v", err)
}

func TestReaderTrailingAndBadBool(t *testing.T) {
	testlog.Start(t)
	r := NewReader([]byte{2, 0})
	_, err := r.Bool()
	assert.True(t, errors.Is(err, ErrInvalidBoolean))
	assert.True(t, errors.Is(r.Done(), ErrTrailing))
}
