package codec_test

import (
	"testing"

	"github.com/scalarorg/bridge-core/pkg/codec"
	"github.com/scalarorg/bridge-core/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var addr types.Address
	addr[0] = 7
	addr[31] = 9

	buf := make([]byte, 1+1+4+8+32+16)
	w := codec.NewWriter(buf)
	w.WriteBool(true)
	w.WriteUint8(42)
	w.WriteUint32(0xdeadbeef)
	w.WriteInt64(-12345)
	w.WriteAddress(addr)
	w.WriteBytes([]byte("hello"), 16)
	require.NoError(t, w.Err())
	assert.Equal(t, len(buf), w.Offset())

	r := codec.NewReader(buf)
	assert.True(t, r.ReadBool())
	assert.Equal(t, uint8(42), r.ReadUint8())
	assert.Equal(t, uint32(0xdeadbeef), r.ReadUint32())
	assert.Equal(t, int64(-12345), r.ReadInt64())
	assert.Equal(t, addr, r.ReadAddress())
	assert.Equal(t, []byte("hello"), r.ReadBytes(5, 16))
	require.NoError(t, r.Err())
}

func TestWriterOverflowLatches(t *testing.T) {
	w := codec.NewWriter(make([]byte, 4))
	w.WriteUint32(1)
	w.WriteUint8(2)
	assert.ErrorIs(t, w.Err(), codec.ErrOverflow)

	// Latched error survives further writes.
	w.WriteUint64(3)
	assert.ErrorIs(t, w.Err(), codec.ErrOverflow)
}

func TestWriterBytesExceedingWindow(t *testing.T) {
	w := codec.NewWriter(make([]byte, 8))
	w.WriteBytes(make([]byte, 9), 8)
	assert.ErrorIs(t, w.Err(), codec.ErrOverflow)
}

func TestReaderTruncated(t *testing.T) {
	r := codec.NewReader(make([]byte, 3))
	r.ReadUint32()
	assert.ErrorIs(t, r.Err(), codec.ErrDataTooSmall)
}

func TestReaderInvalidBool(t *testing.T) {
	r := codec.NewReader([]byte{2})
	r.ReadBool()
	assert.ErrorIs(t, r.Err(), codec.ErrInvalidData)
}

func TestReaderBytesLengthBeyondWindow(t *testing.T) {
	r := codec.NewReader(make([]byte, 8))
	r.ReadBytes(9, 8)
	assert.ErrorIs(t, r.Err(), codec.ErrInvalidData)
}
