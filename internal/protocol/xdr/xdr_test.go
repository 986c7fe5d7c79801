package xdr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUint32RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteUint32(&buf, 0xDEADBEEF))
	assert.Equal(t, []byte{0xDE, 0xAD, 0xBE, 0xEF}, buf.Bytes())

	v, err := ReadUint32(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xDEADBEEF), v)
}

func TestUint64RoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteUint64(&buf, 1<<40))

	v, err := ReadUint64(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<40), v)
}

func TestStringPadding(t *testing.T) {
	t.Parallel()

	t.Run("3-byte string pads to 8 bytes", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteString(&buf, "abc"))
		assert.Equal(t, 8, buf.Len())

		s, err := ReadString(&buf)
		require.NoError(t, err)
		assert.Equal(t, "abc", s)
		assert.Zero(t, buf.Len(), "padding must be consumed")
	})

	t.Run("4-byte string needs no padding", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteString(&buf, "test"))
		assert.Equal(t, 8, buf.Len())
	})
}

func TestTruncatedInput(t *testing.T) {
	t.Parallel()

	t.Run("empty reader", func(t *testing.T) {
		t.Parallel()
		_, err := ReadUint32(bytes.NewReader(nil))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedEnd)
	})

	t.Run("partial uint64", func(t *testing.T) {
		t.Parallel()
		_, err := ReadUint64(bytes.NewReader([]byte{1, 2, 3}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedEnd)
	})

	t.Run("opaque shorter than declared length", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteUint32(&buf, 16))
		buf.Write([]byte("short"))

		_, err := ReadOpaque(&buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedEnd)
	})

	t.Run("absurd length prefix rejected", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		require.NoError(t, WriteUint32(&buf, maxOpaqueLength+1))

		_, err := ReadOpaque(&buf)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnexpectedEnd)
	})
}

func TestBoolRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteBool(&buf, true))
	require.NoError(t, WriteBool(&buf, false))

	v, err := ReadBool(&buf)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ReadBool(&buf)
	require.NoError(t, err)
	assert.False(t, v)
}
