package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteRoundTripWithFixture(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteByte(&buf, -2))
	assert.Equal(t, []byte{0xfe}, buf.Bytes())

	var b, err = ReadByte(&buf)
	require.NoError(t, err)
	assert.Equal(t, int8(-2), b)
}

func TestInt16RoundTripWithFixture(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteInt16(&buf, 2))
	assert.Equal(t, []byte{0x02, 0x00}, buf.Bytes())

	var v, err = ReadInt16(&buf)
	require.NoError(t, err)
	assert.Equal(t, int16(2), v)
}

func TestInt32RoundTripWithFixture(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteInt32(&buf, 0x01020304))
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf.Bytes())

	var v, err = ReadInt32(&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(0x01020304), v)

	// Negative values survive the unsigned representation.
	require.NoError(t, WriteInt32(&buf, -5000))
	v, err = ReadInt32(&buf)
	require.NoError(t, err)
	assert.Equal(t, int32(-5000), v)
}

func TestStringRoundTripWithFixture(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, WriteString(&buf, "camera1"))
	assert.Equal(t, []byte{0x07, 'c', 'a', 'm', 'e', 'r', 'a', '1'}, buf.Bytes())

	var s, err = ReadString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "camera1", s)

	// The empty string is a single zero length byte.
	require.NoError(t, WriteString(&buf, ""))
	assert.Equal(t, []byte{0x00}, buf.Bytes())

	s, err = ReadString(&buf)
	require.NoError(t, err)
	assert.Equal(t, "", s)
}

func TestStringLengthBoundary(t *testing.T) {
	var buf bytes.Buffer

	// A string of exactly MaxStringLen bytes round-trips.
	var max = strings.Repeat("x", MaxStringLen)
	require.NoError(t, WriteString(&buf, max))
	assert.Equal(t, 1+MaxStringLen, buf.Len())

	var s, err = ReadString(&buf)
	require.NoError(t, err)
	assert.Equal(t, max, s)

	// One byte more is rejected by the sender, with nothing written.
	err = WriteString(&buf, max+"x")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.EqualError(t, err, "string exceeds 127 wire bytes (length 128)")
	assert.Zero(t, buf.Len())
}

func TestShortReadsFail(t *testing.T) {
	var _, err = ReadInt32(bytes.NewReader([]byte{0x01, 0x02}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	// A string whose content is cut short is never silently truncated.
	_, err = ReadString(bytes.NewReader([]byte{0x05, 'a', 'b'}))
	assert.Equal(t, io.ErrUnexpectedEOF, err)

	_, err = ReadByte(bytes.NewReader(nil))
	assert.Equal(t, io.EOF, err)
}
