package protocol

import (
	"encoding/binary"
	"io"
)

// MaxStringLen is the maximum byte length of a wire-encoded string. Strings
// are prefixed by a single length byte, of which only 127 values are usable
// by senders (the prefix is read by some peers as a signed byte). The cap is
// a deliberate protocol constraint: WriteString rejects longer strings rather
// than truncating them.
const MaxStringLen = 127

// WriteByte writes one signed byte.
func WriteByte(w io.Writer, b int8) error {
	var buf = [1]byte{byte(b)}
	var _, err = w.Write(buf[:])
	return err
}

// ReadByte reads one signed byte.
func ReadByte(r io.Reader) (int8, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int8(buf[0]), nil
}

// WriteInt16 writes a little-endian 16-bit integer. It's used only for the
// protocol version field of the handshake.
func WriteInt16(w io.Writer, v int16) error {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(v))
	var _, err = w.Write(buf[:])
	return err
}

// ReadInt16 reads a little-endian 16-bit integer.
func ReadInt16(r io.Reader) (int16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int16(binary.LittleEndian.Uint16(buf[:])), nil
}

// WriteInt32 writes a little-endian 32-bit integer.
func WriteInt32(w io.Writer, v int32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	var _, err = w.Write(buf[:])
	return err
}

// ReadInt32 reads a little-endian 32-bit integer.
func ReadInt32(r io.Reader) (int32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

// WriteString writes a length-prefixed string: one unsigned length byte
// followed by the raw string bytes. No text encoding is applied. Strings
// longer than MaxStringLen fail with a ValidationError before any byte is
// written.
func WriteString(w io.Writer, s string) error {
	if len(s) > MaxStringLen {
		return NewValidationError("string exceeds %d wire bytes (length %d)", MaxStringLen, len(s))
	}
	var buf = make([]byte, 1+len(s))
	buf[0] = byte(len(s))
	copy(buf[1:], s)
	var _, err = w.Write(buf)
	return err
}

// ReadString reads a length-prefixed string. A short read of the content is
// completed before the string is considered received; an interrupted read
// returns io.ErrUnexpectedEOF.
func ReadString(r io.Reader) (string, error) {
	var prefix [1]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return "", err
	}
	var buf = make([]byte, int(prefix[0]))
	if _, err := io.ReadFull(r, buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}
	return string(buf), nil
}
