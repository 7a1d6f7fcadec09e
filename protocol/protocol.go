// Package protocol implements the rendezvous wire protocol: the primitive
// binary codec, the process / endpoint / stream descriptors and their
// encodings, the connection handshake, and the update frames exchanged for
// the remainder of a connection.
package protocol

import (
	"io"

	"github.com/pkg/errors"
)

const (
	// Version is the fixed protocol version. It's exchanged by both peers at
	// handshake, before any other byte, and must agree.
	Version int16 = 2
	// DefaultPort is the port on which rendezvous servers listen by default.
	DefaultPort = 13331
)

// Tags of update frames exchanged after the handshake and initial
// synchronization. Each frame is a tag byte followed by a tag-specific
// payload.
const (
	// UpdateDisconnect tells the peer that no further frames will be sent.
	UpdateDisconnect int8 = iota
	// UpdateAddProcess is followed by a full Process encoding.
	UpdateAddProcess
	// UpdateRemoveProcess is followed by the name of the removed Process.
	UpdateRemoveProcess
)

var (
	// ErrProtocolMismatch is returned by Handshake when the peer declares a
	// protocol version other than Version. There is no negotiation: the
	// connection must be abandoned.
	ErrProtocolMismatch = errors.New("protocol version mismatch")
	// ErrProtocolViolation is returned upon reading a frame, endpoint, or
	// transport tag which isn't part of the protocol.
	ErrProtocolViolation = errors.New("protocol violation")
	// ErrUnknownProcess is returned when a remove-process update names a
	// process that isn't present in the rendezvous table.
	ErrUnknownProcess = errors.New("unknown process")
)

// Handshake writes our protocol Version and then reads the peer's declared
// version, failing with ErrProtocolMismatch if they differ. It's performed
// once per connection, by the connecting client, before any other traffic.
// Accepting peers use the opposite ordering: read the client's version, then
// write their own.
func Handshake(rw io.ReadWriter) error {
	if err := WriteInt16(rw, Version); err != nil {
		return errors.Wrap(err, "writing protocol version")
	}
	var peer, err = ReadInt16(rw)
	if err != nil {
		return errors.Wrap(err, "reading protocol version")
	} else if peer != Version {
		return errors.WithMessagef(ErrProtocolMismatch, "local %d, peer %d", Version, peer)
	}
	return nil
}
