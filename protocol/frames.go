package protocol

import (
	"io"

	"github.com/pkg/errors"
)

// Update is one decoded protocol frame, received after the handshake. Its Tag
// determines which remaining field is meaningful.
type Update struct {
	// Tag is one of UpdateDisconnect, UpdateAddProcess, or UpdateRemoveProcess.
	Tag int8
	// Process of an UpdateAddProcess.
	Process Process
	// Name of an UpdateRemoveProcess.
	Name string
}

// ReadUpdate reads and decodes the next update frame. An unrecognized frame
// tag fails with ErrProtocolViolation.
func ReadUpdate(r io.Reader) (Update, error) {
	var u Update
	var err error

	if u.Tag, err = ReadByte(r); err != nil {
		return u, err
	}
	switch u.Tag {
	case UpdateDisconnect:
		// No payload.
	case UpdateAddProcess:
		u.Process, err = ReadProcess(r)
	case UpdateRemoveProcess:
		u.Name, err = ReadString(r)
	default:
		err = errors.WithMessagef(ErrProtocolViolation, "unexpected update tag %d", u.Tag)
	}
	return u, err
}

// WriteAddProcess frames |p| as an add-process update.
func WriteAddProcess(w io.Writer, p Process) error {
	if err := WriteByte(w, UpdateAddProcess); err != nil {
		return err
	}
	return WriteProcess(w, p)
}

// WriteRemoveProcess frames |name| as a remove-process update.
func WriteRemoveProcess(w io.Writer, name string) error {
	if err := WriteByte(w, UpdateRemoveProcess); err != nil {
		return err
	}
	return WriteString(w, name)
}

// WriteDisconnect frames a disconnect update.
func WriteDisconnect(w io.Writer) error {
	return WriteByte(w, UpdateDisconnect)
}
