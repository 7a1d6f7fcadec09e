package protocol

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// TransportKind is the transport over which a RemoteExporter serves its
// streams. It's wire-encoded as a 32-bit integer tag.
type TransportKind int32

const (
	TransportTCP TransportKind = iota
	TransportUDP
	TransportNamedPipes
)

// Validate returns an error if the TransportKind isn't a known tag.
func (k TransportKind) Validate() error {
	switch k {
	case TransportTCP, TransportUDP, TransportNamedPipes:
		return nil
	default:
		return NewValidationError("invalid transport kind (%d)", int32(k))
	}
}

// String returns the transport's display name.
func (k TransportKind) String() string {
	switch k {
	case TransportTCP:
		return "tcp"
	case TransportUDP:
		return "udp"
	case TransportNamedPipes:
		return "named-pipes"
	default:
		return fmt.Sprintf("invalid(%d)", int32(k))
	}
}

// Stream is a named, typed data channel carried by an endpoint. It's
// immutable once constructed.
type Stream struct {
	Name string
	Type string
}

// Validate returns an error if the Stream is malformed.
func (s Stream) Validate() error {
	if err := validateWireString(s.Name, false); err != nil {
		return ExtendContext(err, "Name")
	} else if err = validateWireString(s.Type, true); err != nil {
		return ExtendContext(err, "Type")
	}
	return nil
}

// Endpoint is a network-reachable source or sink exposed by a Process. It's a
// closed set of variants, each identified on the wire by a tag byte: unknown
// tags are rejected at decode, and new variants cannot be defined outside
// this package.
type Endpoint interface {
	Validator
	// tag is the wire tag of the variant.
	tag() int8
}

// Wire tags of Endpoint variants.
const (
	tagTCPSource int8 = iota
	tagNetMQSource
	tagRemoteExporter
	tagRemoteClockExporter
)

// TCPSource is a raw TCP stream source.
type TCPSource struct {
	Host    string
	Port    int32
	Streams []Stream
}

func (TCPSource) tag() int8 { return tagTCPSource }

// Validate returns an error if the TCPSource is malformed.
func (e TCPSource) Validate() error {
	if err := validateWireString(e.Host, false); err != nil {
		return ExtendContext(err, "Host")
	} else if err = validatePort(e.Port); err != nil {
		return ExtendContext(err, "Port")
	}
	return validateStreams(e.Streams)
}

// NetMQSource is a NetMQ (ZeroMQ) publication source, addressed by a full
// transport URI rather than a host and port.
type NetMQSource struct {
	Address string
	Streams []Stream
}

func (NetMQSource) tag() int8 { return tagNetMQSource }

// Validate returns an error if the NetMQSource is malformed.
func (e NetMQSource) Validate() error {
	if err := validateWireString(e.Address, false); err != nil {
		return ExtendContext(err, "Address")
	}
	return validateStreams(e.Streams)
}

// RemoteExporter is a remoting exporter serving streams over a configured
// TransportKind.
type RemoteExporter struct {
	Host      string
	Port      int32
	Transport TransportKind
	Streams   []Stream
}

func (RemoteExporter) tag() int8 { return tagRemoteExporter }

// Validate returns an error if the RemoteExporter is malformed.
func (e RemoteExporter) Validate() error {
	if err := validateWireString(e.Host, false); err != nil {
		return ExtendContext(err, "Host")
	} else if err = validatePort(e.Port); err != nil {
		return ExtendContext(err, "Port")
	} else if err = e.Transport.Validate(); err != nil {
		return ExtendContext(err, "Transport")
	}
	return validateStreams(e.Streams)
}

// RemoteClockExporter exports a remoted pipeline clock. It carries no
// streams: its stream count is transmitted, and is always zero.
type RemoteClockExporter struct {
	Host string
	Port int32
}

func (RemoteClockExporter) tag() int8 { return tagRemoteClockExporter }

// Validate returns an error if the RemoteClockExporter is malformed.
func (e RemoteClockExporter) Validate() error {
	if err := validateWireString(e.Host, false); err != nil {
		return ExtendContext(err, "Host")
	} else if err = validatePort(e.Port); err != nil {
		return ExtendContext(err, "Port")
	}
	return nil
}

func validateStreams(streams []Stream) error {
	for i, s := range streams {
		if err := s.Validate(); err != nil {
			return ExtendContext(err, "Streams[%d]", i)
		}
	}
	return nil
}

// Process is one pipeline participant: a uniquely-named process advertising
// zero or more endpoints. Name is the identity used for table lookup,
// addition, and removal.
type Process struct {
	Name      string
	Version   string
	Endpoints []Endpoint
}

// Validate returns an error if the Process is malformed.
func (p Process) Validate() error {
	if err := validateWireString(p.Name, false); err != nil {
		return ExtendContext(err, "Name")
	} else if err = validateWireString(p.Version, true); err != nil {
		return ExtendContext(err, "Version")
	}
	for i, ep := range p.Endpoints {
		if err := ep.Validate(); err != nil {
			return ExtendContext(err, "Endpoints[%d]", i)
		}
	}
	return nil
}

// WriteProcess encodes |p| as its name, version, endpoint count, and then
// each endpoint in order.
func WriteProcess(w io.Writer, p Process) error {
	if err := WriteString(w, p.Name); err != nil {
		return err
	} else if err = WriteString(w, p.Version); err != nil {
		return err
	} else if err = WriteInt32(w, int32(len(p.Endpoints))); err != nil {
		return err
	}
	for _, ep := range p.Endpoints {
		if err := writeEndpoint(w, ep); err != nil {
			return err
		}
	}
	return nil
}

// ReadProcess decodes a Process.
func ReadProcess(r io.Reader) (Process, error) {
	var p Process
	var err error

	if p.Name, err = ReadString(r); err != nil {
		return p, errors.Wrap(err, "reading name")
	} else if p.Version, err = ReadString(r); err != nil {
		return p, errors.Wrap(err, "reading version")
	}
	var count int32
	if count, err = ReadInt32(r); err != nil {
		return p, errors.Wrap(err, "reading endpoint count")
	} else if count < 0 {
		return p, errors.WithMessagef(ErrProtocolViolation, "negative endpoint count (%d)", count)
	}
	for ; count > 0; count-- {
		var ep Endpoint
		if ep, err = readEndpoint(r); err != nil {
			return p, err
		}
		p.Endpoints = append(p.Endpoints, ep)
	}
	return p, nil
}

func writeEndpoint(w io.Writer, ep Endpoint) error {
	if err := WriteByte(w, ep.tag()); err != nil {
		return err
	}
	switch e := ep.(type) {
	case TCPSource:
		if err := WriteString(w, e.Host); err != nil {
			return err
		} else if err = WriteInt32(w, e.Port); err != nil {
			return err
		}
		return writeStreams(w, e.Streams)
	case NetMQSource:
		if err := WriteString(w, e.Address); err != nil {
			return err
		}
		return writeStreams(w, e.Streams)
	case RemoteExporter:
		if err := WriteString(w, e.Host); err != nil {
			return err
		} else if err = WriteInt32(w, e.Port); err != nil {
			return err
		} else if err = WriteInt32(w, int32(e.Transport)); err != nil {
			return err
		}
		return writeStreams(w, e.Streams)
	case RemoteClockExporter:
		if err := WriteString(w, e.Host); err != nil {
			return err
		} else if err = WriteInt32(w, e.Port); err != nil {
			return err
		}
		return WriteInt32(w, 0) // Stream count, always zero.
	default:
		// Endpoint is a closed set, but guards against pointer variants.
		return errors.WithMessagef(ErrProtocolViolation, "unsupported endpoint type %T", ep)
	}
}

func readEndpoint(r io.Reader) (Endpoint, error) {
	var tag, err = ReadByte(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading endpoint tag")
	}
	switch tag {
	case tagTCPSource:
		var e TCPSource
		if e.Host, err = ReadString(r); err != nil {
			return nil, err
		} else if e.Port, err = ReadInt32(r); err != nil {
			return nil, err
		} else if e.Streams, err = readStreams(r); err != nil {
			return nil, err
		}
		return e, nil
	case tagNetMQSource:
		var e NetMQSource
		if e.Address, err = ReadString(r); err != nil {
			return nil, err
		} else if e.Streams, err = readStreams(r); err != nil {
			return nil, err
		}
		return e, nil
	case tagRemoteExporter:
		var e RemoteExporter
		if e.Host, err = ReadString(r); err != nil {
			return nil, err
		} else if e.Port, err = ReadInt32(r); err != nil {
			return nil, err
		}
		var transport int32
		if transport, err = ReadInt32(r); err != nil {
			return nil, err
		}
		e.Transport = TransportKind(transport)
		if e.Transport.Validate() != nil {
			return nil, errors.WithMessagef(ErrProtocolViolation, "unknown transport tag %d", transport)
		}
		if e.Streams, err = readStreams(r); err != nil {
			return nil, err
		}
		return e, nil
	case tagRemoteClockExporter:
		var e RemoteClockExporter
		if e.Host, err = ReadString(r); err != nil {
			return nil, err
		} else if e.Port, err = ReadInt32(r); err != nil {
			return nil, err
		} else if _, err = ReadInt32(r); err != nil { // Stream count, always zero.
			return nil, err
		}
		return e, nil
	default:
		return nil, errors.WithMessagef(ErrProtocolViolation, "unknown endpoint tag %d", tag)
	}
}

func writeStreams(w io.Writer, streams []Stream) error {
	if err := WriteInt32(w, int32(len(streams))); err != nil {
		return err
	}
	for _, s := range streams {
		if err := WriteString(w, s.Name); err != nil {
			return err
		} else if err = WriteString(w, s.Type); err != nil {
			return err
		}
	}
	return nil
}

func readStreams(r io.Reader) ([]Stream, error) {
	var count, err = ReadInt32(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading stream count")
	} else if count < 0 {
		return nil, errors.WithMessagef(ErrProtocolViolation, "negative stream count (%d)", count)
	}
	var streams []Stream
	for ; count > 0; count-- {
		var s Stream
		if s.Name, err = ReadString(r); err != nil {
			return nil, err
		} else if s.Type, err = ReadString(r); err != nil {
			return nil, err
		}
		streams = append(streams, s)
	}
	return streams, nil
}
