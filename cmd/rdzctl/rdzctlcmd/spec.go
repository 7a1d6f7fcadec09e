package rdzctlcmd

import (
	"fmt"

	pr "go.rendezvous.dev/core/protocol"
)

// Endpoint kind names used in YAML specifications and table output.
const (
	kindTCPSource           = "tcp-source"
	kindNetMQSource         = "netmq-source"
	kindRemoteExporter      = "remote-exporter"
	kindRemoteClockExporter = "remote-clock-exporter"
)

// ProcessSpec is the YAML representation of a process, accepted by
// "advertise" and emitted by "list --format yaml".
type ProcessSpec struct {
	Name      string         `yaml:"name"`
	Version   string         `yaml:"version,omitempty"`
	Endpoints []EndpointSpec `yaml:"endpoints,omitempty"`
}

// EndpointSpec is the YAML representation of one endpoint variant. Kind
// selects the variant, and determines which further fields apply.
type EndpointSpec struct {
	Kind      string       `yaml:"kind"`
	Host      string       `yaml:"host,omitempty"`
	Address   string       `yaml:"address,omitempty"`
	Port      int32        `yaml:"port,omitempty"`
	Transport string       `yaml:"transport,omitempty"`
	Streams   []StreamSpec `yaml:"streams,omitempty"`
}

// StreamSpec is the YAML representation of a stream.
type StreamSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type,omitempty"`
}

// Build maps the ProcessSpec to its protocol Process, or returns an error if
// an endpoint kind or transport isn't recognized.
func (s ProcessSpec) Build() (pr.Process, error) {
	var p = pr.Process{Name: s.Name, Version: s.Version}

	for _, es := range s.Endpoints {
		var streams []pr.Stream
		for _, ss := range es.Streams {
			streams = append(streams, pr.Stream{Name: ss.Name, Type: ss.Type})
		}

		switch es.Kind {
		case kindTCPSource:
			p.Endpoints = append(p.Endpoints, pr.TCPSource{
				Host: es.Host, Port: es.Port, Streams: streams})
		case kindNetMQSource:
			p.Endpoints = append(p.Endpoints, pr.NetMQSource{
				Address: es.Address, Streams: streams})
		case kindRemoteExporter:
			var transport, err = parseTransport(es.Transport)
			if err != nil {
				return pr.Process{}, err
			}
			p.Endpoints = append(p.Endpoints, pr.RemoteExporter{
				Host: es.Host, Port: es.Port, Transport: transport, Streams: streams})
		case kindRemoteClockExporter:
			p.Endpoints = append(p.Endpoints, pr.RemoteClockExporter{
				Host: es.Host, Port: es.Port})
		default:
			return pr.Process{}, fmt.Errorf("unknown endpoint kind %q", es.Kind)
		}
	}
	return p, nil
}

// specOfProcess maps a protocol Process to its ProcessSpec representation.
func specOfProcess(p pr.Process) ProcessSpec {
	var s = ProcessSpec{Name: p.Name, Version: p.Version}

	for _, ep := range p.Endpoints {
		var es EndpointSpec
		switch e := ep.(type) {
		case pr.TCPSource:
			es = EndpointSpec{Kind: kindTCPSource, Host: e.Host, Port: e.Port,
				Streams: specOfStreams(e.Streams)}
		case pr.NetMQSource:
			es = EndpointSpec{Kind: kindNetMQSource, Address: e.Address,
				Streams: specOfStreams(e.Streams)}
		case pr.RemoteExporter:
			es = EndpointSpec{Kind: kindRemoteExporter, Host: e.Host, Port: e.Port,
				Transport: e.Transport.String(), Streams: specOfStreams(e.Streams)}
		case pr.RemoteClockExporter:
			es = EndpointSpec{Kind: kindRemoteClockExporter, Host: e.Host, Port: e.Port}
		}
		s.Endpoints = append(s.Endpoints, es)
	}
	return s
}

func specOfStreams(streams []pr.Stream) []StreamSpec {
	var out []StreamSpec
	for _, s := range streams {
		out = append(out, StreamSpec{Name: s.Name, Type: s.Type})
	}
	return out
}

func parseTransport(s string) (pr.TransportKind, error) {
	switch s {
	case "tcp", "":
		return pr.TransportTCP, nil
	case "udp":
		return pr.TransportUDP, nil
	case "named-pipes":
		return pr.TransportNamedPipes, nil
	default:
		return 0, fmt.Errorf("unknown transport %q (expected tcp, udp, or named-pipes)", s)
	}
}
