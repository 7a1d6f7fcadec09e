package rdzctlcmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v2"

	"go.rendezvous.dev/core/client"
	mbp "go.rendezvous.dev/core/mainboilerplate"
	pr "go.rendezvous.dev/core/protocol"
)

type cmdProcessesList struct {
	Format string `long:"format" short:"o" choice:"table" choice:"yaml" default:"table" description:"Output format"`
}

// AddCmdList adds the "list" sub-command to |parser|.
func AddCmdList(parser *flags.Parser) error {
	var _, err = parser.AddCommand("list", "List advertised processes", `
List the processes currently advertised to the rendezvous server, with the
endpoints each exposes and the streams those endpoints carry.

Results reflect the server's full membership at the moment of connection.
YAML output of a single process is compatible with "advertise --spec".
`, &cmdProcessesList{})
	return err
}

func (cmd *cmdProcessesList) Execute([]string) error {
	startup()

	var c = connect(client.Config{})
	var processes = c.Processes()
	mbp.Must(c.Close(), "failed to close client")

	var names []string
	for name := range processes {
		names = append(names, name)
	}
	sort.Strings(names)

	switch cmd.Format {
	case "table":
		outputTable(names, processes)
	case "yaml":
		var specs []ProcessSpec
		for _, name := range names {
			specs = append(specs, specOfProcess(processes[name]))
		}
		var b, err = yaml.Marshal(specs)
		mbp.Must(err, "failed to encode to yaml")
		_, _ = os.Stdout.Write(b)
	}
	return nil
}

func outputTable(names []string, processes map[string]pr.Process) {
	var table = tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Name", "Version", "Endpoint", "Address", "Streams"})

	for _, name := range names {
		var p = processes[name]

		if len(p.Endpoints) == 0 {
			table.Append([]string{p.Name, p.Version, "<none>", "", ""})
			continue
		}
		for _, ep := range p.Endpoints {
			var kind, addr = describeEndpoint(ep)
			table.Append([]string{p.Name, p.Version, kind, addr, describeStreams(ep)})
		}
	}
	table.Render()
}

// describeEndpoint returns the endpoint's kind and address for display.
func describeEndpoint(ep pr.Endpoint) (kind, addr string) {
	switch e := ep.(type) {
	case pr.TCPSource:
		return kindTCPSource, fmt.Sprintf("%s:%d", e.Host, e.Port)
	case pr.NetMQSource:
		return kindNetMQSource, e.Address
	case pr.RemoteExporter:
		return fmt.Sprintf("%s/%s", kindRemoteExporter, e.Transport), fmt.Sprintf("%s:%d", e.Host, e.Port)
	case pr.RemoteClockExporter:
		return kindRemoteClockExporter, fmt.Sprintf("%s:%d", e.Host, e.Port)
	default:
		return fmt.Sprintf("%T", ep), ""
	}
}

func describeStreams(ep pr.Endpoint) string {
	var streams []pr.Stream
	switch e := ep.(type) {
	case pr.TCPSource:
		streams = e.Streams
	case pr.NetMQSource:
		streams = e.Streams
	case pr.RemoteExporter:
		streams = e.Streams
	}

	var parts []string
	for _, s := range streams {
		if s.Type != "" {
			parts = append(parts, fmt.Sprintf("%s (%s)", s.Name, s.Type))
		} else {
			parts = append(parts, s.Name)
		}
	}
	return strings.Join(parts, ", ")
}
