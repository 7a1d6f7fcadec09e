package rdzctlcmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"go.rendezvous.dev/core/client"
	mbp "go.rendezvous.dev/core/mainboilerplate"
)

type cmdProcessesAdvertise struct {
	SpecPath string `long:"spec" default:"-" description:"Path of the YAML process specification to advertise. Use '-' for stdin"`
}

// AddCmdAdvertise adds the "advertise" sub-command to |parser|.
func AddCmdAdvertise(parser *flags.Parser) error {
	var _, err = parser.AddCommand("advertise", "Advertise a process", `
Advertise a process, described by a YAML specification, to the rendezvous
server, and hold the advertisement until interrupted. On interrupt the
connection is closed and the server withdraws the process on this client's
behalf.

An example specification:

  name: camera1
  version: "1.0"
  endpoints:
    - kind: tcp-source
      host: 10.0.0.5
      port: 5000
      streams:
        - {name: rgb, type: image}
`, &cmdProcessesAdvertise{})
	return err
}

func (cmd *cmdProcessesAdvertise) Execute([]string) error {
	startup()

	var input = os.Stdin
	if cmd.SpecPath != "-" {
		var err error
		input, err = os.Open(cmd.SpecPath)
		mbp.Must(err, "failed to open process specification")
	}
	var b, err = io.ReadAll(input)
	mbp.Must(err, "failed to read process specification")

	var spec ProcessSpec
	mbp.Must(yaml.UnmarshalStrict(b, &spec), "failed to decode process specification")
	var process, buildErr = spec.Build()
	mbp.Must(buildErr, "invalid process specification")

	var c = connect(client.Config{})
	mbp.Must(c.Advertise(process), "failed to advertise process")

	log.WithFields(log.Fields{
		"name":      process.Name,
		"endpoints": len(process.Endpoints),
	}).Info("advertised process; interrupt to withdraw")

	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig).Info("caught signal; withdrawing process")
		mbp.Must(c.Close(), "failed to close client")
	case <-c.Done():
		mbp.Must(c.Err(), "rendezvous listener failed")
	}
	return nil
}
