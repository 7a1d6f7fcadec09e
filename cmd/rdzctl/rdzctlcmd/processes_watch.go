package rdzctlcmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"go.rendezvous.dev/core/client"
	mbp "go.rendezvous.dev/core/mainboilerplate"
	pr "go.rendezvous.dev/core/protocol"
)

type cmdProcessesWatch struct{}

// AddCmdWatch adds the "watch" sub-command to |parser|.
func AddCmdWatch(parser *flags.Parser) error {
	var _, err = parser.AddCommand("watch", "Watch process updates", `
Connect to the rendezvous server and log each process addition and removal as
it occurs, until interrupted or the server disconnects.
`, &cmdProcessesWatch{})
	return err
}

func (cmd *cmdProcessesWatch) Execute([]string) error {
	startup()

	var c = connect(client.Config{
		OnProcessAdded: func(p pr.Process) {
			log.WithFields(log.Fields{
				"name":      p.Name,
				"version":   p.Version,
				"endpoints": len(p.Endpoints),
			}).Info("process added")
		},
		OnProcessRemoved: func(p pr.Process) {
			log.WithField("name", p.Name).Info("process removed")
		},
	})

	for name := range c.Processes() {
		log.WithField("name", name).Info("process present")
	}

	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.WithField("signal", sig).Info("caught signal; stopping watch")
		mbp.Must(c.Close(), "failed to close client")
	case <-c.Done():
		mbp.Must(c.Err(), "rendezvous listener failed")
	}
	return nil
}
