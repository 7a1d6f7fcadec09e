package rdzctlcmd

import (
	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"

	"go.rendezvous.dev/core/client"
	mbp "go.rendezvous.dev/core/mainboilerplate"
)

type cmdProcessesWithdraw struct {
	Args struct {
		Name string `positional-arg-name:"NAME" description:"Name of the process to withdraw"`
	} `positional-args:"true" required:"true"`
}

// AddCmdWithdraw adds the "withdraw" sub-command to |parser|.
func AddCmdWithdraw(parser *flags.Parser) error {
	var _, err = parser.AddCommand("withdraw", "Withdraw a process", `
Withdraw a named process from the rendezvous server. The name must have been
previously advertised: withdrawing an unknown name is a protocol violation
which servers relay to every connected client.
`, &cmdProcessesWithdraw{})
	return err
}

func (cmd *cmdProcessesWithdraw) Execute([]string) error {
	startup()

	var c = connect(client.Config{})
	mbp.Must(c.Withdraw(cmd.Args.Name), "failed to withdraw process")
	log.WithField("name", cmd.Args.Name).Info("withdrew process")

	return c.Close()
}
