package main

import (
	"github.com/jessevdk/go-flags"

	"go.rendezvous.dev/core/cmd/rdzctl/rdzctlcmd"
	mbp "go.rendezvous.dev/core/mainboilerplate"
)

const iniFilename = "rdzctl.ini"

func main() {
	var parser = flags.NewParser(rdzctlcmd.BaseCfg, flags.Default)

	parser.LongDescription = `rdzctl is a tool for interacting with a process-rendezvous server.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure rdzctl with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/rendezvous/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`

	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.Must(rdzctlcmd.AddCmdList(parser), "could not add list subcommand")
	mbp.Must(rdzctlcmd.AddCmdWatch(parser), "could not add watch subcommand")
	mbp.Must(rdzctlcmd.AddCmdAdvertise(parser), "could not add advertise subcommand")
	mbp.Must(rdzctlcmd.AddCmdWithdraw(parser), "could not add withdraw subcommand")

	mbp.MustParseConfig(parser, iniFilename)
}
