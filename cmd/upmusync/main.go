package main

import (
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/upmusync/cmd/upmusync/commands"
	ferrors "git.home.luguber.info/inful/upmusync/internal/foundation/errors"
	"git.home.luguber.info/inful/upmusync/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{Out: os.Stdout}
	parser := kong.Parse(cli,
		kong.Name("upmusync"),
		kong.Description("Synchronize uPMU stream metadata with the fleet configuration."),
		kong.Vars{"version": version.String()},
		kong.UsageOnError(),
		kong.Bind(global),
	)

	if err := parser.Run(global, cli); err != nil {
		adapter := ferrors.NewCLIErrorAdapter(cli.Verbose, global.Logger)
		adapter.HandleError(err)
	}
}
