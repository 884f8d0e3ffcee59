// Command valuate runs the valuation engine over a JSON snapshot of
// transactions, prices and benchmark rates, without a database.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&historyCmd{}, "valuation")
	commander.Register(&dashboardCmd{}, "valuation")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
