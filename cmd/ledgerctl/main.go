// Command ledgerctl drives the message pipeline from a terminal, using the
// same ledger backend and configuration as the chat server.
package main

import (
	"github.com/alecthomas/kong"
)

var cmdline struct {
	Globals globals `embed:""`

	Send   sendCmd   `cmd:"" help:"Send a raw chat message and print the reply."`
	List   listCmd   `cmd:"" help:"Show the most recent transactions."`
	Total  totalCmd  `cmd:"" help:"Show all-time totals per owner and category."`
	Report reportCmd `cmd:"" help:"Show the monthly report for a month (default: current)."`
	Delete deleteCmd `cmd:"" help:"Delete a transaction by its list number."`
	Ask    askCmd    `cmd:"" help:"Answer a question about the ledger."`
	Add    addCmd    `cmd:"" help:"Record transactions described in free text."`
}

func main() {
	ctx := kong.Parse(&cmdline,
		kong.Name("ledgerctl"),
		kong.Description("Inspect and edit the keuangan ledger from the command line."))
	err := ctx.Run(&cmdline.Globals)
	ctx.FatalIfErrorf(err)
}
