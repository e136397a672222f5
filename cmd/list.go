package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type listCmd struct{}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the backtests of a portfolio" }
func (*listCmd) Usage() string {
	return `btsync list <portfolio>

  Lists the backtests of a portfolio with their period, status and main
  metrics.
`
}

func (*listCmd) SetFlags(f *flag.FlagSet) {}

func (*listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one portfolio is required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	pid := f.Arg(0)
	list, err := s.client.List(ctx, pid)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing backtests: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderList(pid, list))
	return subcommands.ExitSuccess
}
