package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
)

type executeCmd struct {
	noWatch bool
}

func (*executeCmd) Name() string     { return "execute" }
func (*executeCmd) Synopsis() string { return "execute backtests and watch them until they finish" }
func (*executeCmd) Usage() string {
	return `btsync execute [-no-watch] <portfolio> <backtest>...

  Asks the API to execute the backtests of a portfolio. Each accepted
  backtest is shown as running right away, then its status is polled until
  it completes or fails.

  With -no-watch, it returns as soon as the executions are accepted.
`
}

func (c *executeCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noWatch, "no-watch", false, "do not wait for the backtests to finish")
}

func (c *executeCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Error: a portfolio and at least one backtest are required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	ctrl := s.controller()
	defer ctrl.Close()

	pid := f.Arg(0)
	status := subcommands.ExitSuccess
	accepted := 0
	for _, bid := range f.Args()[1:] {
		ack, err := ctrl.Execute(ctx, pid, bid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error executing backtest: %v\n", err)
			status = subcommands.ExitFailure
			continue
		}
		accepted++
		fmt.Fprintf(stdout, "Backtest %s queued\n", ack.BacktestID)
	}
	if c.noWatch || accepted == 0 {
		return status
	}

	if err := watch(ctx, s.store, ctrl, []string{pid}, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error watching: %v\n", err)
		return subcommands.ExitFailure
	}
	return status
}
