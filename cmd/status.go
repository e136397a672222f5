package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/tracker"
	"github.com/google/subcommands"
)

type statusCmd struct{}

func (*statusCmd) Name() string     { return "status" }
func (*statusCmd) Synopsis() string { return "display the status of the backtests of portfolios" }
func (*statusCmd) Usage() string {
	return `btsync status <portfolio>...

  Fetches once the status of every backtest of the given portfolios.
  Portfolios are fetched concurrently, a failure on one of them does not
  prevent the others from being displayed.
`
}

func (*statusCmd) SetFlags(f *flag.FlagSet) {}

func (*statusCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one portfolio is required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}

	results := tracker.NewPoller(s.client, s.store).PollOnce(ctx, f.Args())

	var docs []string
	status := subcommands.ExitSuccess
	for _, r := range results {
		if r.Err != nil {
			status = subcommands.ExitFailure
		}
		docs = append(docs, renderer.RenderStatus(r.PortfolioID, s.store.Jobs(r.PortfolioID), r.Err))
	}
	printMarkdown(strings.Join(docs, "\n"))
	return status
}
