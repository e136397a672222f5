package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/renderer"
	"github.com/google/subcommands"
)

type searchCmd struct {
	popular bool
}

func (*searchCmd) Name() string     { return "search" }
func (*searchCmd) Synopsis() string { return "find stocks by code or name" }
func (*searchCmd) Usage() string {
	return `btsync search [-popular] <keyword>...

  Finds the stocks whose code or name contains the keyword. With -popular, or
  without keyword, lists the popular stocks instead.
`
}

func (c *searchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.popular, "popular", false, "list the popular stocks")
}

func (c *searchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	keyword := strings.TrimSpace(strings.Join(f.Args(), " "))
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	var (
		matches []api.StockMatch
		title   string
		err     error
	)
	if c.popular || keyword == "" {
		title = "Popular stocks"
		matches, err = s.client.PopularStocks(ctx)
	} else {
		title = "Stocks matching " + keyword
		matches, err = s.client.SearchStocks(ctx, keyword)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching stocks: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderStockMatches(title, matches))
	return subcommands.ExitSuccess
}
