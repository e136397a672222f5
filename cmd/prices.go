package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/stockcache"
	"github.com/google/subcommands"
)

type pricesCmd struct{}

func (*pricesCmd) Name() string     { return "prices" }
func (*pricesCmd) Synopsis() string { return "display the current price of stocks" }
func (*pricesCmd) Usage() string {
	return `btsync prices <code>...

  Displays the current price and daily change of stocks, fetched in a single
  batch. Unknown codes are skipped.
`
}

func (*pricesCmd) SetFlags(f *flag.FlagSet) {}

func (*pricesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one stock code is required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	cache := stockcache.New(s.client, stockcache.WithTimeout(s.Timeout))
	defer cache.Close()

	found, err := cache.Lookup(ctx, f.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}
	// keep the order of the command line
	var prices []api.Price
	for _, code := range f.Args() {
		if p, ok := found[code]; ok {
			prices = append(prices, p)
			delete(found, code)
		}
	}
	printMarkdown(renderer.RenderPrices(prices, cache.Market(), s.Currency))
	return subcommands.ExitSuccess
}
