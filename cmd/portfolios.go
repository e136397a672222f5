package cmd

import (
	"context"
	"flag"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/stockcache"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"
)

type portfoliosCmd struct{}

func (*portfoliosCmd) Name() string     { return "portfolios" }
func (*portfoliosCmd) Synopsis() string { return "list the portfolios with their total assets" }
func (*portfoliosCmd) Usage() string {
	return `btsync portfolios

  Lists the portfolios with their stocks, total assets and daily change, and
  the totals over every portfolio.
`
}

func (*portfoliosCmd) SetFlags(f *flag.FlagSet) {}

func (*portfoliosCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	list, err := s.client.Portfolios(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing portfolios: %v\n", err)
		return subcommands.ExitFailure
	}
	sum, err := s.client.PortfolioSummary(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading portfolio summary: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderPortfolios(list, sum, s.Currency))
	return subcommands.ExitSuccess
}

type portfolioCmd struct{}

func (*portfolioCmd) Name() string     { return "portfolio" }
func (*portfolioCmd) Synopsis() string { return "display the holdings and rules of a portfolio" }
func (*portfolioCmd) Usage() string {
	return `btsync portfolio <portfolio>

  Displays the holdings of a portfolio with their weight and value, and its
  rebalance, stop loss and take profit rules.
`
}

func (*portfolioCmd) SetFlags(f *flag.FlagSet) {}

func (*portfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one portfolio is required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	d, err := s.client.Portfolio(ctx, f.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(renderer.RenderPortfolio(d, s.Currency))
	return subcommands.ExitSuccess
}

// shareList collects repeated -stock flags.
type shareList map[string]decimal.Decimal

func (l shareList) String() string {
	var parts []string
	for _, symbol := range slices.Sorted(maps.Keys(l)) {
		parts = append(parts, symbol+"="+l[symbol].String())
	}
	return strings.Join(parts, ",")
}

// Set parses "symbol=shares". Shares of a symbol given twice add up.
func (l shareList) Set(v string) error {
	symbol, n, ok := strings.Cut(v, "=")
	symbol = strings.TrimSpace(symbol)
	if !ok || symbol == "" {
		return fmt.Errorf("invalid stock %q, want symbol=shares", v)
	}
	shares, err := decimal.NewFromString(strings.TrimSpace(n))
	if err != nil || !shares.IsPositive() {
		return fmt.Errorf("invalid shares in %q, want a positive number", v)
	}
	l[symbol] = l[symbol].Add(shares)
	return nil
}

type addPortfolioCmd struct {
	name        string
	description string
	memo        string
	stocks      shareList
	rebalance   ruleList
	stopLoss    ruleList
	takeProfit  ruleList
}

func (*addPortfolioCmd) Name() string     { return "add-portfolio" }
func (*addPortfolioCmd) Synopsis() string { return "create a portfolio" }
func (*addPortfolioCmd) Usage() string {
	return `btsync add-portfolio -name <name> -stock <symbol=shares>... [-description <text>] [-memo <text>] [-rebalance category=threshold]... [-stop-loss category=threshold]... [-take-profit category=threshold]...

  Creates a portfolio holding stocks. Each holding is valued at the current
  price of the stock, and weighted by its share of the total value.
`
}

func (c *addPortfolioCmd) SetFlags(f *flag.FlagSet) {
	c.stocks = make(shareList)
	f.StringVar(&c.name, "name", "", "Name of the portfolio")
	f.StringVar(&c.description, "description", "", "Description of the portfolio")
	f.StringVar(&c.memo, "memo", "", "Memo attached to the rules")
	f.Var(c.stocks, "stock", "Holding symbol=shares, repeatable")
	f.Var(&c.rebalance, "rebalance", "Rebalance rule category=threshold[:description], repeatable")
	f.Var(&c.stopLoss, "stop-loss", "Stop loss rule category=threshold[:description], repeatable")
	f.Var(&c.takeProfit, "take-profit", "Take profit rule category=threshold[:description], repeatable")
}

// request builds the creation request from the flags and the quotes of the
// stocks.
func (c *addPortfolioCmd) request(quotes map[string]api.Price) (api.CreatePortfolioRequest, error) {
	var unknown []string
	for _, symbol := range slices.Sorted(maps.Keys(c.stocks)) {
		if _, ok := quotes[symbol]; !ok {
			unknown = append(unknown, symbol)
		}
	}
	if len(unknown) > 0 {
		return api.CreatePortfolioRequest{}, fmt.Errorf("no price for %s", strings.Join(unknown, ", "))
	}
	req := api.NewCreatePortfolioRequest(c.name, c.description, c.stocks, quotes)
	req.Rule.Memo = c.memo
	req.Rule.Rebalance = append(req.Rule.Rebalance, c.rebalance...)
	req.Rule.StopLoss = append(req.Rule.StopLoss, c.stopLoss...)
	req.Rule.TakeProfit = append(req.Rule.TakeProfit, c.takeProfit...)
	return req, nil
}

func (c *addPortfolioCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if strings.TrimSpace(c.name) == "" || len(c.stocks) == 0 {
		fmt.Fprintln(os.Stderr, "Error: -name and at least one -stock are required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	cache := stockcache.New(s.client, stockcache.WithTimeout(s.Timeout))
	defer cache.Close()

	quotes, err := cache.Lookup(ctx, slices.Sorted(maps.Keys(c.stocks)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching prices: %v\n", err)
		return subcommands.ExitFailure
	}
	req, err := c.request(quotes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	created, err := s.client.CreatePortfolio(ctx, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating portfolio: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Portfolio %s created: %s (%s)\n", created.ID, req.Name, renderer.NewMoney(req.TotalValue, s.Currency))
	return subcommands.ExitSuccess
}
