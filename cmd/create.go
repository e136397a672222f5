package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/date"
	"github.com/google/subcommands"
)

// ruleList collects repeated -stop-loss or -take-profit flags.
type ruleList []api.Rule

func (l *ruleList) String() string {
	var parts []string
	for _, r := range *l {
		parts = append(parts, r.Category+"="+r.Threshold)
	}
	return strings.Join(parts, ",")
}

// Set parses "category=threshold[:description]".
func (l *ruleList) Set(v string) error {
	category, rest, ok := strings.Cut(v, "=")
	if !ok || category == "" || rest == "" {
		return fmt.Errorf("invalid rule %q, want category=threshold[:description]", v)
	}
	threshold, desc, _ := strings.Cut(rest, ":")
	*l = append(*l, api.Rule{Category: category, Threshold: threshold, Description: desc})
	return nil
}

type createCmd struct {
	title       string
	description string
	memo        string
	period      string
	date        string
	rng         string
	stopLoss    ruleList
	takeProfit  ruleList
	execute     bool
}

func (*createCmd) Name() string     { return "create" }
func (*createCmd) Synopsis() string { return "create a backtest for a portfolio" }
func (*createCmd) Usage() string {
	return `btsync create [-title <title>] [-p <period> -d <date> | -range <from..to>] [-stop-loss category=threshold]... [-take-profit category=threshold]... [-execute] <portfolio>

  Creates a backtest of a portfolio over a period. The period is either the
  period (day, week, month, quarter, year) containing -d, by default the
  previous quarter, or an explicit -range.

  With -execute, the backtest is executed and watched right away.
`
}

func (c *createCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.title, "title", "", "Title of the backtest, defaults to the period")
	f.StringVar(&c.description, "description", "", "Description of the backtest")
	f.StringVar(&c.memo, "memo", "", "Memo attached to the rules")
	f.StringVar(&c.period, "p", "quarter", "Period of the backtest (day, week, month, quarter, year)")
	f.StringVar(&c.date, "d", "", "A date in the period, defaults to the previous period")
	f.StringVar(&c.rng, "range", "", "Explicit range from..to (YYYY-MM-DD..YYYY-MM-DD), overrides -p and -d")
	f.Var(&c.stopLoss, "stop-loss", "Stop loss rule category=threshold[:description], repeatable")
	f.Var(&c.takeProfit, "take-profit", "Take profit rule category=threshold[:description], repeatable")
	f.BoolVar(&c.execute, "execute", false, "Execute the backtest once created and watch it")
}

// request builds the creation request from the flags. today is the
// reference date of the default period.
func (c *createCmd) request(today date.Date) (api.CreateRequest, error) {
	var r date.Range
	switch {
	case c.rng != "":
		var err error
		if r, err = date.ParseRange(c.rng); err != nil {
			return api.CreateRequest{}, err
		}
	default:
		p, err := date.ParsePeriod(c.period)
		if err != nil {
			return api.CreateRequest{}, err
		}
		if c.date == "" {
			r = date.Previous(today, p)
		} else {
			d, err := date.Parse(c.date)
			if err != nil {
				return api.CreateRequest{}, err
			}
			r = date.NewRange(d, p)
		}
	}

	req := api.NewCreateRequest(c.title, r)
	req.Description = c.description
	req.Rules.Memo = c.memo
	req.Rules.StopLoss = append(req.Rules.StopLoss, c.stopLoss...)
	req.Rules.TakeProfit = append(req.Rules.TakeProfit, c.takeProfit...)
	return req, nil
}

func (c *createCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one portfolio is required")
		return subcommands.ExitUsageError
	}
	req, err := c.request(date.Today())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing period: %v\n", err)
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	pid := f.Arg(0)

	id, err := s.client.Create(ctx, pid, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating backtest: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(stdout, "Backtest %s created: %s (%s to %s)\n", id, req.Title, req.StartAt, req.EndAt)
	if !c.execute {
		return subcommands.ExitSuccess
	}

	ctrl := s.controller()
	defer ctrl.Close()
	if _, err := ctrl.Execute(ctx, pid, id.String()); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing backtest: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := watch(ctx, s.store, ctrl, []string{pid}, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error watching: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
