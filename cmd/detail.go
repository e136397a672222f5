package cmd

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/backtest/renderer"
	"github.com/goccy/go-json"
	"github.com/google/subcommands"
)

type detailCmd struct {
	field string
}

func (*detailCmd) Name() string     { return "detail" }
func (*detailCmd) Synopsis() string { return "display the result of a backtest" }
func (*detailCmd) Usage() string {
	return `btsync detail [-field <jsonpath>] <backtest>

  Displays the metrics, final holdings and daily equity of a backtest.

  With -field, prints instead the JSON value selected by a JSONPath
  expression over the raw result, e.g.

    btsync detail -field '$.metrics.sharpeRatio' 42
`
}

func (c *detailCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.field, "field", "", "JSONPath expression selecting a part of the raw result")
}

func (c *detailCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one backtest is required")
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	bid := f.Arg(0)

	if c.field == "" {
		d, err := s.client.Detail(ctx, bid)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error fetching backtest: %v\n", err)
			return subcommands.ExitFailure
		}
		printMarkdown(renderer.RenderDetail(d, s.Currency))
		return subcommands.ExitSuccess
	}

	data, err := s.client.Raw(ctx, "/api/backtests/"+url.PathEscape(bid))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error fetching backtest: %v\n", err)
		return subcommands.ExitFailure
	}
	val, err := selectField(c.field, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error selecting %q: %v\n", c.field, err)
		return subcommands.ExitFailure
	}
	out, err := json.MarshalIndent(val, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding %q: %v\n", c.field, err)
		return subcommands.ExitFailure
	}
	fmt.Fprintln(stdout, string(out))
	return subcommands.ExitSuccess
}

// selectField evaluates a JSONPath expression over data.
func selectField(path string, data any) (any, error) {
	return jsonpath.Get(path, data)
}
