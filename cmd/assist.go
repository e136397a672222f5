package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/backtest/agent"
	"github.com/google/subcommands"
	"google.golang.org/genai"
)

type assistCmd struct{}

func (*assistCmd) Name() string { return "assist" }
func (*assistCmd) Synopsis() string {
	return "start an interactive session with the AI assistant"
}
func (*assistCmd) Usage() string {
	return `btsync assist [question]

  Starts an interactive session with an assistant able to read the backtests
  of your portfolios and explain their results. It requires a Gemini API key
  in GEMINI_API_KEY (the .env file is read).
`
}

func (*assistCmd) SetFlags(_ *flag.FlagSet) {}

func (*assistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}

	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error initializing Gemini's client:", err)
		return subcommands.ExitFailure
	}

	a := agent.New(stdout, os.Stdin, agent.NewAnalyst(s.client, s.Currency), agent.NewResearcher())
	if !*raw {
		a.Render = func(md string) string {
			out, err := glamour.Render(md, "auto")
			if err != nil {
				return md
			}
			return out
		}
	}

	var prompts []string
	if f.NArg() > 0 {
		prompts = append(prompts, strings.Join(f.Args(), " "))
	}
	if err := a.Run(ctx, client, prompts...); err != nil {
		fmt.Fprintln(os.Stderr, "Agent failed:", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
