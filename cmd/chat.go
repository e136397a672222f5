package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/backtest/api"
	"github.com/google/subcommands"
)

type chatCmd struct {
	category string
}

func (*chatCmd) Name() string     { return "chat" }
func (*chatCmd) Synopsis() string { return "ask the assistant of the portfolio API" }
func (*chatCmd) Usage() string {
	return `btsync chat [-category loss|profit|benchmark] <question>...

  Asks a question to the assistant hosted by the portfolio API, which knows
  your positions, and prints its markdown answer. The category selects what
  the question is about. Unlike assist, it needs no Gemini API key.
`
}

func (c *chatCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.category, "category", string(api.ChatLoss), "Topic of the question: loss, profit or benchmark")
}

func (c *chatCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	question := strings.TrimSpace(strings.Join(f.Args(), " "))
	if question == "" {
		fmt.Fprintln(os.Stderr, "Error: a question is required")
		return subcommands.ExitUsageError
	}
	category, err := api.ParseChatCategory(c.category)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	answer, err := s.client.Chat(ctx, category, question)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error asking the assistant: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(answer)
	return subcommands.ExitSuccess
}
