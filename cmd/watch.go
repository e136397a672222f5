package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/renderer"
	"github.com/etnz/backtest/tracker"
	"github.com/google/subcommands"
)

// idleCheck is how often watch checks whether polling is over.
const idleCheck = 100 * time.Millisecond

type watchCmd struct {
	follow bool
}

func (*watchCmd) Name() string { return "watch" }
func (*watchCmd) Synopsis() string {
	return "follow the running backtests of portfolios until they finish"
}
func (*watchCmd) Usage() string {
	return `btsync watch [-follow] [<portfolio>...]

  Loads the backtests of the portfolios, every portfolio by default, and
  polls the status of those having a running backtest, every -interval,
  printing each change. It returns when no backtest runs anymore.

  With -follow, it keeps running until interrupted.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.follow, "follow", false, "keep watching until interrupted")
}

func (c *watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s := openSession()
	if s == nil {
		return subcommands.ExitFailure
	}
	pids := f.Args()
	if len(pids) == 0 {
		list, err := s.client.Portfolios(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing portfolios: %v\n", err)
			return subcommands.ExitFailure
		}
		for _, p := range list {
			pids = append(pids, p.ID.String())
		}
		if len(pids) == 0 {
			fmt.Fprintln(stdout, "No portfolio to watch.")
			return subcommands.ExitSuccess
		}
	}
	ctrl := s.controller()
	defer ctrl.Close()

	for _, pid := range pids {
		if _, err := ctrl.Load(ctx, pid); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading portfolio %s: %v\n", pid, err)
			return subcommands.ExitFailure
		}
	}
	if err := watch(ctx, s.store, ctrl, pids, c.follow); err != nil {
		fmt.Fprintf(os.Stderr, "Error watching: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// watch prints the state of the portfolios, then every change, until no
// portfolio is polling (unless follow) or the user interrupts.
func watch(ctx context.Context, store *backtest.Store, ctrl *tracker.Controller, pids []string, follow bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	notes := tracker.NewNotifier(store)
	defer notes.Close()

	changes := make(chan backtest.Event, 16)
	cancel := store.Subscribe("", func(e backtest.Event) {
		select {
		case changes <- e:
		default: // the next event carries the full state anyway
		}
	})
	defer cancel()

	var docs []string
	for _, pid := range pids {
		docs = append(docs, renderer.RenderStatus(pid, store.Jobs(pid), store.Err(pid)))
	}
	printMarkdown(strings.Join(docs, "\n"))

	check := time.NewTicker(idleCheck)
	defer check.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-changes:
			printMarkdown(renderer.RenderStatus(e.PortfolioID, e.Jobs, store.Err(e.PortfolioID)))
		case n := <-notes.C():
			printMarkdown(renderer.RenderNotifications([]tracker.Notification{n}))
		case <-check.C:
			if follow || len(ctrl.Active()) > 0 {
				continue
			}
			// print what happened during the last tick before leaving
			for {
				select {
				case e := <-changes:
					printMarkdown(renderer.RenderStatus(e.PortfolioID, e.Jobs, store.Err(e.PortfolioID)))
				case n := <-notes.C():
					printMarkdown(renderer.RenderNotifications([]tracker.Notification{n}))
				default:
					return nil
				}
			}
		}
	}
}
