// Package tracker keeps the job store of the backtest package in sync with
// the API while backtests run.
//
// A Poller fetches the status of several portfolios at once. A Controller
// decides which portfolios are polled and when: only those with a running
// backtest, every interval, with at most one tick in flight.
package tracker

import (
	"context"
	"log"

	"github.com/etnz/backtest"
	"golang.org/x/sync/errgroup"
)

// StatusSource fetches the status snapshot of a portfolio. *api.Client
// implements it.
type StatusSource interface {
	Statuses(ctx context.Context, portfolioID string) (backtest.Snapshot, error)
}

// Result is the outcome of polling one portfolio.
type Result struct {
	PortfolioID string
	Changed     bool // the store was updated
	Running     bool // the fetched snapshot has a running backtest
	Err         error
}

// Poller fetches status snapshots and reconciles them into a Store.
type Poller struct {
	source StatusSource
	store  *backtest.Store
	limit  int
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithConcurrency bounds the number of requests in flight. Zero or less means
// one request per portfolio, all at once.
func WithConcurrency(n int) PollerOption { return func(p *Poller) { p.limit = n } }

// NewPoller returns a Poller reading from source and writing into store.
func NewPoller(source StatusSource, store *backtest.Store, opts ...PollerOption) *Poller {
	p := &Poller{source: source, store: store}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollOnce fetches every portfolio concurrently and waits for all of them.
//
// A failed fetch is recorded in its Result and in the Store, and logged. It
// neither stops nor alters the other fetches. The returned results are in the
// order of portfolioIDs.
func (p *Poller) PollOnce(ctx context.Context, portfolioIDs []string) []Result {
	results := make([]Result, len(portfolioIDs))
	var g errgroup.Group
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i, pid := range portfolioIDs {
		g.Go(func() error {
			results[i] = p.poll(ctx, pid)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (p *Poller) poll(ctx context.Context, pid string) Result {
	issued := p.store.Now()
	snap, err := p.source.Statuses(ctx, pid)
	if err != nil {
		log.Printf("cannot poll portfolio %s: %v", pid, err)
		p.store.SetError(pid, err)
		return Result{PortfolioID: pid, Err: err}
	}
	changed := p.store.ReconcileSince(pid, snap, issued)
	return Result{
		PortfolioID: pid,
		Changed:     changed,
		Running:     p.store.HasRunning(pid),
	}
}
