package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
)

// DefaultInterval is the delay between two polls of the active portfolios.
const DefaultInterval = 3 * time.Second

// ErrNoExecutor is returned by Controller.Execute when no Executor is set.
var ErrNoExecutor = errors.New("no executor configured")

// ErrClosed is returned by operations on a closed Controller.
var ErrClosed = errors.New("controller closed")

// Executor asks the API to run a backtest. *api.Client implements it.
type Executor interface {
	Execute(ctx context.Context, backtestID string) (api.Ack, error)
}

// Lister fetches the backtest list of a portfolio. *api.Client implements it.
type Lister interface {
	List(ctx context.Context, portfolioID string) ([]api.Summary, error)
}

// Controller polls the portfolios that have running backtests.
//
// Each portfolio is either idle or polling. All polling portfolios share a
// single timer, armed only while at least one portfolio is polling. A tick
// polls them all at once, and the next tick is armed only when the previous
// one has settled. After a tick, portfolios without any running backtest go
// back to idle.
type Controller struct {
	poller   *Poller
	store    *backtest.Store
	interval time.Duration
	executor Executor
	lister   Lister

	ctx     context.Context
	cancel  context.CancelFunc
	wake    chan struct{}
	stopped chan struct{}
	once    sync.Once

	mu     sync.Mutex
	active map[string]uint64 // portfolio id -> generation at Start
	gen    uint64
	armed  bool
	ticks  int
	closed bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithInterval sets the delay between two ticks. Zero or less means
// DefaultInterval.
func WithInterval(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithExecutor sets the Executor used by Execute.
func WithExecutor(e Executor) ControllerOption { return func(c *Controller) { c.executor = e } }

// WithLister sets the Lister used by Load.
func WithLister(l Lister) ControllerOption { return func(c *Controller) { c.lister = l } }

// NewController returns a running Controller. Close must be called to release
// its goroutine.
func NewController(poller *Poller, store *backtest.Store, opts ...ControllerOption) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		poller:   poller,
		store:    store,
		interval: DefaultInterval,
		ctx:      ctx,
		cancel:   cancel,
		wake:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
		active:   make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.run()
	return c
}

// Start moves the portfolio to polling. It does nothing if the portfolio is
// already polling. The first poll happens one interval later.
func (c *Controller) Start(portfolioID string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if _, ok := c.active[portfolioID]; !ok {
		c.gen++
		c.active[portfolioID] = c.gen
	}
	c.mu.Unlock()
	c.signal()
}

// Stop moves the portfolio back to idle. It does nothing if the portfolio is
// idle. A poll already in flight completes but its result does not restart
// polling.
func (c *Controller) Stop(portfolioID string) {
	c.mu.Lock()
	_, ok := c.active[portfolioID]
	delete(c.active, portfolioID)
	c.mu.Unlock()
	if ok {
		c.signal()
	}
}

// IsPolling reports whether the portfolio is polling.
func (c *Controller) IsPolling(portfolioID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.active[portfolioID]
	return ok
}

// Active returns the sorted ids of the polling portfolios.
func (c *Controller) Active() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.active))
}

// Ticking reports whether the timer is armed or a tick is in flight.
func (c *Controller) Ticking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Ticks returns the number of ticks completed so far.
func (c *Controller) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Execute asks the API to run a backtest of a portfolio.
//
// On success the backtest is recorded as running right away, before any
// poll, and the portfolio starts polling. On failure nothing changes and the
// error is returned.
func (c *Controller) Execute(ctx context.Context, portfolioID, backtestID string) (api.Ack, error) {
	if c.executor == nil {
		return api.Ack{}, ErrNoExecutor
	}
	if c.isClosed() {
		return api.Ack{}, ErrClosed
	}
	ack, err := c.executor.Execute(ctx, backtestID)
	if err != nil {
		return api.Ack{}, fmt.Errorf("cannot execute backtest %s of portfolio %s: %w", backtestID, portfolioID, err)
	}
	c.store.SetStatus(portfolioID, backtestID, backtest.Running)
	c.Start(portfolioID)
	return ack, nil
}

// Observe records statuses loaded outside of polling, typically from a
// backtest list, and starts polling if any of them is running.
func (c *Controller) Observe(portfolioID string, snap backtest.Snapshot) {
	c.store.Reconcile(portfolioID, snap)
	if snap.HasRunning() {
		c.Start(portfolioID)
	}
}

// Load fetches the backtest list of a portfolio and observes its statuses.
func (c *Controller) Load(ctx context.Context, portfolioID string) ([]api.Summary, error) {
	if c.lister == nil {
		return nil, errors.New("no lister configured")
	}
	list, err := c.lister.List(ctx, portfolioID)
	if err != nil {
		return nil, err
	}
	c.Observe(portfolioID, api.StatusesOf(list))
	return list, nil
}

// Close stops polling and waits for a tick in flight to return. It is safe to
// call Close more than once.
func (c *Controller) Close() {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.active = make(map[string]uint64)
		c.mu.Unlock()
		c.cancel()
		<-c.stopped
	})
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// signal wakes the loop up so that it re-arms or disarms the timer.
func (c *Controller) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) setArmed(armed bool) {
	c.mu.Lock()
	c.armed = armed
	c.mu.Unlock()
}

func (c *Controller) hasActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active) > 0
}

// run owns the timer. It is the only goroutine that ticks.
func (c *Controller) run() {
	defer close(c.stopped)
	timer := time.NewTimer(c.interval)
	timer.Stop()
	defer timer.Stop()
	armed := false

	for {
		select {
		case <-c.ctx.Done():
			c.setArmed(false)
			return

		case <-c.wake:
			want := c.hasActive()
			if want && !armed {
				timer.Reset(c.interval)
				armed = true
			} else if !want && armed {
				timer.Stop()
				armed = false
			}
			c.setArmed(armed)

		case <-timer.C:
			c.tick()
			if c.ctx.Err() != nil {
				c.setArmed(false)
				return
			}
			armed = c.hasActive()
			if armed {
				timer.Reset(c.interval)
			}
			c.setArmed(armed)
		}
	}
}

// tick polls every active portfolio and retires those without running
// backtests.
func (c *Controller) tick() {
	c.mu.Lock()
	gens := maps.Clone(c.active)
	c.mu.Unlock()
	if len(gens) == 0 {
		return
	}
	ids := slices.Sorted(maps.Keys(gens))

	results := c.poller.PollOnce(c.ctx, ids)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	for _, r := range results {
		if r.Err != nil || r.Running {
			continue
		}
		// A portfolio restarted during the tick has a newer generation.
		if gen, ok := c.active[r.PortfolioID]; ok && gen == gens[r.PortfolioID] {
			delete(c.active, r.PortfolioID)
			log.Printf("portfolio %s has no running backtest, polling stopped", r.PortfolioID)
		}
	}
}
