// Package stockcache caches stock quotes and batches their retrieval.
//
// Quotes are displayed next to backtest holdings and do not need to be fresh:
// once fetched, an entry is kept until it is explicitly refreshed.
package stockcache

import (
	"context"
	"log"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/etnz/backtest/api"
	"golang.org/x/sync/singleflight"
)

// Source fetches quotes in batch. *api.Client implements it.
type Source interface {
	Prices(ctx context.Context, codes []string) ([]api.Price, api.MarketStatus, error)
}

// Cache holds the quotes fetched so far.
type Cache struct {
	source    Source
	timeout   time.Duration
	debouncer *Debouncer
	group     singleflight.Group

	mu       sync.Mutex
	prices   map[string]api.Price
	market   api.MarketStatus
	queue    map[string]bool // codes waiting for the next batch
	inflight map[string]bool
	updated  time.Time
	err      error
}

// Option configures a Cache.
type Option func(*Cache)

// WithDebounce sets the batching window of Get.
func WithDebounce(d time.Duration) Option {
	return func(c *Cache) { c.debouncer = NewDebouncer(d) }
}

// WithTimeout bounds the background batches started by Get.
func WithTimeout(d time.Duration) Option { return func(c *Cache) { c.timeout = d } }

// New returns an empty Cache.
func New(source Source, opts ...Option) *Cache {
	c := &Cache{
		source:    source,
		timeout:   api.DefaultTimeout,
		debouncer: NewDebouncer(DefaultDebounceDuration),
		prices:    make(map[string]api.Price),
		queue:     make(map[string]bool),
		inflight:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached quote of code. On a miss, the code is queued and
// fetched with the other codes requested within the debounce window, and Get
// returns false.
func (c *Cache) Get(code string) (api.Price, bool) {
	c.mu.Lock()
	p, ok := c.prices[code]
	if !ok {
		c.queue[code] = true
	}
	c.mu.Unlock()
	if !ok {
		c.debouncer.Trigger(c.flush)
	}
	return p, ok
}

// GetAll is Get for several codes. Missing quotes are zero values with ok
// false at the same index.
func (c *Cache) GetAll(codes []string) (prices []api.Price, ok []bool) {
	prices = make([]api.Price, len(codes))
	ok = make([]bool, len(codes))
	for i, code := range codes {
		prices[i], ok[i] = c.Get(code)
	}
	return prices, ok
}

// Lookup returns the quotes of codes, fetching the missing ones right away.
// Concurrent lookups of the same missing codes share a single request.
func (c *Cache) Lookup(ctx context.Context, codes []string) (map[string]api.Price, error) {
	missing := c.missing(codes)
	if len(missing) > 0 {
		key := strings.Join(missing, ",")
		_, err, _ := c.group.Do(key, func() (any, error) {
			return nil, c.fetch(ctx, missing)
		})
		if err != nil {
			return nil, err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	found := make(map[string]api.Price, len(codes))
	for _, code := range codes {
		if p, ok := c.prices[code]; ok {
			found[code] = p
		}
	}
	return found, nil
}

// Refresh fetches codes again, whether cached or not.
func (c *Cache) Refresh(ctx context.Context, codes []string) error {
	return c.fetch(ctx, dedup(codes))
}

// Market returns the market status received with the last batch.
func (c *Cache) Market() api.MarketStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.market
}

// Updated returns the time of the last successful batch.
func (c *Cache) Updated() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updated
}

// Err returns the error of the last batch, nil if it succeeded.
func (c *Cache) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close drops the pending batch.
func (c *Cache) Close() { c.debouncer.Cancel() }

// flush fetches the queued codes that are neither cached nor in flight.
// Codes in flight stay queued and are flushed again once their request
// settles.
func (c *Cache) flush() {
	c.mu.Lock()
	var codes []string
	next := make(map[string]bool)
	for code := range c.queue {
		switch _, cached := c.prices[code]; {
		case cached:
		case c.inflight[code]:
			next[code] = true
		default:
			codes = append(codes, code)
		}
	}
	c.queue = next
	c.mu.Unlock()
	if len(codes) == 0 {
		return
	}
	slices.Sort(codes)

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.fetch(ctx, codes); err != nil {
		log.Printf("cannot fetch stock prices %v: %v", codes, err)
	}
}

func (c *Cache) fetch(ctx context.Context, codes []string) error {
	c.mu.Lock()
	for _, code := range codes {
		c.inflight[code] = true
	}
	c.mu.Unlock()

	prices, market, err := c.source.Prices(ctx, codes)

	c.mu.Lock()
	waiting := false
	for _, code := range codes {
		delete(c.inflight, code)
		waiting = waiting || c.queue[code]
	}
	c.err = err
	if err == nil {
		for _, p := range prices {
			c.prices[p.Code] = p
		}
		c.market = market
		c.updated = time.Now()
	}
	c.mu.Unlock()

	if waiting {
		c.debouncer.Trigger(c.flush)
	}
	return err
}

func (c *Cache) missing(codes []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, code := range dedup(codes) {
		if _, ok := c.prices[code]; !ok {
			out = append(out, code)
		}
	}
	return out
}

func dedup(codes []string) []string {
	set := make(map[string]bool, len(codes))
	for _, code := range codes {
		if code != "" {
			set[code] = true
		}
	}
	return slices.Sorted(maps.Keys(set))
}
