package backtest

import (
	"log"
	"maps"
	"slices"
	"sync"
	"time"
)

// Store is the in-memory record of the last known status of every tracked
// backtest, grouped by portfolio.
//
// A Store lives as long as the session that created it. Entries are created on
// first observation and overwritten in place, they are never deleted
// individually. Close releases everything at once.
//
// Writers publish an Event to the subscribers of the portfolio. Callbacks run
// synchronously, after the write is committed and before the writing call
// returns. They must not block, but they may read the Store.
type Store struct {
	now func() time.Time

	mu     sync.RWMutex
	jobs   map[string]map[string]Job // portfolio id -> backtest id -> job
	errs   map[string]error          // last transient error per portfolio
	subs   map[int]subscription
	nextID int
}

type subscription struct {
	portfolioID string // empty for all portfolios
	fn          func(Event)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithClock sets the clock used to stamp LastUpdated.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		now:  time.Now,
		jobs: make(map[string]map[string]Job),
		errs: make(map[string]error),
		subs: make(map[int]subscription),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time on the Store clock. Fetches stamp their
// issue time with it before calling ReconcileSince.
func (s *Store) Now() time.Time { return s.now() }

// Status returns the last known status of a backtest. ok is false if the
// backtest was never observed.
func (s *Store) Status(portfolioID, backtestID string) (st Status, ok bool) {
	j, ok := s.Job(portfolioID, backtestID)
	return j.Status, ok
}

// Job returns the full record of a backtest.
func (s *Store) Job(portfolioID, backtestID string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[portfolioID][backtestID]
	return j, ok
}

// Jobs returns the jobs known for a portfolio, sorted by backtest id.
func (s *Store) Jobs(portfolioID string) []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedJobs(s.jobs[portfolioID])
}

// Snapshot returns the statuses known for a portfolio, nil if none.
func (s *Store) Snapshot(portfolioID string) Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotOf(s.jobs[portfolioID])
}

// Portfolios returns the sorted ids of the portfolios observed so far.
func (s *Store) Portfolios() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.jobs))
}

// HasRunning reports whether any known job of the portfolio is Running.
func (s *Store) HasRunning(portfolioID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, j := range s.jobs[portfolioID] {
		if j.Status == Running {
			return true
		}
	}
	return false
}

// SetStatus records a local, optimistic, status for a backtest.
//
// Any status may overwrite any other: transitions are not validated. The
// entry is flagged Speculative until a status snapshot confirms it.
func (s *Store) SetStatus(portfolioID, backtestID string, status Status) {
	s.mu.Lock()
	cur := s.jobs[portfolioID]
	prev := snapshotOf(cur)
	if cur == nil {
		cur = make(map[string]Job)
		s.jobs[portfolioID] = cur
	}
	cur[backtestID] = Job{
		PortfolioID: portfolioID,
		BacktestID:  backtestID,
		Status:      status,
		LastUpdated: s.now(),
		Speculative: true,
	}
	e := Event{PortfolioID: portfolioID, Jobs: sortedJobs(cur), Previous: prev}
	s.mu.Unlock()

	s.publish(e)
}

// Reconcile applies a status snapshot fetched from the server.
//
// If the snapshot is exactly the current state of the portfolio nothing is
// written and nothing is published (an unknown portfolio is empty), the only effect is to confirm speculative
// entries. Otherwise the whole portfolio is replaced by the snapshot and an
// Event is published. It returns true if the state changed.
func (s *Store) Reconcile(portfolioID string, snap Snapshot) bool {
	return s.ReconcileSince(portfolioID, snap, time.Time{})
}

// ReconcileSince is like Reconcile for a snapshot requested at time issued.
//
// Speculative entries written after issued are newer than the snapshot and
// are kept. A zero issued keeps none.
func (s *Store) ReconcileSince(portfolioID string, snap Snapshot, issued time.Time) bool {
	s.mu.Lock()
	cur := s.jobs[portfolioID]
	delete(s.errs, portfolioID)

	target := make(Snapshot, len(snap))
	maps.Copy(target, snap)
	kept := make(map[string]bool)
	if !issued.IsZero() {
		for id, j := range cur {
			if j.Speculative && j.LastUpdated.After(issued) && snap[id] != j.Status {
				target[id] = j.Status
				kept[id] = true
			}
		}
	}

	prev := snapshotOf(cur)
	// An unknown portfolio equals the empty snapshot.
	if prev.Equal(target) {
		// No change: confirm what the server agrees with, silently.
		for id, j := range cur {
			if j.Speculative && !kept[id] {
				j.Speculative = false
				cur[id] = j
			}
		}
		s.mu.Unlock()
		return false
	}

	now := s.now()
	next := make(map[string]Job, len(target))
	for id, st := range target {
		old, known := cur[id]
		switch {
		case kept[id]:
			next[id] = old
		case known && old.Status == st:
			old.Speculative = false
			next[id] = old
		default:
			if known && old.Status.Terminal() && !st.Terminal() {
				log.Printf("portfolio %s: backtest %s moved back from %s to %s", portfolioID, id, old.Status, st)
			}
			next[id] = Job{PortfolioID: portfolioID, BacktestID: id, Status: st, LastUpdated: now}
		}
	}
	s.jobs[portfolioID] = next
	e := Event{PortfolioID: portfolioID, Jobs: sortedJobs(next), Previous: prev}
	s.mu.Unlock()

	s.publish(e)
	return true
}

// SetError records a transient error for the portfolio, typically a failed
// status fetch. It is cleared by the next successful reconciliation.
func (s *Store) SetError(portfolioID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, portfolioID)
		return
	}
	s.errs[portfolioID] = err
}

// Err returns the last transient error recorded for the portfolio.
func (s *Store) Err(portfolioID string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errs[portfolioID]
}

// Subscribe registers fn to be called on every change of the portfolio, or of
// any portfolio if portfolioID is empty. The returned function cancels the
// subscription.
func (s *Store) Subscribe(portfolioID string, fn func(Event)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = subscription{portfolioID: portfolioID, fn: fn}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close drops all state and all subscriptions.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = make(map[string]map[string]Job)
	s.errs = make(map[string]error)
	s.subs = make(map[int]subscription)
}

func (s *Store) publish(e Event) {
	s.mu.RLock()
	ids := slices.Sorted(maps.Keys(s.subs))
	var fns []func(Event)
	for _, id := range ids {
		sub := s.subs[id]
		if sub.portfolioID == "" || sub.portfolioID == e.PortfolioID {
			fns = append(fns, sub.fn)
		}
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

func snapshotOf(jobs map[string]Job) Snapshot {
	if jobs == nil {
		return nil
	}
	snap := make(Snapshot, len(jobs))
	for id, j := range jobs {
		snap[id] = j.Status
	}
	return snap
}

func sortedJobs(jobs map[string]Job) []Job {
	out := make([]Job, 0, len(jobs))
	for _, id := range slices.Sorted(maps.Keys(jobs)) {
		out = append(out, jobs[id])
	}
	return out
}
