package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
)

var errDown = errors.New("service down")

// fakeSource serves snapshots from memory.
type fakeSource struct {
	mu       sync.Mutex
	snaps    map[string]backtest.Snapshot
	fails    map[string]error
	calls    map[string]int
	inflight map[string]int
	overlap  bool          // two fetches of the same portfolio ran together
	delay    time.Duration // of every fetch
	gate     chan struct{} // if set, fetches wait for it to be closed
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		snaps:    make(map[string]backtest.Snapshot),
		fails:    make(map[string]error),
		calls:    make(map[string]int),
		inflight: make(map[string]int),
	}
}

func (f *fakeSource) set(pid string, snap backtest.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[pid] = snap
}

func (f *fakeSource) fail(pid string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails[pid] = err
}

func (f *fakeSource) callsTo(pid string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pid]
}

func (f *fakeSource) Statuses(ctx context.Context, pid string) (backtest.Snapshot, error) {
	f.mu.Lock()
	f.calls[pid]++
	f.inflight[pid]++
	if f.inflight[pid] > 1 {
		f.overlap = true
	}
	gate, delay := f.gate, f.delay
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight[pid]--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fails[pid]; err != nil {
		return nil, err
	}
	snap := make(backtest.Snapshot, len(f.snaps[pid]))
	for k, v := range f.snaps[pid] {
		snap[k] = v
	}
	return snap, nil
}

// fakeExecutor accepts every execution unless err is set.
type fakeExecutor struct {
	mu       sync.Mutex
	err      error
	executed []string
}

func (f *fakeExecutor) Execute(ctx context.Context, bid string) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return api.Ack{}, f.err
	}
	f.executed = append(f.executed, bid)
	return api.Ack{BacktestID: api.ID(bid)}, nil
}

// safeClock is a concurrency safe clock moving one millisecond forward at
// every call.
func safeClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Millisecond)
		return now
	}
}

// waitFor fails the test if cond does not hold within a second.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}
