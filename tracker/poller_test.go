package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/etnz/backtest"
	"github.com/google/go-cmp/cmp"
)

func TestPoller_PollOnce(t *testing.T) {
	src := newFakeSource()
	src.set("7", backtest.Snapshot{"42": backtest.Running})
	src.set("8", backtest.Snapshot{"50": backtest.Completed})
	store := backtest.NewStore()
	p := NewPoller(src, store)

	got := p.PollOnce(context.Background(), []string{"7", "8"})

	want := []Result{
		{PortfolioID: "7", Changed: true, Running: true},
		{PortfolioID: "8", Changed: true, Running: false},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("PollOnce() mismatch (-want +got):\n%s", diff)
	}

	// Polling again the same content changes nothing.
	got = p.PollOnce(context.Background(), []string{"7", "8"})
	for _, r := range got {
		if r.Changed {
			t.Errorf("PollOnce() second pass changed portfolio %s", r.PortfolioID)
		}
	}
}

func TestPoller_FailureIsolation(t *testing.T) {
	src := newFakeSource()
	src.set("7", backtest.Snapshot{"42": backtest.Completed})
	src.fail("8", errDown)
	store := backtest.NewStore()
	store.Reconcile("8", backtest.Snapshot{"50": backtest.Running})

	results := NewPoller(src, store, WithConcurrency(1)).PollOnce(context.Background(), []string{"7", "8"})

	if results[0].Err != nil {
		t.Errorf("portfolio 7 error = %v, want nil", results[0].Err)
	}
	if !errors.Is(results[1].Err, errDown) {
		t.Errorf("portfolio 8 error = %v, want %v", results[1].Err, errDown)
	}
	if st, _ := store.Status("7", "42"); st != backtest.Completed {
		t.Errorf("Status(7, 42) = %q, want COMPLETED", st)
	}
	if st, _ := store.Status("8", "50"); st != backtest.Running {
		t.Errorf("Status(8, 50) = %q, want the previous RUNNING to be left untouched", st)
	}
	if !errors.Is(store.Err("8"), errDown) {
		t.Errorf("store.Err(8) = %v, want %v", store.Err("8"), errDown)
	}
	if store.Err("7") != nil {
		t.Errorf("store.Err(7) = %v, want nil", store.Err("7"))
	}
}

func TestPoller_StaleSnapshotKeepsOptimisticWrite(t *testing.T) {
	src := newFakeSource()
	src.set("7", backtest.Snapshot{"42": backtest.Created})
	src.gate = make(chan struct{})
	store := backtest.NewStore(backtest.WithClock(safeClock()))
	store.Reconcile("7", backtest.Snapshot{"42": backtest.Created})
	p := NewPoller(src, store)

	done := make(chan []Result)
	go func() { done <- p.PollOnce(context.Background(), []string{"7"}) }()

	// The fetch is in flight when the user executes the backtest.
	waitFor(t, "the fetch to start", func() bool { return src.callsTo("7") == 1 })
	store.SetStatus("7", "42", backtest.Running)
	close(src.gate)
	results := <-done

	if st, _ := store.Status("7", "42"); st != backtest.Running {
		t.Errorf("Status(7, 42) = %q, want RUNNING", st)
	}
	if !results[0].Running {
		t.Errorf("Result.Running = false, want true while the optimistic write stands")
	}
}
