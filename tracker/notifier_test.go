package tracker

import (
	"testing"
	"time"

	"github.com/etnz/backtest"
)

func TestNotifier(t *testing.T) {
	now := time.Date(2025, time.September, 8, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := backtest.NewStore()
	n := NewNotifier(store, WithNotifierClock(clock), WithTTL(5*time.Second))
	defer n.Close()

	// Loading a portfolio with finished backtests is not a transition.
	store.Reconcile("7", backtest.Snapshot{"41": backtest.Completed, "42": backtest.Created})
	if got := n.Pending(); len(got) != 0 {
		t.Fatalf("Pending() = %v after a first load, want none", got)
	}

	store.SetStatus("7", "42", backtest.Running)
	store.Reconcile("7", backtest.Snapshot{"41": backtest.Completed, "42": backtest.Failed})

	pending := n.Pending()
	if len(pending) != 1 {
		t.Fatalf("Pending() = %v, want one notification", pending)
	}
	if p := pending[0]; p.PortfolioID != "7" || p.BacktestID != "42" || p.Status != backtest.Failed || p.ID == "" {
		t.Errorf("Pending()[0] = %+v", p)
	}
	select {
	case got := <-n.C():
		if got.ID != pending[0].ID {
			t.Errorf("C() delivered %+v, want %+v", got, pending[0])
		}
	default:
		t.Errorf("C() delivered nothing")
	}

	// The same status again is not notified twice.
	store.Reconcile("7", backtest.Snapshot{"41": backtest.Completed, "42": backtest.Failed, "43": backtest.Running})
	if got := n.Pending(); len(got) != 1 {
		t.Errorf("Pending() = %v, want still one notification", got)
	}

	now = now.Add(5 * time.Second)
	if got := n.Pending(); len(got) != 0 {
		t.Errorf("Pending() = %v after the TTL, want none", got)
	}
}

func TestNotifier_Dismiss(t *testing.T) {
	store := backtest.NewStore()
	n := NewNotifier(store)
	defer n.Close()

	store.Reconcile("7", backtest.Snapshot{"42": backtest.Running})
	store.Reconcile("7", backtest.Snapshot{"42": backtest.Completed})
	pending := n.Pending()
	if len(pending) != 1 {
		t.Fatalf("Pending() = %v, want one notification", pending)
	}

	if !n.Dismiss(pending[0].ID) {
		t.Errorf("Dismiss() = false for a pending notification")
	}
	if n.Dismiss(pending[0].ID) {
		t.Errorf("Dismiss() = true for a dismissed notification")
	}
	if got := n.Pending(); len(got) != 0 {
		t.Errorf("Pending() = %v after Dismiss, want none", got)
	}
}

func TestNotifier_Close(t *testing.T) {
	store := backtest.NewStore()
	n := NewNotifier(store)
	store.Reconcile("7", backtest.Snapshot{"42": backtest.Running})
	n.Close()
	store.Reconcile("7", backtest.Snapshot{"42": backtest.Completed})
	if got := n.Pending(); len(got) != 0 {
		t.Errorf("Pending() = %v after Close, want none", got)
	}
}
