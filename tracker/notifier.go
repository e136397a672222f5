package tracker

import (
	"sync"
	"time"

	"github.com/etnz/backtest"
	"github.com/google/uuid"
)

// DefaultTTL is how long a notification stays pending.
const DefaultTTL = 5 * time.Second

// Notification reports that a backtest has just completed or failed.
type Notification struct {
	ID          string
	PortfolioID string
	BacktestID  string
	Status      backtest.Status
	At          time.Time
}

// Notifier turns store changes into notifications about finished backtests.
type Notifier struct {
	ttl    time.Duration
	now    func() time.Time
	cancel func()
	c      chan Notification

	mu      sync.Mutex
	pending []Notification
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithTTL sets how long notifications stay pending.
func WithTTL(d time.Duration) NotifierOption { return func(n *Notifier) { n.ttl = d } }

// WithNotifierClock sets the clock used to stamp and expire notifications.
func WithNotifierClock(now func() time.Time) NotifierOption {
	return func(n *Notifier) { n.now = now }
}

// NewNotifier subscribes to every portfolio of the store. Close unsubscribes.
func NewNotifier(store *backtest.Store, opts ...NotifierOption) *Notifier {
	n := &Notifier{
		ttl: DefaultTTL,
		now: time.Now,
		c:   make(chan Notification, 16),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.cancel = store.Subscribe("", n.observe)
	return n
}

// C delivers notifications as they happen. Notifications are dropped from C,
// not from Pending, when nobody reads it.
func (n *Notifier) C() <-chan Notification { return n.c }

// Pending returns the notifications not yet expired nor dismissed, oldest
// first.
func (n *Notifier) Pending() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expire()
	return append([]Notification(nil), n.pending...)
}

// Dismiss removes a notification. It reports whether it was pending.
func (n *Notifier) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, p := range n.pending {
		if p.ID == id {
			n.pending = append(n.pending[:i], n.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Close unsubscribes from the store.
func (n *Notifier) Close() { n.cancel() }

// observe is called for every store change. Only jobs that were already known
// and just reached a terminal status are notified.
func (n *Notifier) observe(e backtest.Event) {
	for _, j := range e.Jobs {
		prev, seen := e.Previous[j.BacktestID]
		if !seen || prev == j.Status || !j.Status.Terminal() {
			continue
		}
		note := Notification{
			ID:          uuid.NewString(),
			PortfolioID: j.PortfolioID,
			BacktestID:  j.BacktestID,
			Status:      j.Status,
			At:          n.now(),
		}
		n.mu.Lock()
		n.expire()
		n.pending = append(n.pending, note)
		n.mu.Unlock()

		select {
		case n.c <- note:
		default:
		}
	}
}

func (n *Notifier) expire() {
	now := n.now()
	kept := n.pending[:0]
	for _, p := range n.pending {
		if now.Sub(p.At) < n.ttl {
			kept = append(kept, p)
		}
	}
	n.pending = kept
}
