package backtest

import (
	"maps"
	"slices"
	"time"
)

// Job is the last known state of one backtest execution.
type Job struct {
	PortfolioID string    `json:"portfolioId"`
	BacktestID  string    `json:"backtestId"`
	Status      Status    `json:"status"`
	LastUpdated time.Time `json:"lastUpdated"`
	// Speculative is true for a local optimistic write not yet confirmed by a
	// status snapshot from the server.
	Speculative bool `json:"speculative,omitempty"`
}

// Snapshot maps backtest ids to their status, for a single portfolio.
//
// It is the payload of one status fetch.
type Snapshot map[string]Status

// HasRunning reports whether any job in the snapshot is Running.
func (s Snapshot) HasRunning() bool {
	for _, st := range s {
		if st == Running {
			return true
		}
	}
	return false
}

// Running returns the sorted ids of the running jobs.
func (s Snapshot) Running() []string {
	var ids []string
	for id, st := range s {
		if st == Running {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// Equal reports whether both snapshots hold exactly the same ids and statuses.
func (s Snapshot) Equal(o Snapshot) bool { return maps.Equal(s, o) }

// IDs returns the sorted backtest ids.
func (s Snapshot) IDs() []string { return slices.Sorted(maps.Keys(s)) }

// Event is published by the Store each time the state of a portfolio changes.
type Event struct {
	PortfolioID string
	Jobs        []Job    // new state, sorted by backtest id
	Previous    Snapshot // state before the change, nil if the portfolio was unknown
}
