// Package backtest tracks the lifecycle of backtest jobs that run
// asynchronously on a remote portfolio API.
//
// The remote API is the single source of truth: it runs the backtests and
// computes every figure. This module only keeps the client side in sync:
//   - Data Model: a Job is one backtest execution owned by a portfolio, its
//     Status is one of CREATED, RUNNING, COMPLETED or FAILED.
//   - Job State Store: the Store holds the last known status of every job,
//     per portfolio, and publishes an Event to its subscribers on change.
//   - Status Synchronization: the tracker package polls the API for the
//     portfolios that have running jobs and reconciles the Store with each
//     fresh Snapshot, until no job runs anymore.
//   - API Access: the api package is the REST client for the remote API.
//
// This package serves as the foundation of the `btsync` command-line tool.
package backtest
