package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/date"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// This file contains the backtest endpoints of the API.

// ID is an identifier assigned by the API. The API sends them either as JSON
// strings or as JSON numbers, they are always handled as strings here.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Metrics are the figures computed by the API for a completed backtest.
// They are opaque: displayed, never recomputed.
type Metrics struct {
	TotalReturn      decimal.Decimal `json:"totalReturn"`
	AnnualizedReturn decimal.Decimal `json:"annualizedReturn"`
	Volatility       decimal.Decimal `json:"volatility"`
	SharpeRatio      decimal.Decimal `json:"sharpeRatio"`
	MaxDrawdown      decimal.Decimal `json:"maxDrawdown"`
	WinRate          decimal.Decimal `json:"winRate"`
	ProfitLossRatio  decimal.Decimal `json:"profitLossRatio"`
}

// Summary is one entry of the backtest list of a portfolio.
type Summary struct {
	ID        ID              `json:"id"`
	Name      string          `json:"name"`
	CreatedAt string          `json:"createdAt"`
	Period    string          `json:"period"`
	Status    backtest.Status `json:"status"`
	Metrics   *Metrics        `json:"metrics,omitempty"` // only for terminal backtests
}

// Equity is the value of each stock of the portfolio on a given day.
type Equity struct {
	Date   string                     `json:"date"`
	Stocks map[string]decimal.Decimal `json:"stocks"`
}

// Holding is a position at the end of the backtest.
type Holding struct {
	StockName string          `json:"stockName"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Detail is the full result of a backtest.
type Detail struct {
	HistoryID     ID              `json:"historyId"`
	Name          string          `json:"name"`
	Period        string          `json:"period"`
	ExecutionTime decimal.Decimal `json:"executionTime"`
	Metrics       Metrics         `json:"metrics"`
	DailyEquity   []Equity        `json:"dailyEquity"`
	Holdings      []Holding       `json:"holdings"`
}

// Ack acknowledges that a backtest execution was queued. It says nothing
// about the outcome of the backtest.
type Ack struct {
	BacktestID ID `json:"backtestId"`
}

// UnmarshalJSON accepts either an object or the bare echoed id.
func (a *Ack) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var obj struct {
			BacktestID ID `json:"backtestId"`
			ID         ID `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		a.BacktestID = obj.BacktestID
		if a.BacktestID == "" {
			a.BacktestID = obj.ID
		}
		return nil
	}
	return a.BacktestID.UnmarshalJSON(data)
}

// Rule is a single stop loss or take profit condition.
type Rule struct {
	Category    string `json:"category"`
	Threshold   string `json:"threshold"`
	Description string `json:"description,omitempty"`
}

// Rules groups the stop conditions of a backtest.
type Rules struct {
	Memo       string `json:"memo,omitempty"`
	StopLoss   []Rule `json:"stopLoss"`
	TakeProfit []Rule `json:"takeProfit"`
}

// CreateRequest describes a backtest to create.
type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartAt     string `json:"startAt"`
	EndAt       string `json:"endAt"`
	Rules       Rules  `json:"rules"`
}

// NewCreateRequest returns a request for a backtest over period. An empty
// title defaults to the period identifier.
func NewCreateRequest(title string, period date.Range) CreateRequest {
	if title == "" {
		title = "Backtest " + period.Identifier()
	}
	return CreateRequest{
		Title:   title,
		StartAt: period.StartAt(),
		EndAt:   period.EndAt(),
		Rules:   Rules{StopLoss: []Rule{}, TakeProfit: []Rule{}},
	}
}

func portfolioPath(format, portfolioID string) string {
	return fmt.Sprintf(format, url.PathEscape(portfolioID))
}

// Statuses fetches the status of every backtest of a portfolio.
func (c *Client) Statuses(ctx context.Context, portfolioID string) (backtest.Snapshot, error) {
	var snap backtest.Snapshot
	path := portfolioPath("/api/backtests/portfolios/%s/status", portfolioID)
	if err := c.do(ctx, "fetch backtest statuses", http.MethodGet, path, nil, nil, &snap); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = backtest.Snapshot{}
	}
	return snap, nil
}

// Execute asks the API to run a backtest. It returns as soon as the
// execution is queued.
func (c *Client) Execute(ctx context.Context, backtestID string) (Ack, error) {
	var ack Ack
	path := fmt.Sprintf("/api/backtests/%s/execute", url.PathEscape(backtestID))
	if err := c.do(ctx, "execute backtest", http.MethodPost, path, nil, nil, &ack); err != nil {
		return Ack{}, err
	}
	if ack.BacktestID == "" {
		ack.BacktestID = ID(backtestID)
	}
	return ack, nil
}

// List fetches the backtests of a portfolio.
func (c *Client) List(ctx context.Context, portfolioID string) ([]Summary, error) {
	var list []Summary
	path := portfolioPath("/api/backtests/portfolios/%s", portfolioID)
	if err := c.do(ctx, "list backtests", http.MethodGet, path, nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Detail fetches the result of a backtest.
func (c *Client) Detail(ctx context.Context, backtestID string) (Detail, error) {
	var d Detail
	path := fmt.Sprintf("/api/backtests/%s", url.PathEscape(backtestID))
	if err := c.do(ctx, "fetch backtest detail", http.MethodGet, path, nil, nil, &d); err != nil {
		return Detail{}, err
	}
	return d, nil
}

// Create registers a new backtest for a portfolio and returns its id. The
// backtest is not executed.
func (c *Client) Create(ctx context.Context, portfolioID string, req CreateRequest) (ID, error) {
	var id ID
	path := portfolioPath("/api/backtests/portfolio/%s", portfolioID)
	if err := c.do(ctx, "create backtest", http.MethodPost, path, nil, req, &id); err != nil {
		return "", err
	}
	return id, nil
}

// StatusesOf returns the statuses found in a backtest list. Missing statuses
// are skipped.
func StatusesOf(list []Summary) backtest.Snapshot {
	snap := make(backtest.Snapshot, len(list))
	for _, s := range list {
		if s.Status != "" {
			snap[string(s.ID)] = s.Status
		}
	}
	return snap
}
