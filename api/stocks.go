package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// MarketStatus describes the trading session at the time of a quote.
type MarketStatus struct {
	IsOpen    bool   `json:"isOpen"`
	Session   string `json:"session"`
	NextClose string `json:"nextClose"`
}

// Price is the latest quote of a stock.
type Price struct {
	Code          string          `json:"ticker"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"currentPrice"`
	Change        decimal.Decimal `json:"dailyChange"`
	ChangePercent decimal.Decimal `json:"dailyRate"`
	MarketCap     decimal.Decimal `json:"marketCap"`
	Sign          string          `json:"sign"` // PLUS, MINUS or ZERO
}

// Prices fetches the latest quotes of several stocks in a single call.
// Codes unknown to the API are simply missing from the result.
func (c *Client) Prices(ctx context.Context, codes []string) ([]Price, MarketStatus, error) {
	if len(codes) == 0 {
		return nil, MarketStatus{}, nil
	}
	var batch struct {
		MarketStatus MarketStatus `json:"marketStatus"`
		Data         []Price      `json:"data"`
	}
	query := url.Values{"codes": {strings.Join(codes, ",")}}
	if err := c.do(ctx, "fetch stock prices", http.MethodGet, "/api/stocks", query, nil, &batch); err != nil {
		return nil, MarketStatus{}, err
	}
	return batch.Data, batch.MarketStatus, nil
}

// StockMatch is a stock found by a search.
type StockMatch struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Sector string `json:"sector"`
}

// SearchStocks finds the stocks whose code or name matches keyword. A blank
// keyword matches nothing and makes no call.
func (c *Client) SearchStocks(ctx context.Context, keyword string) ([]StockMatch, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}
	return c.stockMatches(ctx, "search stocks", "/api/stocks/search", url.Values{"keyword": {keyword}})
}

// PopularStocks fetches the most searched stocks.
func (c *Client) PopularStocks(ctx context.Context) ([]StockMatch, error) {
	return c.stockMatches(ctx, "fetch popular stocks", "/api/stocks/popular", nil)
}

func (c *Client) stockMatches(ctx context.Context, op, path string, query url.Values) ([]StockMatch, error) {
	var data struct {
		Results []StockMatch `json:"results"`
		Total   int          `json:"total"`
	}
	if err := c.do(ctx, op, http.MethodGet, path, query, nil, &data); err != nil {
		return nil, err
	}
	return data.Results, nil
}
