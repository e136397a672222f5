package api

import (
	"context"
	"maps"
	"net/http"
	"slices"

	"github.com/shopspring/decimal"
)

// HoldingStock is a stock held by a portfolio, as listed with it.
type HoldingStock struct {
	Ticker    string          `json:"ticker"`
	Name      string          `json:"name"`
	Weight    decimal.Decimal `json:"weight"` // percent of the portfolio
	Value     decimal.Decimal `json:"value"`
	DailyRate decimal.Decimal `json:"dailyRate"`
}

// Portfolio is one entry of the portfolio list.
type Portfolio struct {
	ID            ID              `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	HoldingStocks []HoldingStock  `json:"holdingStocks"`
	TotalAssets   decimal.Decimal `json:"totalAssets"`
	DailyRate     decimal.Decimal `json:"dailyRate"`
	DailyChange   decimal.Decimal `json:"dailyChange"`
}

// PortfolioSummary aggregates every portfolio of the user.
type PortfolioSummary struct {
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	DailyTotalReturn decimal.Decimal `json:"dailyTotalReturn"`
	DailyTotalChange decimal.Decimal `json:"dailyTotalChange"`
}

// Benchmark is the index a portfolio is compared to.
type Benchmark struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// PortfolioRules are the management rules of a portfolio.
type PortfolioRules struct {
	ID             ID        `json:"id"`
	Memo           string    `json:"memo"`
	BasicBenchmark string    `json:"basicBenchmark"`
	Benchmark      Benchmark `json:"benchmark"`
	Rebalance      []Rule    `json:"rebalance"`
	StopLoss       []Rule    `json:"stopLoss"`
	TakeProfit     []Rule    `json:"takeProfit"`
	CreatedAt      string    `json:"createdAt"`
	UpdatedAt      string    `json:"updatedAt"`
}

// PortfolioHolding is a position of a portfolio detail.
type PortfolioHolding struct {
	Name      string          `json:"name"`
	Weight    decimal.Decimal `json:"weight"`
	Value     decimal.Decimal `json:"value"`
	DailyRate decimal.Decimal `json:"dailyRate"`
}

// PortfolioDetail is the full description of a portfolio.
type PortfolioDetail struct {
	PortfolioID ID                 `json:"portfolioId"`
	Holdings    []PortfolioHolding `json:"holdings"`
	RuleID      ID                 `json:"ruleId"`
	Rules       PortfolioRules     `json:"rules"`
}

// StockHolding is a position of a portfolio to create.
type StockHolding struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Shares        decimal.Decimal `json:"shares"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Weight        decimal.Decimal `json:"weight"`
}

// CreateRule groups the rules of a portfolio to create.
type CreateRule struct {
	Memo       string `json:"memo"`
	Rebalance  []Rule `json:"rebalance"`
	StopLoss   []Rule `json:"stopLoss"`
	TakeProfit []Rule `json:"takeProfit"`
}

// CreatePortfolioRequest describes a portfolio to create.
type CreatePortfolioRequest struct {
	Name          string          `json:"name"`
	TotalValue    decimal.Decimal `json:"totalValue"`
	Description   string          `json:"description"`
	StockHoldings []StockHolding  `json:"stockHoldings"`
	Rule          CreateRule      `json:"rule"`
}

// NewCreatePortfolioRequest returns a request for a portfolio holding
// stocks. The value of each holding is its shares at the quoted price, the
// weights are the share of each value in the total.
func NewCreatePortfolioRequest(name, description string, shares map[string]decimal.Decimal, quotes map[string]Price) CreatePortfolioRequest {
	req := CreatePortfolioRequest{
		Name:          name,
		Description:   description,
		StockHoldings: []StockHolding{},
		Rule:          CreateRule{Rebalance: []Rule{}, StopLoss: []Rule{}, TakeProfit: []Rule{}},
	}
	for _, symbol := range slices.Sorted(maps.Keys(shares)) {
		q := quotes[symbol]
		h := StockHolding{
			Symbol:        symbol,
			Name:          q.Name,
			Shares:        shares[symbol],
			CurrentPrice:  q.Price,
			TotalValue:    shares[symbol].Mul(q.Price),
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
		}
		req.TotalValue = req.TotalValue.Add(h.TotalValue)
		req.StockHoldings = append(req.StockHoldings, h)
	}
	if req.TotalValue.IsPositive() {
		for i, h := range req.StockHoldings {
			req.StockHoldings[i].Weight = h.TotalValue.Div(req.TotalValue).Mul(decimal.NewFromInt(100)).Round(2)
		}
	}
	return req
}

// CreatedPortfolio is the API answer to a portfolio creation.
type CreatedPortfolio struct {
	ID          ID              `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	TotalValue  decimal.Decimal `json:"totalValue"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

// Portfolios fetches the portfolio list.
func (c *Client) Portfolios(ctx context.Context) ([]Portfolio, error) {
	var data struct {
		Portfolios []Portfolio `json:"portfolios"`
	}
	if err := c.do(ctx, "list portfolios", http.MethodGet, "/api/portfolios", nil, nil, &data); err != nil {
		return nil, err
	}
	return data.Portfolios, nil
}

// PortfolioSummary fetches the totals over every portfolio.
func (c *Client) PortfolioSummary(ctx context.Context) (PortfolioSummary, error) {
	var sum PortfolioSummary
	if err := c.do(ctx, "fetch portfolio summary", http.MethodGet, "/api/portfolios/summary", nil, nil, &sum); err != nil {
		return PortfolioSummary{}, err
	}
	return sum, nil
}

// Portfolio fetches the holdings and rules of a portfolio.
func (c *Client) Portfolio(ctx context.Context, portfolioID string) (PortfolioDetail, error) {
	var d PortfolioDetail
	path := portfolioPath("/api/portfolios/%s/long", portfolioID)
	if err := c.do(ctx, "fetch portfolio", http.MethodGet, path, nil, nil, &d); err != nil {
		return PortfolioDetail{}, err
	}
	return d, nil
}

// CreatePortfolio registers a new portfolio.
func (c *Client) CreatePortfolio(ctx context.Context, req CreatePortfolioRequest) (CreatedPortfolio, error) {
	var created CreatedPortfolio
	if err := c.do(ctx, "create portfolio", http.MethodPost, "/api/portfolios", nil, req, &created); err != nil {
		return CreatedPortfolio{}, err
	}
	return created, nil
}
