package api_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestClient_EscapedIDs(t *testing.T) {
	for _, pid := range []string{"my portfolio", "a/b", "50%", "é"} {
		t.Run(pid, func(t *testing.T) {
			c, srv := newClient(t)
			srv.SetStatuses(pid, backtest.Snapshot{"42": backtest.Running})
			srv.SetDetail("x y", api.Detail{Name: "spaced"})

			got, err := c.Statuses(context.Background(), pid)
			if err != nil {
				t.Fatalf("Statuses(%q) unexpected error = %v", pid, err)
			}
			if diff := cmp.Diff(backtest.Snapshot{"42": backtest.Running}, got); diff != "" {
				t.Errorf("Statuses(%q) mismatch (-want +got):\n%s", pid, diff)
			}
			if n := srv.Calls("statuses/" + pid); n != 1 {
				t.Errorf("server saw %d calls for %q, want 1", n, pid)
			}

			d, err := c.Detail(context.Background(), "x y")
			if err != nil || d.Name != "spaced" {
				t.Errorf("Detail(x y) = %+v, %v", d, err)
			}
		})
	}
}

func TestClient_Portfolios(t *testing.T) {
	c, srv := newClient(t)
	list := []api.Portfolio{{
		ID:            "7",
		Name:          "Growth",
		HoldingStocks: []api.HoldingStock{{Ticker: "005930", Name: "Samsung", Weight: decimal.NewFromInt(100), Value: decimal.NewFromInt(700000)}},
		TotalAssets:   decimal.NewFromInt(700000),
		DailyRate:     decimal.RequireFromString("-0.5"),
	}}
	srv.SetPortfolios(list)
	srv.SetSummary(api.PortfolioSummary{TotalAssets: decimal.NewFromInt(700000), DailyTotalReturn: decimal.RequireFromString("1.25")})

	got, err := c.Portfolios(context.Background())
	if err != nil {
		t.Fatalf("Portfolios() unexpected error = %v", err)
	}
	if diff := cmp.Diff(list, got); diff != "" {
		t.Errorf("Portfolios() mismatch (-want +got):\n%s", diff)
	}

	sum, err := c.PortfolioSummary(context.Background())
	if err != nil {
		t.Fatalf("PortfolioSummary() unexpected error = %v", err)
	}
	if !sum.DailyTotalReturn.Equal(decimal.RequireFromString("1.25")) {
		t.Errorf("DailyTotalReturn = %v, want 1.25", sum.DailyTotalReturn)
	}
}

func TestClient_Portfolio(t *testing.T) {
	c, srv := newClient(t)
	want := api.PortfolioDetail{
		PortfolioID: "7",
		Holdings:    []api.PortfolioHolding{{Name: "Samsung", Weight: decimal.NewFromInt(100)}},
		RuleID:      "r1",
		Rules: api.PortfolioRules{
			ID:        "r1",
			Benchmark: api.Benchmark{Code: "KOSPI", Name: "KOSPI"},
			StopLoss:  []api.Rule{{Category: "LOSS_RATE", Threshold: "-10"}},
		},
	}
	srv.SetPortfolio("7", want)

	got, err := c.Portfolio(context.Background(), "7")
	if err != nil {
		t.Fatalf("Portfolio() unexpected error = %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Portfolio() mismatch (-want +got):\n%s", diff)
	}

	var apiErr *api.Error
	if _, err := c.Portfolio(context.Background(), "8"); !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Errorf("Portfolio(8) error = %v, want a 404 *api.Error", err)
	}
}

func TestNewCreatePortfolioRequest(t *testing.T) {
	shares := map[string]decimal.Decimal{"B": decimal.NewFromInt(3), "A": decimal.NewFromInt(1)}
	quotes := map[string]api.Price{
		"A": {Code: "A", Name: "Alpha", Price: decimal.NewFromInt(100)},
		"B": {Code: "B", Name: "Beta", Price: decimal.NewFromInt(100)},
	}
	req := api.NewCreatePortfolioRequest("Mix", "two stocks", shares, quotes)

	if !req.TotalValue.Equal(decimal.NewFromInt(400)) {
		t.Errorf("TotalValue = %v, want 400", req.TotalValue)
	}
	if len(req.StockHoldings) != 2 || req.StockHoldings[0].Symbol != "A" {
		t.Fatalf("StockHoldings = %+v, want A then B", req.StockHoldings)
	}
	for i, want := range []string{"25", "75"} {
		if got := req.StockHoldings[i].Weight; !got.Equal(decimal.RequireFromString(want)) {
			t.Errorf("weight of %s = %v, want %s", req.StockHoldings[i].Symbol, got, want)
		}
	}

	// Unknown prices give a zero total and no weight.
	empty := api.NewCreatePortfolioRequest("Empty", "", map[string]decimal.Decimal{"Z": decimal.NewFromInt(1)}, nil)
	if !empty.TotalValue.IsZero() || !empty.StockHoldings[0].Weight.IsZero() {
		t.Errorf("request without quotes = %+v", empty)
	}
}

func TestClient_CreatePortfolio(t *testing.T) {
	c, srv := newClient(t)
	req := api.NewCreatePortfolioRequest("Mix", "", map[string]decimal.Decimal{"A": decimal.NewFromInt(2)},
		map[string]api.Price{"A": {Name: "Alpha", Price: decimal.NewFromInt(50)}})

	created, err := c.CreatePortfolio(context.Background(), req)
	if err != nil {
		t.Fatalf("CreatePortfolio() unexpected error = %v", err)
	}
	if created.ID != "101" || created.Name != "Mix" {
		t.Errorf("CreatePortfolio() = %+v", created)
	}
	got := srv.CreatedPortfolios()
	if len(got) != 1 || !got[0].TotalValue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("server received %+v", got)
	}

	if _, err := c.CreatePortfolio(context.Background(), api.CreatePortfolioRequest{Name: "nothing"}); err == nil {
		t.Errorf("CreatePortfolio() without holdings succeeded")
	}
}

func TestClient_SearchStocks(t *testing.T) {
	c, srv := newClient(t)
	samsung := api.StockMatch{Symbol: "005930", Name: "Samsung Electronics", Sector: "Tech"}
	hyundai := api.StockMatch{Symbol: "005380", Name: "Hyundai Motor", Sector: "Auto"}
	srv.SetStocks([]api.StockMatch{samsung, hyundai}, []api.StockMatch{hyundai})

	got, err := c.SearchStocks(context.Background(), "samsung")
	if err != nil {
		t.Fatalf("SearchStocks() unexpected error = %v", err)
	}
	if diff := cmp.Diff([]api.StockMatch{samsung}, got); diff != "" {
		t.Errorf("SearchStocks() mismatch (-want +got):\n%s", diff)
	}

	if got, err := c.SearchStocks(context.Background(), "  "); err != nil || got != nil {
		t.Errorf("SearchStocks(blank) = %v, %v; want nil, nil", got, err)
	}
	if n := srv.Calls("search"); n != 1 {
		t.Errorf("blank search reached the server: %d calls", n)
	}

	popular, err := c.PopularStocks(context.Background())
	if err != nil {
		t.Fatalf("PopularStocks() unexpected error = %v", err)
	}
	if diff := cmp.Diff([]api.StockMatch{hyundai}, popular); diff != "" {
		t.Errorf("PopularStocks() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Chat(t *testing.T) {
	c, srv := newClient(t)
	srv.SetAnswer(api.ChatLoss, "The loss comes from the semiconductor drop.")

	got, err := c.Chat(context.Background(), api.ChatLoss, "why did I lose?")
	if err != nil {
		t.Fatalf("Chat() unexpected error = %v", err)
	}
	if !strings.HasPrefix(got, "The loss comes") || !strings.Contains(got, "why did I lose?") {
		t.Errorf("Chat() = %q", got)
	}

	var apiErr *api.Error
	if _, err := c.Chat(context.Background(), api.ChatProfit, "and profits?"); !errors.As(err, &apiErr) || apiErr.StatusCode != 404 {
		t.Errorf("Chat(profit) error = %v, want a 404 *api.Error", err)
	}
}

func TestParseChatCategory(t *testing.T) {
	for in, want := range map[string]api.ChatCategory{"loss": api.ChatLoss, " Profit ": api.ChatProfit, "BENCHMARK": api.ChatBenchmark} {
		if got, err := api.ParseChatCategory(in); err != nil || got != want {
			t.Errorf("ParseChatCategory(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := api.ParseChatCategory("gossip"); err == nil {
		t.Errorf("ParseChatCategory(gossip) succeeded")
	}
}
