package agent

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/apitest"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

func newBackend(t *testing.T) (*api.Client, *apitest.Server) {
	t.Helper()
	srv := apitest.NewServer()
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient() unexpected error = %v", err)
	}
	return c, srv
}

func call(lib Library, name string, args map[string]any) *genai.FunctionResponse {
	return lib(context.Background(), &genai.FunctionCall{ID: "1", Name: name, Args: args})
}

func TestFunctions(t *testing.T) {
	client, srv := newBackend(t)
	srv.SetStatuses("7", backtest.Snapshot{"42": backtest.Running})
	srv.SetList("7", []api.Summary{{ID: "42", Name: "Q1 momentum", Status: backtest.Running}})
	srv.SetDetail("42", api.Detail{HistoryID: "42", Name: "Q1 momentum", Metrics: api.Metrics{TotalReturn: decimal.NewFromInt(3)}})
	srv.SetPrice(api.Price{Code: "AAPL", Name: "Apple", Price: decimal.NewFromInt(230)})
	srv.SetPortfolios([]api.Portfolio{{ID: "7", Name: "Growth", TotalAssets: decimal.NewFromInt(12000)}})
	srv.SetSummary(api.PortfolioSummary{TotalAssets: decimal.NewFromInt(12000)})
	srv.SetPortfolio("7", api.PortfolioDetail{PortfolioID: "7", Holdings: []api.PortfolioHolding{{Name: "Apple", Weight: decimal.NewFromInt(60)}}})
	srv.SetStocks([]api.StockMatch{{Symbol: "AAPL", Name: "Apple"}, {Symbol: "MSFT", Name: "Microsoft"}}, []api.StockMatch{{Symbol: "NVDA", Name: "Nvidia"}})
	srv.SetAnswer(api.ChatLoss, "Apple fell.")

	lib := NewLibrary(Functions(client, "USD"))
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "backtest_statuses", args: map[string]any{"portfolio": "7"}, want: "running"},
		{name: "backtest_statuses", args: map[string]any{"portfolio": float64(7)}, want: "running"},
		{name: "backtest_list", args: map[string]any{"portfolio": "7"}, want: "Q1 momentum"},
		{name: "backtest_detail", args: map[string]any{"backtest": "42"}, want: "+3.00%"},
		{name: "stock_prices", args: map[string]any{"codes": []any{"AAPL"}}, want: "$230.00"},
		{name: "portfolio_list", args: nil, want: "Total assets $12,000.00"},
		{name: "portfolio_detail", args: map[string]any{"portfolio": "7"}, want: "60.00%"},
		{name: "stock_search", args: map[string]any{"keyword": "micro"}, want: "MSFT"},
		{name: "stock_search", args: map[string]any{}, want: "NVDA"},
		{name: "server_chat", args: map[string]any{"category": "Loss", "question": "why?"}, want: "Apple fell."},
	}
	for _, tt := range tests {
		resp := call(lib, tt.name, tt.args)
		if resp.Name != tt.name || resp.ID != "1" {
			t.Errorf("%s: response header = %q %q", tt.name, resp.ID, resp.Name)
		}
		out, ok := resp.Response["output"].(string)
		if !ok {
			t.Errorf("%s(%v) = %v, want an output", tt.name, tt.args, resp.Response)
			continue
		}
		if !strings.Contains(out, tt.want) {
			t.Errorf("%s(%v) output does not contain %q:\n%s", tt.name, tt.args, tt.want, out)
		}
	}
}

func TestFunctions_Errors(t *testing.T) {
	client, srv := newBackend(t)
	srv.Fail("7", http.StatusInternalServerError)
	lib := NewLibrary(Functions(client, "USD"))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{name: "backtest_list", args: map[string]any{}, want: `missing argument "portfolio"`},
		{name: "backtest_list", args: map[string]any{"portfolio": true}, want: "not a string"},
		{name: "backtest_list", args: map[string]any{"portfolio": "7"}, want: "cannot list backtests"},
		{name: "stock_prices", args: map[string]any{"codes": "AAPL"}, want: "not a list"},
		{name: "server_chat", args: map[string]any{"category": "weather", "question": "why?"}, want: "unknown chat category"},
		{name: "server_chat", args: map[string]any{"category": "loss"}, want: `missing argument "question"`},
		{name: "unknown", args: nil, want: "unknown function unknown"},
	}
	for _, tt := range tests {
		resp := call(lib, tt.name, tt.args)
		msg, ok := resp.Response["error"].(string)
		if !ok {
			t.Errorf("%s(%v) = %v, want an error", tt.name, tt.args, resp.Response)
			continue
		}
		if !strings.Contains(msg, tt.want) {
			t.Errorf("%s(%v) error = %q, want it to contain %q", tt.name, tt.args, msg, tt.want)
		}
	}
}

func TestNewAnalyst(t *testing.T) {
	client, _ := newBackend(t)
	a := NewAnalyst(client, "USD")
	decls := a.Config.Tools[0].FunctionDeclarations
	var names []string
	for _, d := range decls {
		names = append(names, d.Name)
	}
	want := "backtest_statuses,backtest_list,backtest_detail,stock_prices,portfolio_list,portfolio_detail,stock_search,server_chat"
	if got := strings.Join(names, ","); got != want {
		t.Errorf("declared functions = %q, want %q", got, want)
	}

	f := newFacilitator(a, NewResearcher())
	if n := len(f.Config.Tools[0].FunctionDeclarations); n != 2 {
		t.Errorf("facilitator knows %d experts, want 2", n)
	}
	if d := a.Declaration(); d.Name != "Analyst" || d.Parameters.Required[0] != "question" {
		t.Errorf("Declaration() = %+v", d)
	}
}
