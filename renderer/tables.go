package renderer

import (
	"maps"
	"slices"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// markdownTable renders a markdown table. Columns listed in right are right
// aligned, numbered from 1.
func markdownTable(header table.Row, rows []table.Row, right ...int) string {
	t := table.NewWriter()
	t.AppendHeader(header)
	t.AppendRows(rows)
	var configs []table.ColumnConfig
	for _, n := range right {
		configs = append(configs, table.ColumnConfig{Number: n, Align: text.AlignRight, AlignHeader: text.AlignRight})
	}
	t.SetColumnConfigs(configs)
	return t.RenderMarkdown()
}

func statusLabel(j backtest.Job) string {
	if j.Speculative {
		return j.Status.Display() + " (unconfirmed)"
	}
	return j.Status.Display()
}

func jobsTable(jobs []backtest.Job) string {
	rows := make([]table.Row, 0, len(jobs))
	for _, j := range jobs {
		updated := ""
		if !j.LastUpdated.IsZero() {
			updated = j.LastUpdated.Local().Format("15:04:05")
		}
		rows = append(rows, table.Row{j.BacktestID, statusLabel(j), updated})
	}
	return markdownTable(table.Row{"Backtest", "Status", "Updated"}, rows)
}

func summariesTable(list []api.Summary) string {
	rows := make([]table.Row, 0, len(list))
	for _, s := range list {
		ret, sharpe := "", ""
		if s.Metrics != nil {
			ret = Percent(s.Metrics.TotalReturn).SignedString()
			sharpe = ratio(s.Metrics.SharpeRatio)
		}
		rows = append(rows, table.Row{s.ID, s.Name, s.Period, s.Status.Display(), ret, sharpe})
	}
	return markdownTable(table.Row{"Id", "Name", "Period", "Status", "Return", "Sharpe"}, rows, 5, 6)
}

func metricsTable(m api.Metrics) string {
	rows := []table.Row{
		{"Total Return", Percent(m.TotalReturn).SignedString()},
		{"Annualized Return", Percent(m.AnnualizedReturn).SignedString()},
		{"Volatility", Percent(m.Volatility).String()},
		{"Sharpe Ratio", ratio(m.SharpeRatio)},
		{"Max Drawdown", Percent(m.MaxDrawdown).String()},
		{"Win Rate", Percent(m.WinRate).String()},
		{"Profit/Loss Ratio", ratio(m.ProfitLossRatio)},
	}
	return markdownTable(table.Row{"Metric", "Value"}, rows, 2)
}

func holdingsTable(holdings []api.Holding) string {
	rows := make([]table.Row, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, table.Row{h.StockName, h.Quantity.String()})
	}
	return markdownTable(table.Row{"Stock", "Quantity"}, rows, 2)
}

func equityTable(equity []api.Equity, currency string) string {
	names := make(map[string]bool)
	for _, e := range equity {
		for name := range e.Stocks {
			names[name] = true
		}
	}
	stocks := slices.Sorted(maps.Keys(names))

	header := table.Row{"Date"}
	right := make([]int, 0, len(stocks))
	for i, name := range stocks {
		header = append(header, name)
		right = append(right, i+2)
	}
	rows := make([]table.Row, 0, len(equity))
	for _, e := range equity {
		row := table.Row{e.Date}
		for _, name := range stocks {
			v, ok := e.Stocks[name]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, NewMoney(v, currency).String())
		}
		rows = append(rows, row)
	}
	return markdownTable(header, rows, right...)
}

func pricesTable(prices []api.Price, currency string) string {
	rows := make([]table.Row, 0, len(prices))
	for _, p := range prices {
		rows = append(rows, table.Row{
			p.Code,
			p.Name,
			NewMoney(p.Price, currency).String(),
			NewMoney(signed(p.Change, p.Sign), currency).SignedString(),
			Percent(signed(p.ChangePercent, p.Sign)).SignedString(),
		})
	}
	return markdownTable(table.Row{"Code", "Name", "Price", "Change", "Change %"}, rows, 3, 4, 5)
}

func portfoliosTable(list []api.Portfolio, currency string) string {
	rows := make([]table.Row, 0, len(list))
	for _, p := range list {
		tickers := make([]string, 0, len(p.HoldingStocks))
		for _, h := range p.HoldingStocks {
			tickers = append(tickers, h.Ticker)
		}
		rows = append(rows, table.Row{
			p.ID,
			p.Name,
			strings.Join(tickers, ", "),
			NewMoney(p.TotalAssets, currency).String(),
			NewMoney(p.DailyChange, currency).SignedString(),
			Percent(p.DailyRate).SignedString(),
		})
	}
	return markdownTable(table.Row{"Id", "Name", "Stocks", "Assets", "Change", "Change %"}, rows, 4, 5, 6)
}

func positionsTable(holdings []api.PortfolioHolding, currency string) string {
	rows := make([]table.Row, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, table.Row{
			h.Name,
			Percent(h.Weight).String(),
			NewMoney(h.Value, currency).String(),
			Percent(h.DailyRate).SignedString(),
		})
	}
	return markdownTable(table.Row{"Stock", "Weight", "Value", "Change %"}, rows, 2, 3, 4)
}

func rulesTable(r api.PortfolioRules) string {
	var rows []table.Row
	for _, group := range []struct {
		kind  string
		rules []api.Rule
	}{{"Rebalance", r.Rebalance}, {"Stop Loss", r.StopLoss}, {"Take Profit", r.TakeProfit}} {
		for _, rule := range group.rules {
			rows = append(rows, table.Row{group.kind, rule.Category, rule.Threshold, rule.Description})
		}
	}
	if len(rows) == 0 {
		return "No rule."
	}
	return markdownTable(table.Row{"Kind", "Category", "Threshold", "Description"}, rows)
}

func matchesTable(matches []api.StockMatch) string {
	rows := make([]table.Row, 0, len(matches))
	for _, m := range matches {
		rows = append(rows, table.Row{m.Symbol, m.Name, m.Sector})
	}
	return markdownTable(table.Row{"Code", "Name", "Sector"}, rows)
}

// signed applies the sign sent separately by the API to an absolute value.
func signed(v decimal.Decimal, sign string) decimal.Decimal {
	if sign == "MINUS" && v.IsPositive() {
		return v.Neg()
	}
	return v
}
