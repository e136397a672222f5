// Package renderer renders backtest data as markdown documents.
//
// Documents are laid out by the templates in templates/, tables are built by
// functions exported to the templates.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/tracker"
	"github.com/shopspring/decimal"
)

//go:embed templates/*.md
var templates embed.FS

var funcs = template.FuncMap{
	"jobsTable":       jobsTable,
	"summariesTable":  summariesTable,
	"metricsTable":    metricsTable,
	"holdingsTable":   holdingsTable,
	"equityTable":     equityTable,
	"pricesTable":     pricesTable,
	"portfoliosTable": portfoliosTable,
	"positionsTable":  positionsTable,
	"rulesTable":      rulesTable,
	"matchesTable":    matchesTable,
	"money":           func(v decimal.Decimal, currency string) string { return NewMoney(v, currency).String() },
	"signedMoney":     func(v decimal.Decimal, currency string) string { return NewMoney(v, currency).SignedString() },
	"signedPercent":   func(v decimal.Decimal) string { return Percent(v).SignedString() },
	"join":            strings.Join,
	"clock":           func(t time.Time) string { return t.Local().Format("15:04:05") },
}

// RenderStatus renders the known jobs of a portfolio. err is the last refresh
// error, if any.
func RenderStatus(portfolioID string, jobs []backtest.Job, err error) string {
	var running []string
	for _, j := range jobs {
		if j.Status == backtest.Running {
			running = append(running, j.BacktestID)
		}
	}
	return renderTemplate("status.md", struct {
		PortfolioID string
		Jobs        []backtest.Job
		Running     []string
		Err         error
	}{portfolioID, jobs, running, err})
}

// RenderList renders the backtest list of a portfolio.
func RenderList(portfolioID string, list []api.Summary) string {
	return renderTemplate("list.md", struct {
		PortfolioID string
		List        []api.Summary
	}{portfolioID, list})
}

// RenderDetail renders the result of a backtest. Values are in currency.
func RenderDetail(d api.Detail, currency string) string {
	return renderTemplate("detail.md", struct {
		Detail   api.Detail
		Currency string
	}{d, currency})
}

// RenderPrices renders stock quotes.
func RenderPrices(prices []api.Price, market api.MarketStatus, currency string) string {
	return renderTemplate("prices.md", struct {
		Prices   []api.Price
		Market   api.MarketStatus
		Currency string
	}{prices, market, currency})
}

// RenderPortfolios renders the portfolio list with the totals over every
// portfolio. Values are in currency.
func RenderPortfolios(list []api.Portfolio, summary api.PortfolioSummary, currency string) string {
	return renderTemplate("portfolios.md", struct {
		List     []api.Portfolio
		Summary  api.PortfolioSummary
		Currency string
	}{list, summary, currency})
}

// RenderPortfolio renders the holdings and rules of a portfolio.
func RenderPortfolio(d api.PortfolioDetail, currency string) string {
	return renderTemplate("portfolio.md", struct {
		Detail   api.PortfolioDetail
		Currency string
	}{d, currency})
}

// RenderStockMatches renders the result of a stock search.
func RenderStockMatches(title string, matches []api.StockMatch) string {
	return renderTemplate("search.md", struct {
		Title   string
		Matches []api.StockMatch
	}{title, matches})
}

// RenderNotifications renders notifications as a bullet list.
func RenderNotifications(notes []tracker.Notification) string {
	return renderTemplate("notification.md", notes)
}

func renderTemplate(file string, data any) string {
	content, err := fs.ReadFile(templates, "templates/"+file)
	if err != nil {
		return fmt.Sprintf("error reading template %q: %v", file, err)
	}
	tmpl, err := template.New(file).Funcs(funcs).Parse(string(content))
	if err != nil {
		return fmt.Sprintf("error parsing template %q: %v", file, err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", file, err)
	}
	return b.String()
}
