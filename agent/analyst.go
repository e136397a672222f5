package agent

import (
	"context"
	"strings"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/etnz/backtest/docs"
	"github.com/etnz/backtest/renderer"
	"google.golang.org/genai"
)

const model = "gemini-2.5-pro"

// Backend is the read only part of the API used by the analyst.
// *api.Client implements it.
type Backend interface {
	Statuses(ctx context.Context, portfolioID string) (backtest.Snapshot, error)
	List(ctx context.Context, portfolioID string) ([]api.Summary, error)
	Detail(ctx context.Context, backtestID string) (api.Detail, error)
	Prices(ctx context.Context, codes []string) ([]api.Price, api.MarketStatus, error)
	Portfolios(ctx context.Context) ([]api.Portfolio, error)
	PortfolioSummary(ctx context.Context) (api.PortfolioSummary, error)
	Portfolio(ctx context.Context, portfolioID string) (api.PortfolioDetail, error)
	SearchStocks(ctx context.Context, keyword string) ([]api.StockMatch, error)
	PopularStocks(ctx context.Context) ([]api.StockMatch, error)
	Chat(ctx context.Context, category api.ChatCategory, question string) (string, error)
}

// creates the facilitator
func newFacilitator(experts ...*Expert) *Expert {
	return &Expert{
		Name:      "Facilitator",
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(experts)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			As a facilitator you are in charge of the conversation and solving the user's request.

			Learn about the expert's skill that you can get from the Tools to ask them questions.
			They are at your service and keep context of your previous questions.

			The user runs backtests of investment strategies on portfolios. They want to understand
			why a backtest made a profit or a loss, how it compares to another one or to the market.

			Devise a plan of questions to ask to each expert and come up with the best response to the user's request.
			Answer in markdown.
		`}}},
		},
		Library: NewLibrary(experts),
	}
}

// NewResearcher returns an expert grounded on Google Search, for market news.
func NewResearcher() *Expert {
	return &Expert{
		Name: "Researcher",
		Description: `This is a market researcher, aware of the latest news about companies,
		sectors and markets. Ask the Researcher whenever you need recent or grounding information
		to explain the moves of a stock during a backtest period.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are a market researcher. You leverage Google Search to ground your assertions
			and relate the news to the period and the stocks you are asked about.
			`}}},
		},
	}
}

// NewAnalyst returns an expert reading backtests through backend.
func NewAnalyst(backend Backend, currency string) *Expert {
	lib := Functions(backend, currency)
	return &Expert{
		Name: "Analyst",
		Description: `This is the backtest Analyst. It reads the user's portfolios, their holdings
		and rules, the backtests of the portfolios: their status, their metrics (return, volatility,
		sharpe ratio, drawdown, win rate), their daily equity and final holdings, and current stock
		prices. It can also ask the server's own assistant about losses, profits or the benchmark.`,
		ModelName: model,
		Config: &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{FunctionDeclarations: NewDeclaration(lib)},
			},
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: `
			You are an analyst of investment backtests. Use the Tools to read the backtests of
			a portfolio and their results. Figures are computed by the backtest server, report them,
			never recompute them. Percentages are already in percent. When the user does not name a
			portfolio, list the portfolios first.

			` + docs.MustTopic("statuses")}}},
		},
		Library: NewLibrary(lib),
	}
}

var (
	portfolioParam = &genai.Schema{Type: genai.TypeString, Description: "The portfolio id."}
	backtestParam  = &genai.Schema{Type: genai.TypeString, Description: "The backtest id."}
	categoryParam  = &genai.Schema{
		Type:        genai.TypeString,
		Enum:        []string{string(api.ChatLoss), string(api.ChatProfit), string(api.ChatBenchmark)},
		Description: "What the question is about.",
	}
	markdownResult = &genai.Schema{Type: genai.TypeString, Description: "A markdown document."}
)

// Functions returns the functions reading backtests through backend.
func Functions(backend Backend, currency string) []Function {
	return []Function{
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "backtest_statuses",
				Description: "Lists the backtests of a portfolio with their current execution status.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"portfolio": portfolioParam},
					Required:   []string{"portfolio"},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				pid, err := stringArg(args, "portfolio")
				if err != nil {
					return "", err
				}
				snap, err := backend.Statuses(ctx, pid)
				if err != nil {
					return "", err
				}
				jobs := make([]backtest.Job, 0, len(snap))
				for _, id := range snap.IDs() {
					jobs = append(jobs, backtest.Job{PortfolioID: pid, BacktestID: id, Status: snap[id]})
				}
				return renderer.RenderStatus(pid, jobs, nil), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "backtest_list",
				Description: "Lists the backtests of a portfolio with their period and main metrics.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"portfolio": portfolioParam},
					Required:   []string{"portfolio"},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				pid, err := stringArg(args, "portfolio")
				if err != nil {
					return "", err
				}
				list, err := backend.List(ctx, pid)
				if err != nil {
					return "", err
				}
				return renderer.RenderList(pid, list), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "backtest_detail",
				Description: "Returns the full result of a completed backtest: metrics, final holdings and daily equity per stock.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"backtest": backtestParam},
					Required:   []string{"backtest"},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				bid, err := stringArg(args, "backtest")
				if err != nil {
					return "", err
				}
				d, err := backend.Detail(ctx, bid)
				if err != nil {
					return "", err
				}
				return renderer.RenderDetail(d, currency), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "stock_prices",
				Description: "Returns the current price and daily change of stocks.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"codes": {
							Type:        genai.TypeArray,
							Items:       &genai.Schema{Type: genai.TypeString},
							Description: "The stock codes.",
						},
					},
					Required: []string{"codes"},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				codes, err := stringsArg(args, "codes")
				if err != nil {
					return "", err
				}
				prices, market, err := backend.Prices(ctx, codes)
				if err != nil {
					return "", err
				}
				return renderer.RenderPrices(prices, market, currency), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "portfolio_list",
				Description: "Lists the portfolios of the user with their stocks, total assets and daily change.",
				Response:    markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				list, err := backend.Portfolios(ctx)
				if err != nil {
					return "", err
				}
				sum, err := backend.PortfolioSummary(ctx)
				if err != nil {
					return "", err
				}
				return renderer.RenderPortfolios(list, sum, currency), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "portfolio_detail",
				Description: "Returns the holdings of a portfolio with their weight, and its rebalance, stop loss and take profit rules.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: map[string]*genai.Schema{"portfolio": portfolioParam},
					Required:   []string{"portfolio"},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				pid, err := stringArg(args, "portfolio")
				if err != nil {
					return "", err
				}
				d, err := backend.Portfolio(ctx, pid)
				if err != nil {
					return "", err
				}
				return renderer.RenderPortfolio(d, currency), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "stock_search",
				Description: "Finds stocks by code or name. Without keyword, returns the popular stocks.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"keyword": {Type: genai.TypeString, Description: "Part of a stock code or name."},
					},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				keyword, _ := args["keyword"].(string)
				if strings.TrimSpace(keyword) == "" {
					matches, err := backend.PopularStocks(ctx)
					if err != nil {
						return "", err
					}
					return renderer.RenderStockMatches("Popular stocks", matches), nil
				}
				matches, err := backend.SearchStocks(ctx, keyword)
				if err != nil {
					return "", err
				}
				return renderer.RenderStockMatches("Stocks matching "+keyword, matches), nil
			},
		},
		&Func{
			Decl: &genai.FunctionDeclaration{
				Name:        "server_chat",
				Description: "Asks the assistant of the backtest server, which knows the user's positions, about losses, profits or the benchmark.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"category": categoryParam,
						"question": {Type: genai.TypeString, Description: "The question, in plain language."},
					},
					Required: []string{"category", "question"},
				},
				Response: markdownResult,
			},
			Func: func(ctx context.Context, args map[string]any) (string, error) {
				name, err := stringArg(args, "category")
				if err != nil {
					return "", err
				}
				category, err := api.ParseChatCategory(name)
				if err != nil {
					return "", err
				}
				question, err := stringArg(args, "question")
				if err != nil {
					return "", err
				}
				return backend.Chat(ctx, category, question)
			},
		},
	}
}
