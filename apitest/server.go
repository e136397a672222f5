// Package apitest runs an in-memory fake of the portfolio API, for tests.
//
// The fake serves the same envelope and routes as the real API. Its content
// is set directly by the test:
//
//	srv := apitest.NewServer()
//	defer srv.Close()
//	srv.SetStatuses("7", backtest.Snapshot{"42": backtest.Running})
//	client, _ := api.NewClient(srv.URL)
package apitest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/etnz/backtest"
	"github.com/etnz/backtest/api"
	"github.com/gin-gonic/gin"
)

// Server is a fake API. All setters are safe for concurrent use with the
// requests being served.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	statuses map[string]backtest.Snapshot
	failures map[string]int // portfolio or backtest id -> HTTP code
	lists    map[string][]api.Summary
	details  map[string]api.Detail
	prices   map[string]api.Price
	market   api.MarketStatus
	delay    time.Duration
	calls    map[string]int // route -> number of calls
	executed []string
	created  []api.CreateRequest
	nextID   int

	portfolios        []api.Portfolio
	summary           api.PortfolioSummary
	portfolioDetails  map[string]api.PortfolioDetail
	createdPortfolios []api.CreatePortfolioRequest
	stocks            []api.StockMatch
	popular           []api.StockMatch
	answers           map[api.ChatCategory]string

	// OnExecute, if set, is called with the backtest id on every execute
	// request, before the response is sent.
	OnExecute func(backtestID string)
}

// NewServer starts a fake API. The caller must Close it.
func NewServer() *Server {
	s := &Server{
		statuses: make(map[string]backtest.Snapshot),
		failures: make(map[string]int),
		lists:    make(map[string][]api.Summary),
		details:  make(map[string]api.Detail),
		prices:   make(map[string]api.Price),
		calls:    make(map[string]int),
		nextID:   100,

		portfolioDetails: make(map[string]api.PortfolioDetail),
		answers:          make(map[api.ChatCategory]string),
	}
	gin.SetMode(gin.TestMode)
	router := gin.New()
	// ids may contain escaped slashes
	router.UseRawPath = true
	router.Use(gin.Recovery(), s.slow)

	g := router.Group("/api")
	g.GET("/backtests/portfolios/:pid/status", s.handleStatuses)
	g.GET("/backtests/portfolios/:pid", s.handleList)
	g.POST("/backtests/portfolio/:pid", s.handleCreate)
	g.GET("/backtests/:bid", s.handleDetail)
	g.POST("/backtests/:bid/execute", s.handleExecute)
	g.GET("/stocks", s.handlePrices)
	g.GET("/stocks/search", s.handleSearch)
	g.GET("/stocks/popular", s.handlePopular)
	g.GET("/portfolios", s.handlePortfolios)
	g.POST("/portfolios", s.handleCreatePortfolio)
	g.GET("/portfolios/summary", s.handleSummary)
	g.GET("/portfolios/:pid/long", s.handlePortfolio)
	g.GET("/chat/:category", s.handleChat)

	s.Server = httptest.NewServer(router)
	return s
}

// SetStatuses sets the status snapshot served for a portfolio.
func (s *Server) SetStatuses(portfolioID string, snap backtest.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(backtest.Snapshot, len(snap))
	for k, v := range snap {
		cp[k] = v
	}
	s.statuses[portfolioID] = cp
}

// SetStatus changes a single backtest status of a portfolio.
func (s *Server) SetStatus(portfolioID, backtestID string, st backtest.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses[portfolioID] == nil {
		s.statuses[portfolioID] = make(backtest.Snapshot)
	}
	s.statuses[portfolioID][backtestID] = st
}

// Fail makes every request about id (a portfolio or a backtest) answer with
// the HTTP code. A zero code restores normal operation.
func (s *Server) Fail(id string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code == 0 {
		delete(s.failures, id)
		return
	}
	s.failures[id] = code
}

// SetList sets the backtest list of a portfolio.
func (s *Server) SetList(portfolioID string, list []api.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[portfolioID] = list
}

// SetDetail sets the result of a backtest.
func (s *Server) SetDetail(backtestID string, d api.Detail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details[backtestID] = d
}

// SetPrice sets the quote of a stock.
func (s *Server) SetPrice(p api.Price) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[p.Code] = p
}

// SetMarket sets the market status returned with quotes.
func (s *Server) SetMarket(m api.MarketStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.market = m
}

// SetDelay delays every response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Calls returns how many times a route was served. Routes are named after
// the handler: "statuses/<pid>", "list/<pid>", "detail/<bid>",
// "execute/<bid>", "create/<pid>", "prices", "search", "popular",
// "portfolios", "summary", "portfolio/<pid>", "create-portfolio" and
// "chat/<category>".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// Executed returns the backtest ids executed so far, in order.
func (s *Server) Executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.executed...)
}

// Created returns the creation requests received so far, in order.
func (s *Server) Created() []api.CreateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.CreateRequest(nil), s.created...)
}

func (s *Server) slow(c *gin.Context) {
	s.mu.Lock()
	d := s.delay
	s.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	c.Next()
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"message":   "OK",
		"timestamp": time.Now().Format("2006-01-02T15:04:05"),
		"data":      data,
	})
}

func failure(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{
		"status":    "error",
		"message":   msg,
		"timestamp": time.Now().Format("2006-01-02T15:04:05"),
		"data":      nil,
	})
}

// enter counts the call and reports the failure configured for id, if any.
func (s *Server) enter(route, id string) (code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		route += "/" + id
	}
	s.calls[route]++
	return s.failures[id]
}

func (s *Server) handleStatuses(c *gin.Context) {
	pid := c.Param("pid")
	if code := s.enter("statuses", pid); code != 0 {
		failure(c, code, "cannot read portfolio "+pid)
		return
	}
	s.mu.Lock()
	snap := make(map[string]string, len(s.statuses[pid]))
	for id, st := range s.statuses[pid] {
		snap[id] = string(st)
	}
	s.mu.Unlock()
	success(c, snap)
}

func (s *Server) handleList(c *gin.Context) {
	pid := c.Param("pid")
	if code := s.enter("list", pid); code != 0 {
		failure(c, code, "cannot read portfolio "+pid)
		return
	}
	s.mu.Lock()
	list := append([]api.Summary{}, s.lists[pid]...)
	s.mu.Unlock()
	success(c, list)
}

func (s *Server) handleDetail(c *gin.Context) {
	bid := c.Param("bid")
	if code := s.enter("detail", bid); code != 0 {
		failure(c, code, "cannot read backtest "+bid)
		return
	}
	s.mu.Lock()
	d, ok := s.details[bid]
	s.mu.Unlock()
	if !ok {
		failure(c, http.StatusNotFound, "backtest "+bid+" not found")
		return
	}
	success(c, d)
}

func (s *Server) handleExecute(c *gin.Context) {
	bid := c.Param("bid")
	if code := s.enter("execute", bid); code != 0 {
		failure(c, code, "cannot execute backtest "+bid)
		return
	}
	s.mu.Lock()
	s.executed = append(s.executed, bid)
	hook := s.OnExecute
	s.mu.Unlock()
	if hook != nil {
		hook(bid)
	}
	success(c, gin.H{"backtestId": bid})
}

func (s *Server) handleCreate(c *gin.Context) {
	pid := c.Param("pid")
	if code := s.enter("create", pid); code != 0 {
		failure(c, code, "cannot create backtest in "+pid)
		return
	}
	var req api.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" || req.StartAt == "" || req.EndAt == "" {
		failure(c, http.StatusBadRequest, "title, startAt and endAt are required")
		return
	}
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.created = append(s.created, req)
	s.mu.Unlock()
	success(c, id)
}

func (s *Server) handlePrices(c *gin.Context) {
	if code := s.enter("prices", ""); code != 0 {
		failure(c, code, "cannot read stocks")
		return
	}
	codes := strings.Split(c.Query("codes"), ",")
	s.mu.Lock()
	data := []api.Price{}
	for _, code := range codes {
		if p, ok := s.prices[code]; ok {
			data = append(data, p)
		}
	}
	market := s.market
	s.mu.Unlock()
	success(c, gin.H{"marketStatus": market, "data": data})
}

// SetPortfolios sets the portfolio list.
func (s *Server) SetPortfolios(list []api.Portfolio) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolios = list
}

// SetSummary sets the totals over every portfolio.
func (s *Server) SetSummary(sum api.PortfolioSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
}

// SetPortfolio sets the detail of a portfolio.
func (s *Server) SetPortfolio(portfolioID string, d api.PortfolioDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolioDetails[portfolioID] = d
}

// SetStocks sets the stocks searched by keyword, and the popular ones.
func (s *Server) SetStocks(all, popular []api.StockMatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stocks = all
	s.popular = popular
}

// SetAnswer sets the answer of the chat endpoint for a category.
func (s *Server) SetAnswer(category api.ChatCategory, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers[category] = answer
}

// CreatedPortfolios returns the portfolio creation requests received so far.
func (s *Server) CreatedPortfolios() []api.CreatePortfolioRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.CreatePortfolioRequest(nil), s.createdPortfolios...)
}

func (s *Server) handleSearch(c *gin.Context) {
	if code := s.enter("search", ""); code != 0 {
		failure(c, code, "cannot search stocks")
		return
	}
	keyword := strings.ToLower(c.Query("keyword"))
	s.mu.Lock()
	results := []api.StockMatch{}
	for _, m := range s.stocks {
		if strings.Contains(strings.ToLower(m.Symbol), keyword) || strings.Contains(strings.ToLower(m.Name), keyword) {
			results = append(results, m)
		}
	}
	s.mu.Unlock()
	success(c, gin.H{"results": results, "total": len(results)})
}

func (s *Server) handlePopular(c *gin.Context) {
	if code := s.enter("popular", ""); code != 0 {
		failure(c, code, "cannot read popular stocks")
		return
	}
	s.mu.Lock()
	results := append([]api.StockMatch{}, s.popular...)
	s.mu.Unlock()
	success(c, gin.H{"results": results, "total": len(results)})
}

func (s *Server) handlePortfolios(c *gin.Context) {
	if code := s.enter("portfolios", ""); code != 0 {
		failure(c, code, "cannot list portfolios")
		return
	}
	s.mu.Lock()
	list := append([]api.Portfolio{}, s.portfolios...)
	s.mu.Unlock()
	success(c, gin.H{"portfolios": list})
}

func (s *Server) handleSummary(c *gin.Context) {
	if code := s.enter("summary", ""); code != 0 {
		failure(c, code, "cannot read summary")
		return
	}
	s.mu.Lock()
	sum := s.summary
	s.mu.Unlock()
	success(c, sum)
}

func (s *Server) handlePortfolio(c *gin.Context) {
	pid := c.Param("pid")
	if code := s.enter("portfolio", pid); code != 0 {
		failure(c, code, "cannot read portfolio "+pid)
		return
	}
	s.mu.Lock()
	d, ok := s.portfolioDetails[pid]
	s.mu.Unlock()
	if !ok {
		failure(c, http.StatusNotFound, "portfolio "+pid+" not found")
		return
	}
	success(c, d)
}

func (s *Server) handleCreatePortfolio(c *gin.Context) {
	if code := s.enter("create-portfolio", ""); code != 0 {
		failure(c, code, "cannot create portfolio")
		return
	}
	var req api.CreatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name == "" || len(req.StockHoldings) == 0 {
		failure(c, http.StatusBadRequest, "name and stockHoldings are required")
		return
	}
	s.mu.Lock()
	s.nextID++
	id := strconv.Itoa(s.nextID)
	s.createdPortfolios = append(s.createdPortfolios, req)
	s.mu.Unlock()
	success(c, api.CreatedPortfolio{
		ID:          api.ID(id),
		Name:        req.Name,
		Description: req.Description,
		TotalValue:  req.TotalValue,
	})
}

// handleChat answers a bare {"answer": ...} object, without envelope.
func (s *Server) handleChat(c *gin.Context) {
	category := api.ChatCategory(c.Param("category"))
	if code := s.enter("chat", string(category)); code != 0 {
		c.JSON(code, gin.H{"error": "chat unavailable"})
		return
	}
	s.mu.Lock()
	answer, ok := s.answers[category]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown category"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer + "\n\n> " + c.Query("question")})
}
