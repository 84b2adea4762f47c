package server

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/journal"
	"github.com/betbot/xchange/pkg/logger"
	"github.com/betbot/xchange/pkg/syncgroup"
)

func (s *Server) handleExchanges(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"registered": exchange.Names(),
		"configured": s.names,
	})
}

func pairQuery(c *gin.Context) (exchange.CurrencyPair, bool) {
	pair, err := exchange.ParseCurrencyPair(c.Query("pair"))
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return exchange.CurrencyPair{}, false
	}
	return pair, true
}

func (s *Server) handleTicker(c *gin.Context) {
	pair, ok := pairQuery(c)
	if !ok {
		return
	}
	t, err := exchangeFrom(c).MarketDataService().GetTicker(c.Request.Context(), pair)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleOrderBook(c *gin.Context) {
	pair, ok := pairQuery(c)
	if !ok {
		return
	}
	book, err := exchangeFrom(c).MarketDataService().GetOrderBook(c.Request.Context(), pair)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, book)
}

func (s *Server) handleTrades(c *gin.Context) {
	pair, ok := pairQuery(c)
	if !ok {
		return
	}
	trades, err := exchangeFrom(c).MarketDataService().GetTrades(c.Request.Context(), pair)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

func (s *Server) handleAccount(c *gin.Context) {
	info, err := exchangeFrom(c).AccountService().GetAccountInfo(c.Request.Context())
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleOpenOrders(c *gin.Context) {
	orders, err := exchangeFrom(c).TradeService().GetOpenOrders(c.Request.Context())
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

type placeOrderRequest struct {
	Side   string           `json:"side"`
	Pair   string           `json:"pair"`
	Amount decimal.Decimal  `json:"amount"`
	Price  *decimal.Decimal `json:"price"`
}

// handlePlaceOrder places a limit order, or a market order when no price is
// given. Every attempt is journalled, failed ones included.
func (s *Server) handlePlaceOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json body: "+err.Error())
		return
	}
	side, err := exchange.ParseOrderType(req.Side)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	pair, err := exchange.ParseCurrencyPair(req.Pair)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		writeError(c, http.StatusBadRequest, "amount must be positive")
		return
	}
	if req.Price != nil && !req.Price.IsPositive() {
		writeError(c, http.StatusBadRequest, "price must be positive")
		return
	}

	ex := exchangeFrom(c)
	breaker := breakerFrom(c)
	if err := breaker.AllowTrading(); err != nil {
		writeError(c, http.StatusServiceUnavailable, ex.Name()+": "+err.Error())
		return
	}
	ctx := c.Request.Context()
	rec := journal.OrderRecord{
		Exchange: ex.Name(),
		Side:     side,
		Pair:     pair,
		Amount:   req.Amount,
		Price:    req.Price,
	}

	var orderID string
	if req.Price == nil {
		rec.Kind = journal.KindMarket
		orderID, err = ex.TradeService().PlaceMarketOrder(ctx, exchange.MarketOrder{
			Type: side, TradableAmount: req.Amount, Pair: pair, Timestamp: time.Now(),
		})
	} else {
		rec.Kind = journal.KindLimit
		orderID, err = ex.TradeService().PlaceLimitOrder(ctx, exchange.LimitOrder{
			Type: side, TradableAmount: req.Amount, Pair: pair, LimitPrice: *req.Price, Timestamp: time.Now(),
		})
	}
	rec.OrderID = orderID
	rec.Status = journal.StatusPlaced
	switch {
	case err == nil:
		breaker.OnSuccess()
	case exchange.IsTransport(err) || exchange.IsAuthentication(err):
		breaker.OnError()
		fallthrough
	default:
		rec.Status = journal.StatusFailed
		rec.Error = err.Error()
	}

	// The exchange has already acted; a client hanging up must not lose the record.
	ref, jerr := s.journal.RecordOrder(context.WithoutCancel(ctx), rec)
	if jerr != nil {
		logger.Errorf("journal order on %s: %v", ex.Name(), jerr)
	}
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": orderID, "ref": ref})
}

func (s *Server) handleCancelOrder(c *gin.Context) {
	ex := exchangeFrom(c)
	orderID := c.Param("orderID")
	ok, err := ex.TradeService().CancelOrder(c.Request.Context(), orderID)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	if ok {
		if _, err := s.journal.MarkCancelled(context.WithoutCancel(c.Request.Context()), ex.Name(), orderID); err != nil {
			logger.Errorf("journal cancel on %s: %v", ex.Name(), err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": ok})
}

func timeQuery(c *gin.Context, key string) (time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		writeError(c, http.StatusBadRequest, key+" must be RFC3339")
		return time.Time{}, false
	}
	return t, true
}

// handleTradeHistory fetches fills for the optional start/end window and
// journals the new ones.
func (s *Server) handleTradeHistory(c *gin.Context) {
	start, ok := timeQuery(c, "start")
	if !ok {
		return
	}
	end, ok := timeQuery(c, "end")
	if !ok {
		return
	}

	ex := exchangeFrom(c)
	params := ex.TradeService().CreateTradeHistoryParams()
	switch p := params.(type) {
	case *exchange.AllParams:
		p.Start, p.End = start, end
	case *exchange.TimeSpanParams:
		p.Start, p.End = start, end
	}
	if pairStr := c.Query("pair"); pairStr != "" {
		pair, err := exchange.ParseCurrencyPair(pairStr)
		if err != nil {
			writeError(c, http.StatusBadRequest, err.Error())
			return
		}
		if p, ok := params.(*exchange.AllParams); ok {
			p.Pair = pair
		}
	}

	trades, err := ex.TradeService().GetTradeHistory(c.Request.Context(), params)
	if err != nil {
		writeExchangeError(c, err)
		return
	}
	n, err := s.journal.RecordTrades(c.Request.Context(), ex.Name(), trades.Trades)
	if err != nil {
		logger.Errorf("journal trades on %s: %v", ex.Name(), err)
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades.Trades, "last_id": trades.LastID, "journaled": n})
}

func limitQuery(c *gin.Context) int {
	n, _ := strconv.Atoi(c.Query("limit"))
	return n
}

func (s *Server) handleJournalTrades(c *gin.Context) {
	trades, err := s.journal.ListTrades(c.Request.Context(), c.Query("exchange"), limitQuery(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if trades == nil {
		trades = []journal.TradeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func (s *Server) handleJournalOrders(c *gin.Context) {
	orders, err := s.journal.ListOrders(c.Request.Context(), c.Query("exchange"), limitQuery(c))
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}
	if orders == nil {
		orders = []journal.OrderRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

type tickerResult struct {
	Ticker *exchange.Ticker `json:"ticker,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// handleTickers asks every configured exchange for pair concurrently.
// Exchanges that fail report their error alongside the others' tickers.
func (s *Server) handleTickers(c *gin.Context) {
	pair, ok := pairQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var mu sync.Mutex
	out := make(map[string]tickerResult, len(s.names))
	g := syncgroup.NewSyncGroup()
	for _, name := range s.names {
		name, ex := name, s.exchanges[name]
		g.Add(func() {
			t, err := ex.MarketDataService().GetTicker(ctx, pair)
			res := tickerResult{Ticker: t}
			if err != nil {
				res = tickerResult{Error: err.Error()}
			}
			mu.Lock()
			out[name] = res
			mu.Unlock()
		})
	}
	g.RunAndWait()
	c.JSON(http.StatusOK, gin.H{"pair": pair.String(), "tickers": out})
}

func (s *Server) handleBreaker(c *gin.Context) {
	c.JSON(http.StatusOK, breakerFrom(c).State())
}

func (s *Server) handleBreakerHalt(c *gin.Context) {
	b := breakerFrom(c)
	b.Halt()
	logger.Warnf("order placement on %s halted by request %s", exchangeFrom(c).Name(), c.GetString("request_id"))
	c.JSON(http.StatusOK, b.State())
}

func (s *Server) handleBreakerResume(c *gin.Context) {
	b := breakerFrom(c)
	b.Resume()
	logger.Infof("order placement on %s resumed", exchangeFrom(c).Name())
	c.JSON(http.StatusOK, b.State())
}
