// Package server exposes the configured exchanges and the order journal
// over HTTP.
package server

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/xchange/internal/risk"
	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/journal"
	"github.com/betbot/xchange/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

type Config struct {
	// Exchanges are keyed by lower-case name.
	Exchanges map[string]exchange.Exchange
	Journal   *journal.Journal
	// MaxOrderErrors halts order placement on an exchange after this many
	// consecutive transport or authentication failures. 0 disables.
	MaxOrderErrors int
}

type Server struct {
	exchanges map[string]exchange.Exchange
	breakers  map[string]*risk.CircuitBreaker
	names     []string
	journal   *journal.Journal
}

func New(cfg Config) (*Server, error) {
	if cfg.Journal == nil {
		return nil, errors.New("journal is required")
	}
	s := &Server{
		exchanges: map[string]exchange.Exchange{},
		breakers:  map[string]*risk.CircuitBreaker{},
		journal:   cfg.Journal,
	}
	for name, ex := range cfg.Exchanges {
		if ex == nil {
			continue
		}
		key := strings.ToLower(name)
		s.exchanges[key] = ex
		s.breakers[key] = risk.NewCircuitBreaker(risk.CircuitBreakerConfig{MaxConsecutiveErrors: int64(cfg.MaxOrderErrors)})
		s.names = append(s.names, key)
	}
	sort.Strings(s.names)
	return s, nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	api := r.Group("/api")
	api.GET("/exchanges", s.handleExchanges)
	api.GET("/tickers", s.handleTickers)

	ex := api.Group("/exchanges/:name", s.resolveExchange)
	ex.GET("/ticker", s.handleTicker)
	ex.GET("/orderbook", s.handleOrderBook)
	ex.GET("/trades", s.handleTrades)
	ex.GET("/account", s.handleAccount)
	ex.GET("/open_orders", s.handleOpenOrders)
	ex.POST("/orders", s.handlePlaceOrder)
	ex.DELETE("/orders/:orderID", s.handleCancelOrder)
	ex.GET("/trade_history", s.handleTradeHistory)
	ex.GET("/breaker", s.handleBreaker)
	ex.POST("/breaker/halt", s.handleBreakerHalt)
	ex.POST("/breaker/resume", s.handleBreakerResume)

	j := api.Group("/journal")
	j.GET("/trades", s.handleJournalTrades)
	j.GET("/orders", s.handleJournalOrders)

	return r
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(start).String(),
		}).Debugf("http request")
	}
}

const (
	exchangeKey = "exchange"
	breakerKey  = "breaker"
)

// resolveExchange aborts with 404 unless :name is a configured exchange.
func (s *Server) resolveExchange(c *gin.Context) {
	name := strings.ToLower(c.Param("name"))
	ex, ok := s.exchanges[name]
	if !ok {
		writeError(c, http.StatusNotFound, "unknown exchange "+c.Param("name"))
		c.Abort()
		return
	}
	c.Set(exchangeKey, ex)
	c.Set(breakerKey, s.breakers[name])
	c.Next()
}

func exchangeFrom(c *gin.Context) exchange.Exchange {
	return c.MustGet(exchangeKey).(exchange.Exchange)
}

func breakerFrom(c *gin.Context) *risk.CircuitBreaker {
	return c.MustGet(breakerKey).(*risk.CircuitBreaker)
}

func writeError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg, "request_id": c.GetString("request_id")})
}

// statusFor maps exchange error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch exchange.KindOf(err) {
	case exchange.KindAuthentication:
		return http.StatusUnauthorized
	case exchange.KindUnsupported:
		return http.StatusNotImplemented
	case exchange.KindRejected:
		return http.StatusUnprocessableEntity
	case exchange.KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeExchangeError(c *gin.Context, err error) {
	status := statusFor(err)
	logger.WithFields(logrus.Fields{"request_id": c.GetString("request_id"), "status": status}).
		Warnf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	writeError(c, status, err.Error())
}
