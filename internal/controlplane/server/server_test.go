package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/journal"
	"github.com/betbot/xchange/pkg/nonce"
)

// stubExchange answers every service call from canned values.
type stubExchange struct {
	name string
	err  error

	placed    []exchange.LimitOrder
	cancelled []string
	params    exchange.TradeHistoryParams
}

func (s *stubExchange) Name() string                                 { return s.name }
func (s *stubExchange) DefaultSpecification() exchange.Specification { return exchange.Specification{Name: s.name} }
func (s *stubExchange) Specification() exchange.Specification        { return exchange.Specification{Name: s.name} }
func (s *stubExchange) ApplySpecification(exchange.Specification) error {
	return nil
}
func (s *stubExchange) TradeService() exchange.TradeService           { return s }
func (s *stubExchange) AccountService() exchange.AccountService       { return s }
func (s *stubExchange) MarketDataService() exchange.MarketDataService { return s }
func (s *stubExchange) NonceFactory() nonce.Source                    { return nonce.New() }

func (s *stubExchange) GetTicker(_ context.Context, pair exchange.CurrencyPair) (*exchange.Ticker, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &exchange.Ticker{Pair: pair, Last: decimal.RequireFromString("600.5")}, nil
}

func (s *stubExchange) GetOrderBook(context.Context, exchange.CurrencyPair) (*exchange.OrderBook, error) {
	return exchange.NewOrderBook(time.Time{}, nil, nil), s.err
}

func (s *stubExchange) GetTrades(context.Context, exchange.CurrencyPair) (*exchange.Trades, error) {
	return &exchange.Trades{}, s.err
}

func (s *stubExchange) GetAccountInfo(context.Context) (*exchange.AccountInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &exchange.AccountInfo{Username: "trader", Wallets: []exchange.Wallet{{Currency: "BTC", Available: decimal.NewFromInt(2)}}}, nil
}

func (s *stubExchange) RequestDepositAddress(context.Context, string) (string, error) {
	return "", exchange.NewUnsupportedError(s.name, "RequestDepositAddress")
}

func (s *stubExchange) Withdraw(context.Context, string, decimal.Decimal, string) (string, error) {
	return "", exchange.NewUnsupportedError(s.name, "Withdraw")
}

func (s *stubExchange) GetOpenOrders(context.Context) (*exchange.OpenOrders, error) {
	return &exchange.OpenOrders{}, s.err
}

func (s *stubExchange) PlaceMarketOrder(context.Context, exchange.MarketOrder) (string, error) {
	return "", exchange.NewUnsupportedError(s.name, "PlaceMarketOrder")
}

func (s *stubExchange) PlaceLimitOrder(_ context.Context, o exchange.LimitOrder) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.placed = append(s.placed, o)
	return "777", nil
}

func (s *stubExchange) CancelOrder(_ context.Context, id string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	s.cancelled = append(s.cancelled, id)
	return true, nil
}

func (s *stubExchange) GetTradeHistory(_ context.Context, params exchange.TradeHistoryParams) (*exchange.UserTrades, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.params = params
	return &exchange.UserTrades{
		Trades: []exchange.UserTrade{{ID: "42", Type: exchange.Bid, Pair: exchange.BTCUSD,
			TradableAmount: decimal.NewFromInt(1), Price: decimal.NewFromInt(600)}},
		LastID: 42,
	}, nil
}

func (s *stubExchange) CreateTradeHistoryParams() exchange.TradeHistoryParams {
	return &exchange.AllParams{}
}

type fixture struct {
	srv     *httptest.Server
	journal *journal.Journal
	good    *stubExchange
	bad     *stubExchange
}

func newFixture(t *testing.T, badErr error) *fixture {
	return newFixtureWith(t, badErr, 0)
}

func newFixtureWith(t *testing.T, badErr error, maxOrderErrors int) *fixture {
	t.Helper()
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	good := &stubExchange{name: "Good"}
	bad := &stubExchange{name: "Bad", err: badErr}
	s, err := New(Config{
		Exchanges:      map[string]exchange.Exchange{"Good": good, "bad": bad},
		Journal:        j,
		MaxOrderErrors: maxOrderErrors,
	})
	require.NoError(t, err)
	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, journal: j, good: good, bad: bad}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestNewRequiresJournal(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthAndRequestID(t *testing.T) {
	f := newFixture(t, nil)

	resp, _ := f.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(requestIDHeader))

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	r, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	r.Body.Close()
	assert.Equal(t, "abc-123", r.Header.Get(requestIDHeader))
}

func TestExchangesAndTicker(t *testing.T) {
	f := newFixture(t, nil)

	_, body := f.do(t, http.MethodGet, "/api/exchanges", "")
	assert.Equal(t, []any{"bad", "good"}, body["configured"])

	resp, body := f.do(t, http.MethodGet, "/api/exchanges/GOOD/ticker?pair=BTC/USD", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "600.5", body["last"])

	resp, body = f.do(t, http.MethodGet, "/api/exchanges/nope/ticker?pair=BTC/USD", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["request_id"])

	resp, _ = f.do(t, http.MethodGet, "/api/exchanges/good/ticker?pair=BTCUSD", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTickersFanOut(t *testing.T) {
	f := newFixture(t, exchange.NewTransportError("Bad", "GetTicker", assert.AnError))

	resp, body := f.do(t, http.MethodGet, "/api/tickers?pair=BTC/USD", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tickers := body["tickers"].(map[string]any)
	require.Len(t, tickers, 2)
	assert.Contains(t, tickers["good"].(map[string]any), "ticker")
	assert.Contains(t, tickers["bad"].(map[string]any), "error")
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", exchange.NewAuthenticationError("Bad", "GetAccountInfo", "invalid key"), http.StatusUnauthorized},
		{"unsupported", exchange.NewUnsupportedError("Bad", "GetAccountInfo"), http.StatusNotImplemented},
		{"rejected", exchange.NewRejectedError("Bad", "GetAccountInfo", "no"), http.StatusUnprocessableEntity},
		{"transport", exchange.NewTransportError("Bad", "GetAccountInfo", assert.AnError), http.StatusBadGateway},
		{"other", assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.err)
			resp, body := f.do(t, http.MethodGet, "/api/exchanges/bad/account", "")
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestPlaceOrderIsJournalled(t *testing.T) {
	f := newFixture(t, exchange.NewRejectedError("Bad", "PlaceLimitOrder", "insufficient funds"))
	ctx := context.Background()

	resp, body := f.do(t, http.MethodPost, "/api/exchanges/good/orders",
		`{"side":"buy","pair":"BTC/USD","amount":"1.5","price":"600.25"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "777", body["order_id"])
	assert.NotEmpty(t, body["ref"])
	require.Len(t, f.good.placed, 1)
	assert.Equal(t, exchange.Bid, f.good.placed[0].Type)
	assert.Equal(t, "600.25", f.good.placed[0].LimitPrice.String())

	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/bad/orders",
		`{"side":"sell","pair":"BTC/USD","amount":"1","price":"600"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/good/orders", `{"side":"sell","pair":"BTC/USD","amount":"1"}`)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/good/orders", `{"side":"hold","pair":"BTC/USD","amount":"1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/good/orders", `{"side":"buy","pair":"BTC/USD","amount":"0","price":"1"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	orders, err := f.journal.ListOrders(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	byExchange := map[string][]journal.OrderRecord{}
	for _, o := range orders {
		byExchange[o.Exchange] = append(byExchange[o.Exchange], o)
	}
	require.Len(t, byExchange["bad"], 1)
	assert.Equal(t, journal.StatusFailed, byExchange["bad"][0].Status)
	assert.Contains(t, byExchange["bad"][0].Error, "insufficient funds")
	assert.Len(t, byExchange["good"], 2)

	resp, body = f.do(t, http.MethodDelete, "/api/exchanges/good/orders/777", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["cancelled"])
	assert.Equal(t, []string{"777"}, f.good.cancelled)

	_, body = f.do(t, http.MethodGet, "/api/journal/orders?exchange=good", "")
	listed := body["orders"].([]any)
	statuses := map[string]bool{}
	for _, o := range listed {
		statuses[o.(map[string]any)["status"].(string)] = true
	}
	assert.True(t, statuses[journal.StatusCancelled])
}

func TestTradeHistoryJournalsFills(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet,
		"/api/exchanges/good/trade_history?start=2014-01-01T00:00:00Z&end=2014-02-01T00:00:00Z&pair=BTC/USD", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["journaled"])
	assert.Equal(t, float64(42), body["last_id"])

	params, ok := f.good.params.(*exchange.AllParams)
	require.True(t, ok)
	assert.Equal(t, time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), params.Start.UTC())
	assert.Equal(t, exchange.BTCUSD, params.Pair)

	_, body = f.do(t, http.MethodGet, "/api/exchanges/good/trade_history", "")
	assert.Equal(t, float64(0), body["journaled"])

	_, body = f.do(t, http.MethodGet, "/api/journal/trades", "")
	assert.Len(t, body["trades"].([]any), 1)

	resp, _ = f.do(t, http.MethodGet, "/api/exchanges/good/trade_history?start=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderBreaker(t *testing.T) {
	f := newFixtureWith(t, exchange.NewTransportError("Bad", "PlaceLimitOrder", assert.AnError), 2)
	order := `{"side":"buy","pair":"BTC/USD","amount":"1","price":"600"}`

	for i := 0; i < 2; i++ {
		resp, _ := f.do(t, http.MethodPost, "/api/exchanges/bad/orders", order)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	}
	resp, _ := f.do(t, http.MethodPost, "/api/exchanges/bad/orders", order)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, body := f.do(t, http.MethodGet, "/api/exchanges/bad/breaker", "")
	assert.Equal(t, true, body["halted"])

	// Other exchanges keep trading.
	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/good/orders", order)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = f.do(t, http.MethodPost, "/api/exchanges/bad/breaker/resume", "")
	assert.Equal(t, false, body["halted"])
	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/bad/orders", order)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	f.do(t, http.MethodPost, "/api/exchanges/good/breaker/halt", "")
	resp, _ = f.do(t, http.MethodPost, "/api/exchanges/good/orders", order)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestJournalSurvivesClientHangup(t *testing.T) {
	f := newFixture(t, nil)
	gone, cancel := context.WithCancel(context.Background())
	cancel()

	serve := func(method, path, body string) int {
		req := httptest.NewRequest(method, path, strings.NewReader(body)).WithContext(gone)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		f.srv.Config.Handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, serve(http.MethodPost, "/api/exchanges/good/orders",
		`{"side":"buy","pair":"BTC/USD","amount":"1","price":"600"}`))
	orders, err := f.journal.ListOrders(context.Background(), "good", 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "777", orders[0].OrderID)
	assert.Equal(t, journal.StatusPlaced, orders[0].Status)

	require.Equal(t, http.StatusOK, serve(http.MethodDelete, "/api/exchanges/good/orders/777", ""))
	orders, err = f.journal.ListOrders(context.Background(), "good", 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, journal.StatusCancelled, orders[0].Status)
}
