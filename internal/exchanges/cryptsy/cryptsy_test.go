package cryptsy

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/nonce"
	"github.com/betbot/xchange/pkg/ratelimit"
	"github.com/betbot/xchange/pkg/signing"
)

const (
	testKey    = "key-123"
	testSecret = "secret-456"

	marketsJSON = `{"success":"1","return":[
		{"marketid":"3","label":"LTC/BTC","primary_currency_code":"LTC","secondary_currency_code":"BTC","current_volume":"120.5"},
		{"marketid":132,"label":"DOGE/BTC","primary_currency_code":"DOGE","secondary_currency_code":"BTC"}]}`
)

type signedRequest struct {
	form url.Values
	body string
	key  string
	sign string
}

type fakeCryptsy struct {
	*httptest.Server

	mu      sync.Mutex
	private []signedRequest
	public  []url.Values
	calls   map[string]int
}

// newFakeCryptsy serves /api (signed) and /api.php (public). The private
// handler receives the 1-based attempt number for the method it serves.
func newFakeCryptsy(t *testing.T, private func(w http.ResponseWriter, form url.Values, attempt int), public func(w http.ResponseWriter, q url.Values)) *fakeCryptsy {
	t.Helper()
	f := &fakeCryptsy{calls: map[string]int{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		b, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		form, err := url.ParseQuery(string(b))
		require.NoError(t, err)

		f.mu.Lock()
		f.private = append(f.private, signedRequest{form: form, body: string(b), key: r.Header.Get("Key"), sign: r.Header.Get("Sign")})
		f.calls[form.Get("method")]++
		attempt := f.calls[form.Get("method")]
		f.mu.Unlock()

		if private == nil {
			http.NotFound(w, r)
			return
		}
		private(w, form, attempt)
	})
	mux.HandleFunc("/api.php", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.public = append(f.public, r.URL.Query())
		f.mu.Unlock()
		if public == nil {
			http.NotFound(w, r)
			return
		}
		public(w, r.URL.Query())
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCryptsy) signed() []signedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]signedRequest(nil), f.private...)
}

func (f *fakeCryptsy) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func reply(w http.ResponseWriter, body string) {
	// Cryptsy really does label its JSON text/html.
	w.Header().Set("Content-Type", "text/html")
	_, _ = io.WriteString(w, body)
}

func newTestExchange(t *testing.T, srv *fakeCryptsy, withCredentials bool) *Exchange {
	t.Helper()
	spec := exchange.Specification{
		Name:       Name,
		SSLURI:     srv.URL,
		PublicURI:  srv.URL,
		Timeout:    5 * time.Second,
		RetryCount: exchange.IntPtr(1),
		RateLimit:  1000,
	}
	if withCredentials {
		spec.APIKey = testKey
		spec.SecretKey = testSecret
	}
	ex, err := exchange.New(spec)
	require.NoError(t, err)
	return ex.(*Exchange)
}

func TestDefaultSpecification(t *testing.T) {
	ex := &Exchange{}
	spec := ex.DefaultSpecification()
	assert.Equal(t, "Cryptsy", spec.Name)
	assert.Equal(t, "https://api.cryptsy.com", spec.SSLURI)
	require.NotNil(t, spec.NoncePrecision)
	assert.Equal(t, "ms", spec.NoncePrecision.String())
	assert.Contains(t, exchange.Names(), "cryptsy")
}

func TestGetAccountInfoSignsRequest(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		reply(w, `{"success":"1","return":{
			"balances_available":{"BTC":"1.5","ltc":"20"},
			"balances_hold":{"BTC":"0.25"},
			"servertimestamp":1393000000,"servertimezone":"EST","openordercount":2}}`)
	}, nil)
	ex := newTestExchange(t, srv, true)

	info, err := ex.AccountService().GetAccountInfo(context.Background())
	require.NoError(t, err)

	require.Len(t, info.Wallets, 2)
	assert.Equal(t, "BTC", info.Wallets[0].Currency)
	assert.Equal(t, "1.5", info.Wallets[0].Available.String())
	assert.Equal(t, "0.25", info.Wallets[0].Frozen.String())
	assert.Equal(t, "LTC", info.Wallets[1].Currency)
	assert.Equal(t, "1.75", info.Wallet("BTC").Total().String())

	reqs := srv.signed()
	require.Len(t, reqs, 1)
	req := reqs[0]
	assert.Equal(t, "getinfo", req.form.Get("method"))
	assert.Equal(t, testKey, req.key)
	assert.Equal(t, signing.HmacSHA512Hex(testSecret, req.body), req.sign)

	n, err := strconv.ParseInt(req.form.Get("nonce"), 10, 64)
	require.NoError(t, err)
	assert.Equal(t, ex.NonceFactory().(interface{ Last() int64 }).Last(), n)
}

func TestReadOnlyCallRetriesWithFreshNonce(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, attempt int) {
		if attempt == 1 {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		reply(w, `{"success":1,"return":{"balances_available":{"BTC":"1"}}}`)
	}, nil)
	ex := newTestExchange(t, srv, true)

	_, err := ex.AccountService().GetAccountInfo(context.Background())
	require.NoError(t, err)

	reqs := srv.signed()
	require.Len(t, reqs, 2)
	first, _ := strconv.ParseInt(reqs[0].form.Get("nonce"), 10, 64)
	second, _ := strconv.ParseInt(reqs[1].form.Get("nonce"), 10, 64)
	assert.Greater(t, second, first)
	for _, r := range reqs {
		assert.Equal(t, signing.HmacSHA512Hex(testSecret, r.body), r.sign)
	}
}

func TestOrderPlacementIsNotRetried(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		switch form.Get("method") {
		case "getmarkets":
			reply(w, marketsJSON)
		default:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}, nil)
	ex := newTestExchange(t, srv, true)

	_, err := ex.TradeService().PlaceLimitOrder(context.Background(), exchange.LimitOrder{
		Type:           exchange.Bid,
		TradableAmount: decimal.RequireFromString("2"),
		Pair:           exchange.LTCBTC,
		LimitPrice:     decimal.RequireFromString("0.025"),
	})
	require.Error(t, err)
	assert.True(t, exchange.IsTransport(err))
	assert.Equal(t, 1, srv.count("createorder"))
}

func TestPlaceLimitOrder(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		switch form.Get("method") {
		case "getmarkets":
			reply(w, marketsJSON)
		case "createorder":
			reply(w, `{"success":"1","orderid":"12345","moreinfo":"Your Sell order has been placed."}`)
		}
	}, nil)
	ex := newTestExchange(t, srv, true)

	id, err := ex.TradeService().PlaceLimitOrder(context.Background(), exchange.LimitOrder{
		Type:           exchange.Ask,
		TradableAmount: decimal.RequireFromString("2.5"),
		Pair:           exchange.LTCBTC,
		LimitPrice:     decimal.RequireFromString("0.0271"),
	})
	require.NoError(t, err)
	assert.Equal(t, "12345", id)

	reqs := srv.signed()
	require.Len(t, reqs, 2)
	order := reqs[1].form
	assert.Equal(t, "createorder", order.Get("method"))
	assert.Equal(t, "3", order.Get("marketid"))
	assert.Equal(t, "Sell", order.Get("ordertype"))
	assert.Equal(t, "2.5", order.Get("quantity"))
	assert.Equal(t, "0.0271", order.Get("price"))

	// The market table is cached; a second order skips getmarkets.
	_, err = ex.TradeService().PlaceLimitOrder(context.Background(), exchange.LimitOrder{
		Type: exchange.Bid, TradableAmount: decimal.NewFromInt(1000), Pair: exchange.DOGEBTC, LimitPrice: decimal.RequireFromString("0.0000012"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, srv.count("getmarkets"))
	last := srv.signed()[2].form
	assert.Equal(t, "132", last.Get("marketid"))
	assert.Equal(t, "Buy", last.Get("ordertype"))
}

func TestUnknownPairIsRejected(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		reply(w, marketsJSON)
	}, nil)
	ex := newTestExchange(t, srv, true)

	_, err := ex.TradeService().PlaceLimitOrder(context.Background(), exchange.LimitOrder{
		Type: exchange.Bid, TradableAmount: decimal.NewFromInt(1), Pair: exchange.BTCUSD, LimitPrice: decimal.NewFromInt(600),
	})
	require.Error(t, err)
	assert.True(t, exchange.IsRejected(err))
	assert.Equal(t, 0, srv.count("createorder"))
}

func TestUnknownMarketReloadsStaleTable(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, attempt int) {
		switch form.Get("method") {
		case "getmarkets":
			if attempt == 1 {
				reply(w, marketsJSON)
				return
			}
			reply(w, `{"success":"1","return":[
				{"marketid":"3","label":"LTC/BTC","primary_currency_code":"LTC","secondary_currency_code":"BTC"},
				{"marketid":"999","label":"NEW/BTC","primary_currency_code":"NEW","secondary_currency_code":"BTC"}]}`)
		case "allmyorders":
			reply(w, `{"success":"1","return":[{"orderid":"7","marketid":"999","created":"2014-02-24 21:01:40","ordertype":"Buy","price":"0.5","quantity":"2","orig_quantity":"2","total":"1"}]}`)
		}
	}, nil)
	ex := newTestExchange(t, srv, true)
	ctx := context.Background()

	// A fresh table is trusted; the order is skipped.
	orders, err := ex.TradeService().GetOpenOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders.Orders)
	assert.Equal(t, 1, srv.count("getmarkets"))

	table, ok := ex.raw.markets.Get(marketsCacheKey)
	require.True(t, ok)
	table.loaded = time.Now().Add(-2 * marketsMinRefresh)

	orders, err = ex.TradeService().GetOpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders.Orders, 1)
	assert.Equal(t, exchange.NewCurrencyPair("NEW", "BTC"), orders.Orders[0].Pair)
	assert.Equal(t, 2, srv.count("getmarkets"))
}

func TestCancelOrder(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		reply(w, `{"success":"1","return":"Your order #42 has been cancelled."}`)
	}, nil)
	ex := newTestExchange(t, srv, true)

	ok, err := ex.TradeService().CancelOrder(context.Background(), "42")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", srv.signed()[0].form.Get("orderid"))

	ok, err = ex.TradeService().CancelOrder(context.Background(), "abc")
	assert.False(t, ok)
	assert.True(t, exchange.IsRejected(err))
	assert.Len(t, srv.signed(), 1)
}

func TestUnsupportedAndMissingCredentials(t *testing.T) {
	srv := newFakeCryptsy(t, nil, nil)
	ex := newTestExchange(t, srv, false)

	_, err := ex.TradeService().PlaceMarketOrder(context.Background(), exchange.MarketOrder{Type: exchange.Bid, Pair: exchange.LTCBTC})
	assert.True(t, exchange.IsUnsupported(err))

	_, err = ex.AccountService().GetAccountInfo(context.Background())
	assert.True(t, exchange.IsAuthentication(err))
	assert.Empty(t, srv.signed())
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"auth message", 200, `{"success":"0","error":"Unable to Authorize Request - Check Your Post Data"}`, exchange.IsAuthentication},
		{"bad api key", 200, `{"success":0,"error":"Invalid API key"}`, exchange.IsAuthentication},
		{"business rejection", 200, `{"success":"0","error":"Insufficient LTC in account to complete this order."}`, exchange.IsRejected},
		{"http 403", 403, `forbidden`, exchange.IsAuthentication},
		{"malformed", 200, `<html>maintenance</html>`, exchange.IsTransport},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, nil)
			ex := newTestExchange(t, srv, true)

			_, err := ex.TradeService().CancelOrder(context.Background(), "7")
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)

			var exErr *exchange.Error
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, Name, exErr.Exchange)
		})
	}
}

func TestTradeHistory(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		switch form.Get("method") {
		case "getmarkets":
			reply(w, marketsJSON)
		case "allmytrades":
			reply(w, `{"success":"1","return":[
				{"tradeid":"501","tradetype":"Buy","datetime":"2014-02-24 21:01:40","marketid":"3","tradeprice":"0.0251","quantity":"4","fee":"0.0002","total":"0.1004","initiate_ordertype":"Sell","order_id":"9001"},
				{"tradeid":"502","tradetype":"Sell","datetime":"2014-02-25 08:00:00","marketid":"132","tradeprice":"0.0000012","quantity":"1000","fee":"0.000001","total":"0.0012","order_id":"9002"},
				{"tradeid":"503","tradetype":"Sell","datetime":"2014-02-25 09:00:00","marketid":"999","tradeprice":"1","quantity":"1","fee":"0","total":"1","order_id":"9003"}]}`)
		}
	}, nil)
	ex := newTestExchange(t, srv, true)
	ex.trade.now = func() time.Time { return time.Date(2014, 3, 1, 12, 0, 0, 0, time.UTC) }

	trades, err := ex.TradeService().GetTradeHistory(context.Background(), ex.TradeService().CreateTradeHistoryParams())
	require.NoError(t, err)
	require.Len(t, trades.Trades, 2)
	assert.Equal(t, int64(502), trades.LastID)

	first := trades.Trades[0]
	assert.Equal(t, exchange.Bid, first.Type)
	assert.Equal(t, exchange.LTCBTC, first.Pair)
	assert.Equal(t, "9001", first.OrderID)
	assert.Equal(t, "BTC", first.FeeCurrency)
	assert.Equal(t, "0.0002", first.FeeAmount.String())
	assert.True(t, first.Timestamp.Equal(time.Date(2014, 2, 25, 2, 1, 40, 0, time.UTC)))

	var history url.Values
	for _, r := range srv.signed() {
		if r.form.Get("method") == "allmytrades" {
			history = r.form
		}
	}
	require.NotNil(t, history)
	assert.Equal(t, "1969-12-31", history.Get("startdate"))
	assert.Equal(t, "2014-03-01", history.Get("enddate"))

	trades, err = ex.TradeService().GetTradeHistory(context.Background(), &exchange.AllParams{
		PairParams: exchange.PairParams{Pair: exchange.DOGEBTC},
	})
	require.NoError(t, err)
	require.Len(t, trades.Trades, 1)
	assert.Equal(t, "502", trades.Trades[0].ID)
}

func TestPublicMarketData(t *testing.T) {
	market := `{"marketid":"3","label":"LTC/BTC","lasttradeprice":"0.0252","volume":"1520.3","lasttradetime":"2014-02-24 21:01:40",
		"primarycode":"LTC","secondarycode":"BTC",
		"recenttrades":[
			{"id":"1001","time":"2014-02-24 21:01:40","type":"Buy","price":"0.0252","quantity":"3","total":"0.0756"},
			{"id":"1000","time":"2014-02-24 21:00:10","type":"Sell","price":"0.0249","quantity":"1","total":"0.0249"}],
		"sellorders":[{"price":"0.0253","quantity":"5","total":"0.1265"},{"price":"0.0252","quantity":"2","total":"0.0504"}],
		"buyorders":[{"price":"0.0250","quantity":"7","total":"0.175"},{"price":"0.0251","quantity":"1","total":"0.0251"}]}`

	srv := newFakeCryptsy(t, nil, func(w http.ResponseWriter, q url.Values) {
		switch q.Get("method") {
		case "marketdatav2":
			reply(w, `{"success":1,"return":{"markets":{"LTC/BTC":{"marketid":"3","label":"LTC/BTC","primarycode":"LTC","secondarycode":"BTC"}}}}`)
		case "singlemarketdata":
			assert.Equal(t, "3", q.Get("marketid"))
			reply(w, `{"success":1,"return":{"markets":{"LTC":`+market+`}}}`)
		case "singleorderdata":
			reply(w, `{"success":1,"return":{"LTC":`+market+`}}`)
		}
	})
	ex := newTestExchange(t, srv, false)
	md := ex.MarketDataService()
	ctx := context.Background()

	ticker, err := md.GetTicker(ctx, exchange.LTCBTC)
	require.NoError(t, err)
	assert.Equal(t, "0.0252", ticker.Last.String())
	assert.Equal(t, "0.0251", ticker.Bid.String())
	assert.Equal(t, "0.0252", ticker.Ask.String())
	assert.Equal(t, "0.0252", ticker.High.String())
	assert.Equal(t, "0.0249", ticker.Low.String())
	assert.True(t, ticker.Timestamp.Equal(time.Date(2014, 2, 25, 2, 1, 40, 0, time.UTC)))

	book, err := md.GetOrderBook(ctx, exchange.LTCBTC)
	require.NoError(t, err)
	require.Len(t, book.Asks, 2)
	require.Len(t, book.Bids, 2)
	assert.Equal(t, "0.0252", book.Asks[0].LimitPrice.String())
	assert.Equal(t, "0.0251", book.Bids[0].LimitPrice.String())
	assert.Equal(t, exchange.Bid, book.Bids[0].Type)

	trades, err := md.GetTrades(ctx, exchange.LTCBTC)
	require.NoError(t, err)
	require.Len(t, trades.Trades, 2)
	assert.Equal(t, int64(1001), trades.LastID)
	assert.Equal(t, exchange.Ask, trades.Trades[1].Type)

	_, err = md.GetTicker(ctx, exchange.BTCUSD)
	assert.True(t, exchange.IsRejected(err))
	assert.Empty(t, srv.signed())
}

func TestRequestDepositAddress(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		switch form.Get("method") {
		case "mydepositaddresses":
			reply(w, `{"success":"1","return":{"BTC":"1ExistingBtcAddr"}}`)
		case "generatenewaddress":
			assert.Equal(t, "LTC", form.Get("currencycode"))
			reply(w, `{"success":"1","return":{"address":"LNewLtcAddr"}}`)
		}
	}, nil)
	ex := newTestExchange(t, srv, true)
	ctx := context.Background()

	addr, err := ex.AccountService().RequestDepositAddress(ctx, "btc")
	require.NoError(t, err)
	assert.Equal(t, "1ExistingBtcAddr", addr)

	addr, err = ex.AccountService().RequestDepositAddress(ctx, "LTC")
	require.NoError(t, err)
	assert.Equal(t, "LNewLtcAddr", addr)
	assert.Equal(t, 1, srv.count("generatenewaddress"))
}

func TestRawMarketScopedCalls(t *testing.T) {
	srv := newFakeCryptsy(t, func(w http.ResponseWriter, form url.Values, _ int) {
		switch form.Get("method") {
		case "myorders":
			reply(w, `{"success":"1","return":[{"orderid":"7","created":"2014-02-24 21:01:40","ordertype":"Sell","price":"0.03","quantity":"1","orig_quantity":"2","total":"0.03"}]}`)
		case "mytrades":
			reply(w, `{"success":"1","return":[{"tradeid":"501","tradetype":"Buy","datetime":"2014-02-24 21:01:40","tradeprice":"0.0251","quantity":"4","fee":"0.0002","total":"0.1004","order_id":"9001"}]}`)
		case "cancelmarketorders", "cancelallorders":
			reply(w, `{"success":"1","return":["Order 7 cancelled.","Order 8 cancelled."]}`)
		case "calculatefees":
			reply(w, `{"success":"1","return":{"fee":"0.00005","net":"0.02505"}}`)
		}
	}, nil)
	raw := newTestExchange(t, srv, true).Raw()
	ctx := context.Background()

	orders, err := raw.MyOrders(ctx, "3")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "2", orders[0].OrigQuantity.String())

	trades, err := raw.MyTrades(ctx, "3", 50)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "9001", trades[0].OrderID.String())

	cancelled, err := raw.CancelMarketOrders(ctx, "3")
	require.NoError(t, err)
	assert.Len(t, cancelled, 2)
	cancelled, err = raw.CancelAllOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, cancelled, 2)

	fees, err := raw.CalculateFees(ctx, "Buy", decimal.NewFromInt(1), decimal.RequireFromString("0.025"))
	require.NoError(t, err)
	assert.Equal(t, "0.00005", fees.Fee.String())

	reqs := srv.signed()
	require.Len(t, reqs, 5)
	assert.Equal(t, "3", reqs[0].form.Get("marketid"))
	assert.Equal(t, "50", reqs[1].form.Get("limit"))
	assert.Equal(t, "0.025", reqs[4].form.Get("price"))
	for _, r := range reqs {
		assert.Equal(t, testKey, r.key)
		assert.Equal(t, signing.HmacSHA512Hex(testSecret, r.body), r.sign)
	}
}

func TestReapplyingSpecificationKeepsNonceRising(t *testing.T) {
	srv := newFakeCryptsy(t, nil, nil)
	ex := newTestExchange(t, srv, true)
	spec := ex.Specification()
	spec.NoncePrecision = exchange.PrecisionPtr(nonce.Seconds)
	require.NoError(t, ex.ApplySpecification(spec))

	factory := ex.NonceFactory()
	var last int64
	for i := 0; i < 50; i++ {
		last = factory.Next()
	}

	require.NoError(t, ex.ApplySpecification(ex.Specification()))
	assert.Same(t, factory, ex.NonceFactory())
	assert.Greater(t, ex.NonceFactory().Next(), last)

	// Switching precision keeps the sequence too.
	spec.NoncePrecision = exchange.PrecisionPtr(nonce.Milliseconds)
	require.NoError(t, ex.ApplySpecification(spec))
	next := ex.NonceFactory().Next()
	assert.Greater(t, next, last)
	spec.NoncePrecision = exchange.PrecisionPtr(nonce.Seconds)
	require.NoError(t, ex.ApplySpecification(spec))
	assert.Greater(t, ex.NonceFactory().Next(), next)
}

func TestHostsSharePerKeyLimiters(t *testing.T) {
	srv := newFakeCryptsy(t, nil, nil)
	ex := newTestExchange(t, srv, true)
	raw := ex.Raw()

	limits := raw.private.Limits()
	require.NotNil(t, limits)
	assert.Same(t, limits, raw.public.Limits())
	assert.IsType(t, &ratelimit.SlidingWindow{}, limits.GetLimiter(rateKeyPrivate))
	assert.IsType(t, &ratelimit.TokenBucket{}, limits.GetLimiter(rateKeyPublic))
	assert.NotSame(t, limits.GetLimiter(rateKeyPrivate), limits.GetLimiter(rateKeyPublic))
}
