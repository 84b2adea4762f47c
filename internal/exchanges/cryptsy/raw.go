package cryptsy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/xchange/internal/metrics"
	"github.com/betbot/xchange/pkg/cache"
	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
	"github.com/betbot/xchange/pkg/nonce"
	sdkhttp "github.com/betbot/xchange/pkg/sdk/http"
	"github.com/betbot/xchange/pkg/signing"
)

const (
	privatePath = "/api"
	publicPath  = "/api.php"

	rateKeyPrivate = "cryptsy:private"
	rateKeyPublic  = "cryptsy:public"

	marketsCacheKey = "markets"
	marketsTTL      = time.Hour
)

// Raw speaks Cryptsy's own API and returns Cryptsy's own types. The trade,
// account and market data services adapt its results.
type Raw struct {
	name    string
	spec    exchange.Specification
	nonce   nonce.Source
	private *sdkhttp.Client
	public  *sdkhttp.Client
	markets *cache.InMemoryCache[string, *marketTable]
}

func newRaw(spec exchange.Specification, nonces nonce.Source, private, public *sdkhttp.Client) *Raw {
	return &Raw{
		name:    spec.Name,
		spec:    spec,
		nonce:   nonces,
		private: private,
		public:  public,
		markets: cache.NewInMemoryCache[string, *marketTable](marketsTTL, 0),
	}
}

// privateCall signs and posts one authenticated method. Read-only calls may
// be retried on transport failure; every attempt draws a fresh nonce and
// is signed again.
func (r *Raw) privateCall(ctx context.Context, method string, params url.Values, retryable bool) (*envelope, error) {
	if !r.spec.HasCredentials() {
		return nil, exchange.NewAuthenticationError(r.name, method, "api key and secret are required")
	}

	attempts := 1
	if retryable {
		attempts += r.spec.Retries()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			metrics.ObserveRetry(r.name)
		}
		env, err := r.signedPost(ctx, method, params)
		metrics.ObserveSigned(r.name, err)
		if err == nil {
			return env, nil
		}
		lastErr = err
		if !exchange.IsTransport(err) || ctx.Err() != nil {
			break
		}
		logger.WithFields(logrus.Fields{"exchange": r.name, "method": method, "attempt": attempt}).
			Warnf("cryptsy call failed: %v", err)
	}
	return nil, lastErr
}

func (r *Raw) signedPost(ctx context.Context, method string, params url.Values) (*envelope, error) {
	form := url.Values{}
	for k, vs := range params {
		form[k] = append([]string(nil), vs...)
	}
	n := r.nonce.Next()
	form.Set("method", method)
	form.Set("nonce", strconv.FormatInt(n, 10))
	body := form.Encode()

	logger.WithFields(logrus.Fields{"exchange": r.name, "method": method, "nonce": n}).Debugf("signing request")

	resp, err := r.private.Do(ctx, http.MethodPost, privatePath, &sdkhttp.RequestOptions{
		Form: body,
		Headers: map[string]string{
			"Key":  r.spec.APIKey,
			"Sign": signing.HmacSHA512Hex(r.spec.SecretKey, body),
		},
		Signed:  true,
		RateKey: rateKeyPrivate,
		Op:      method,
	}, nil)
	if err != nil {
		return nil, err
	}
	return r.decode(method, resp.StatusCode(), resp.Body(), sdkhttp.StatusError(resp))
}

func (r *Raw) publicCall(ctx context.Context, method string, params map[string]any) (*envelope, error) {
	q := map[string]any{"method": method}
	for k, v := range params {
		q[k] = v
	}
	resp, err := r.public.Do(ctx, http.MethodGet, publicPath, &sdkhttp.RequestOptions{
		Params:  q,
		RateKey: rateKeyPublic,
		Op:      method,
	}, nil)
	if err != nil {
		return nil, err
	}
	return r.decode(method, resp.StatusCode(), resp.Body(), sdkhttp.StatusError(resp))
}

// decode turns an HTTP status and body into an envelope or a classified error.
func (r *Raw) decode(method string, status int, body []byte, statusText string) (*envelope, error) {
	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		msg := statusText
		if decodeErr == nil && env.Error != "" {
			msg = env.Error
		}
		return nil, exchange.NewAuthenticationError(r.name, method, msg)
	case status >= 500:
		return nil, exchange.NewTransportError(r.name, method, errors.New(statusText))
	case status >= 300:
		if decodeErr == nil && env.Error != "" {
			return nil, classify(r.name, method, env.Error)
		}
		return nil, exchange.NewRejectedError(r.name, method, statusText)
	}

	if decodeErr != nil {
		return nil, exchange.NewTransportError(r.name, method, errors.Wrap(decodeErr, "decode envelope"))
	}
	if !env.Success {
		msg := env.Error
		if msg == "" {
			msg = "request failed without an error message"
		}
		return nil, classify(r.name, method, msg)
	}
	return &env, nil
}

func classify(name, method, msg string) error {
	l := strings.ToLower(msg)
	if strings.Contains(l, "authoriz") || strings.Contains(l, "api key") || strings.Contains(l, "sign") {
		return exchange.NewAuthenticationError(name, method, msg)
	}
	return exchange.NewRejectedError(name, method, msg)
}

func (r *Raw) unmarshalReturn(method string, env *envelope, out any) error {
	if err := json.Unmarshal(env.Return, out); err != nil {
		return exchange.NewTransportError(r.name, method, errors.Wrap(err, "decode return"))
	}
	return nil
}

// message renders a "return" value that may be a string or any JSON.
func message(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (r *Raw) GetInfo(ctx context.Context) (*Info, error) {
	env, err := r.privateCall(ctx, "getinfo", nil, true)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := r.unmarshalReturn("getinfo", env, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (r *Raw) GetMarkets(ctx context.Context) ([]Market, error) {
	env, err := r.privateCall(ctx, "getmarkets", nil, true)
	if err != nil {
		return nil, err
	}
	var markets []Market
	if err := r.unmarshalReturn("getmarkets", env, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

func (r *Raw) MyOrders(ctx context.Context, marketID string) ([]Order, error) {
	env, err := r.privateCall(ctx, "myorders", url.Values{"marketid": {marketID}}, true)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := r.unmarshalReturn("myorders", env, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *Raw) AllMyOrders(ctx context.Context) ([]Order, error) {
	env, err := r.privateCall(ctx, "allmyorders", nil, true)
	if err != nil {
		return nil, err
	}
	var orders []Order
	if err := r.unmarshalReturn("allmyorders", env, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// CreateOrder places a limit order. orderType is "Buy" or "Sell".
func (r *Raw) CreateOrder(ctx context.Context, marketID, orderType string, quantity, price decimal.Decimal) (*PlaceOrderResult, error) {
	env, err := r.privateCall(ctx, "createorder", url.Values{
		"marketid":  {marketID},
		"ordertype": {orderType},
		"quantity":  {quantity.String()},
		"price":     {price.String()},
	}, false)
	if err != nil {
		return nil, err
	}
	if env.OrderID == "" {
		return nil, exchange.NewRejectedError(r.name, "createorder", "response carried no order id")
	}
	return &PlaceOrderResult{OrderID: env.OrderID.String(), MoreInfo: env.MoreInfo}, nil
}

func (r *Raw) CancelOrder(ctx context.Context, orderID int64) (string, error) {
	env, err := r.privateCall(ctx, "cancelorder", url.Values{"orderid": {strconv.FormatInt(orderID, 10)}}, false)
	if err != nil {
		return "", err
	}
	return message(env.Return), nil
}

func (r *Raw) CancelMarketOrders(ctx context.Context, marketID string) ([]string, error) {
	env, err := r.privateCall(ctx, "cancelmarketorders", url.Values{"marketid": {marketID}}, false)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := r.unmarshalReturn("cancelmarketorders", env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Raw) CancelAllOrders(ctx context.Context) ([]string, error) {
	env, err := r.privateCall(ctx, "cancelallorders", nil, false)
	if err != nil {
		return nil, err
	}
	var out []string
	if err := r.unmarshalReturn("cancelallorders", env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Raw) MyTrades(ctx context.Context, marketID string, limit int) ([]UserTrade, error) {
	params := url.Values{"marketid": {marketID}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	env, err := r.privateCall(ctx, "mytrades", params, true)
	if err != nil {
		return nil, err
	}
	var trades []UserTrade
	if err := r.unmarshalReturn("mytrades", env, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

// AllMyTrades lists trades across all markets. Zero bounds are omitted and
// the exchange applies its own defaults.
func (r *Raw) AllMyTrades(ctx context.Context, start, end time.Time) ([]UserTrade, error) {
	params := url.Values{}
	if !start.IsZero() {
		params.Set("startdate", start.In(serverZone).Format("2006-01-02"))
	}
	if !end.IsZero() {
		params.Set("enddate", end.In(serverZone).Format("2006-01-02"))
	}
	env, err := r.privateCall(ctx, "allmytrades", params, true)
	if err != nil {
		return nil, err
	}
	var trades []UserTrade
	if err := r.unmarshalReturn("allmytrades", env, &trades); err != nil {
		return nil, err
	}
	return trades, nil
}

func (r *Raw) CalculateFees(ctx context.Context, orderType string, quantity, price decimal.Decimal) (*Fees, error) {
	env, err := r.privateCall(ctx, "calculatefees", url.Values{
		"ordertype": {orderType},
		"quantity":  {quantity.String()},
		"price":     {price.String()},
	}, true)
	if err != nil {
		return nil, err
	}
	var fees Fees
	if err := r.unmarshalReturn("calculatefees", env, &fees); err != nil {
		return nil, err
	}
	return &fees, nil
}

func (r *Raw) GenerateNewAddress(ctx context.Context, currencyCode string) (string, error) {
	env, err := r.privateCall(ctx, "generatenewaddress", url.Values{"currencycode": {currencyCode}}, false)
	if err != nil {
		return "", err
	}
	var addr depositAddress
	if err := r.unmarshalReturn("generatenewaddress", env, &addr); err != nil {
		return "", err
	}
	return addr.Address, nil
}

func (r *Raw) MyDepositAddresses(ctx context.Context) (map[string]string, error) {
	env, err := r.privateCall(ctx, "mydepositaddresses", nil, true)
	if err != nil {
		return nil, err
	}
	out := map[string]string{}
	if err := r.unmarshalReturn("mydepositaddresses", env, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Raw) MakeWithdrawal(ctx context.Context, address string, amount decimal.Decimal) (string, error) {
	env, err := r.privateCall(ctx, "makewithdrawal", url.Values{
		"address": {address},
		"amount":  {amount.String()},
	}, false)
	if err != nil {
		return "", err
	}
	return message(env.Return), nil
}

// MarketDataV2 returns every market keyed by label ("LTC/BTC").
func (r *Raw) MarketDataV2(ctx context.Context) (map[string]PublicMarket, error) {
	env, err := r.publicCall(ctx, "marketdatav2", nil)
	if err != nil {
		return nil, err
	}
	var out publicMarkets
	if err := r.unmarshalReturn("marketdatav2", env, &out); err != nil {
		return nil, err
	}
	return out.Markets, nil
}

func (r *Raw) SingleMarketData(ctx context.Context, marketID string) (*PublicMarket, error) {
	env, err := r.publicCall(ctx, "singlemarketdata", map[string]any{"marketid": marketID})
	if err != nil {
		return nil, err
	}
	var out publicMarkets
	if err := r.unmarshalReturn("singlemarketdata", env, &out); err != nil {
		return nil, err
	}
	return firstMarket(r.name, "singlemarketdata", out.Markets)
}

func (r *Raw) SingleOrderData(ctx context.Context, marketID string) (*PublicMarket, error) {
	env, err := r.publicCall(ctx, "singleorderdata", map[string]any{"marketid": marketID})
	if err != nil {
		return nil, err
	}
	// singleorderdata keys markets by primary code directly under "return".
	var byCode map[string]PublicMarket
	if err := r.unmarshalReturn("singleorderdata", env, &byCode); err != nil {
		return nil, err
	}
	return firstMarket(r.name, "singleorderdata", byCode)
}

func firstMarket(name, method string, markets map[string]PublicMarket) (*PublicMarket, error) {
	for _, m := range markets {
		return &m, nil
	}
	return nil, exchange.NewRejectedError(name, method, "market not found")
}
