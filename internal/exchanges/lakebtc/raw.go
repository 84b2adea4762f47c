package lakebtc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/betbot/xchange/internal/metrics"
	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
	"github.com/betbot/xchange/pkg/nonce"
	sdkhttp "github.com/betbot/xchange/pkg/sdk/http"
	"github.com/betbot/xchange/pkg/signing"
)

const (
	rateKeyPrivate = "lakebtc:private"
	rateKeyPublic  = "lakebtc:public"
)

// Raw speaks LakeBTC's REST and JSON-RPC APIs.
type Raw struct {
	name   string
	spec   exchange.Specification
	tonce  nonce.Source
	client *sdkhttp.Client
}

func newRaw(spec exchange.Specification, tonce nonce.Source, client *sdkhttp.Client) *Raw {
	return &Raw{name: spec.Name, spec: spec, tonce: tonce, client: client}
}

// signature builds the string LakeBTC hashes for a private call.
func signature(tonce int64, accessKey, method string, params []string) string {
	return fmt.Sprintf("tonce=%d&accesskey=%s&requestmethod=post&id=%d&method=%s&params=%s",
		tonce, accessKey, tonce, method, strings.Join(params, ","))
}

// privateCall posts one JSON-RPC request. Read-only methods are retried on
// transport failure, each attempt with a new tonce and signature.
func (r *Raw) privateCall(ctx context.Context, method string, params []string, retryable bool, out any) error {
	if !r.spec.HasCredentials() || r.spec.Username == "" {
		return exchange.NewAuthenticationError(r.name, method, "username and secret key are required")
	}
	if params == nil {
		params = []string{}
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
		err := r.signedPost(ctx, method, params, out)
		metrics.ObserveSigned(r.name, err)
		if err == nil {
			return nil
		}
		lastErr = err
		if !exchange.IsTransport(err) || ctx.Err() != nil {
			break
		}
		logger.WithFields(logrus.Fields{"exchange": r.name, "method": method, "attempt": attempt}).
			Warnf("lakebtc call failed: %v", err)
	}
	return lastErr
}

func (r *Raw) signedPost(ctx context.Context, method string, params []string, out any) error {
	tonce := r.tonce.Next()
	hash := signing.HmacSHA1Hex(r.spec.SecretKey, signature(tonce, r.spec.Username, method, params))

	logger.WithFields(logrus.Fields{"exchange": r.name, "method": method, "tonce": tonce}).Debugf("signing request")

	resp, err := r.client.Do(ctx, http.MethodPost, "/", &sdkhttp.RequestOptions{
		Headers: map[string]string{
			"Json-Rpc-Tonce": strconv.FormatInt(tonce, 10),
			"Authorization":  "Basic " + signing.BasicAuth(r.spec.Username, hash),
		},
		Body:    rpcRequest{Method: method, Params: params, ID: tonce},
		Signed:  true,
		RateKey: rateKeyPrivate,
		Op:      method,
	}, nil)
	if err != nil {
		return err
	}

	body := resp.Body()
	switch status := resp.StatusCode(); {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return exchange.NewAuthenticationError(r.name, method, sdkhttp.StatusError(resp))
	case status >= 500:
		return exchange.NewTransportError(r.name, method, errors.New(sdkhttp.StatusError(resp)))
	case status >= 300:
		if msg := errorMessage(body); msg != "" {
			return classify(r.name, method, msg)
		}
		return exchange.NewRejectedError(r.name, method, sdkhttp.StatusError(resp))
	}

	if msg := errorMessage(body); msg != "" {
		return classify(r.name, method, msg)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return exchange.NewTransportError(r.name, method, errors.Wrap(err, "decode result"))
	}
	return nil
}

// errorMessage returns the "error" member of an object body, if any.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var e rpcError
	if err := json.Unmarshal(body, &e); err != nil || len(e.Error) == 0 || string(e.Error) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Error, &s); err == nil {
		return s
	}
	return string(e.Error)
}

func classify(name, method, msg string) error {
	if strings.Contains(strings.ToLower(msg), "auth") {
		return exchange.NewAuthenticationError(name, method, msg)
	}
	return exchange.NewRejectedError(name, method, msg)
}

func (r *Raw) publicGet(ctx context.Context, endpoint string, out any) error {
	resp, err := r.client.Do(ctx, http.MethodGet, endpoint, &sdkhttp.RequestOptions{
		RateKey: rateKeyPublic,
		Op:      "GET " + endpoint,
	}, out)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		if resp.StatusCode() >= 500 {
			return exchange.NewTransportError(r.name, endpoint, errors.New(sdkhttp.StatusError(resp)))
		}
		return exchange.NewRejectedError(r.name, endpoint, sdkhttp.StatusError(resp))
	}
	return nil
}

func (r *Raw) GetTicker(ctx context.Context) (*Tickers, error) {
	var out Tickers
	if err := r.publicGet(ctx, "/ticker", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetOrderBook fetches the book for counter currency USD or CNY.
func (r *Raw) GetOrderBook(ctx context.Context, counter string) (*OrderBook, error) {
	endpoint := "/bcorderbook"
	if counter == exchange.CNY {
		endpoint = "/bcorderbook_cny"
	}
	var out OrderBook
	if err := r.publicGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Raw) GetPublicTrades(ctx context.Context, counter string) ([]PublicTrade, error) {
	endpoint := "/bctrades"
	if counter == exchange.CNY {
		endpoint = "/bctrades_cny"
	}
	var out []PublicTrade
	if err := r.publicGet(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Raw) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	var out AccountInfo
	if err := r.privateCall(ctx, "getAccountInfo", nil, true, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Raw) BuyOrder(ctx context.Context, price, amount decimal.Decimal, currency string) (*OrderResponse, error) {
	return r.placeOrder(ctx, "buyOrder", price, amount, currency)
}

func (r *Raw) SellOrder(ctx context.Context, price, amount decimal.Decimal, currency string) (*OrderResponse, error) {
	return r.placeOrder(ctx, "sellOrder", price, amount, currency)
}

func (r *Raw) placeOrder(ctx context.Context, method string, price, amount decimal.Decimal, currency string) (*OrderResponse, error) {
	var out OrderResponse
	params := []string{price.String(), amount.String(), currency}
	if err := r.privateCall(ctx, method, params, false, &out); err != nil {
		return nil, err
	}
	if out.ID == 0 {
		return nil, exchange.NewRejectedError(r.name, method, "response carried no order id: "+out.Result)
	}
	return &out, nil
}

func (r *Raw) GetOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := r.privateCall(ctx, "getOrders", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Raw) CancelOrder(ctx context.Context, orderID string) (*CancelResponse, error) {
	var out CancelResponse
	if err := r.privateCall(ctx, "cancelOrder", []string{orderID}, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTrades lists the account's trades since a unix timestamp.
func (r *Raw) GetTrades(ctx context.Context, since int64) ([]UserTrade, error) {
	var out []UserTrade
	if err := r.privateCall(ctx, "getTrades", []string{strconv.FormatInt(since, 10)}, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}
