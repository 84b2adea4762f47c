// Package http is the REST transport shared by every exchange adapter.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
	"github.com/betbot/xchange/pkg/ratelimit"
)

const defaultUserAgent = "xchange-go"

// Config describes one exchange host.
type Config struct {
	Exchange   string // used in errors and log fields
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	ProxyURL   string
	UserAgent  string
	Limits     *ratelimit.Manager
}

// Client wraps two resty clients for one host: retrying for public calls,
// non-retrying for signed calls. A signed request must never be resent
// as-is, since the exchange has already seen its nonce.
type Client struct {
	exchange string
	retrying *resty.Client
	signed   *resty.Client
	limits   *ratelimit.Manager
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	base := strings.TrimSuffix(cfg.BaseURL, "/")

	build := func(retries int) *resty.Client {
		c := resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("User-Agent", cfg.UserAgent).
			SetHeader("Accept", "application/json")
		if cfg.ProxyURL != "" {
			c.SetProxy(cfg.ProxyURL)
		}
		if retries > 0 {
			c.SetRetryCount(retries).
				SetRetryWaitTime(500 * time.Millisecond).
				SetRetryMaxWaitTime(5 * time.Second).
				AddRetryCondition(func(resp *resty.Response, err error) bool {
					if err != nil {
						return true
					}
					return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
				})
		}
		return c
	}

	return &Client{
		exchange: cfg.Exchange,
		retrying: build(cfg.RetryCount),
		signed:   build(0),
		limits:   cfg.Limits,
	}
}

// Limits returns the limiter set requests wait on, nil when unthrottled.
func (c *Client) Limits() *ratelimit.Manager { return c.limits }

// RequestOptions describes one call.
type RequestOptions struct {
	Headers map[string]string
	Params  map[string]any
	// Form is sent as application/x-www-form-urlencoded, in the exact
	// encoding given, so it matches what was signed.
	Form string
	// Body is marshalled as JSON when Form is empty.
	Body any
	// Signed disables transport-level retries.
	Signed bool
	// RateKey selects the limiter; empty uses the fallback.
	RateKey string
	// Op names the call in errors and logs.
	Op string
}

// Do executes a request. A transport failure (no response at all) comes back
// as an exchange TransportError; HTTP error statuses are returned with the
// response so the adapter can classify them.
func (c *Client) Do(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	if opt == nil {
		opt = &RequestOptions{}
	}
	op := opt.Op
	if op == "" {
		op = method + " " + endpoint
	}

	entry := logger.WithFields(logrus.Fields{"exchange": c.exchange, "op": op})
	if c.limits != nil {
		if l := c.limits.GetLimiter(opt.RateKey); l.GetRemaining() == 0 {
			entry.Debugf("throttled on %q until %s", opt.RateKey, l.GetResetTime().Format(time.RFC3339Nano))
		}
		if err := c.limits.Wait(ctx, opt.RateKey); err != nil {
			return nil, exchange.NewTransportError(c.exchange, op, errors.Wrap(err, "rate limit wait"))
		}
	}

	rc := c.retrying
	if opt.Signed {
		rc = c.signed
	}
	r := rc.R().SetContext(ctx)
	for k, v := range opt.Headers {
		r.SetHeader(k, v)
	}
	if len(opt.Params) > 0 {
		r.SetQueryParamsFromValues(toValues(opt.Params))
	}
	switch {
	case opt.Form != "":
		r.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		r.SetBody(opt.Form)
	case opt.Body != nil:
		r.SetHeader("Content-Type", "application/json")
		r.SetBody(opt.Body)
	}

	start := time.Now()
	resp, err := r.Execute(strings.ToUpper(method), endpoint)
	if err != nil {
		entry.Warnf("request failed after %v: %v", time.Since(start), err)
		return resp, exchange.NewTransportError(c.exchange, op, err)
	}
	entry.Debugf("%s %s -> %d in %v", method, endpoint, resp.StatusCode(), time.Since(start))

	// Decoded by hand: several exchanges send JSON as text/html, which
	// resty's SetResult would skip.
	if out != nil && resp.IsSuccess() {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return resp, exchange.NewTransportError(c.exchange, op,
				errors.Wrapf(err, "decode response %q", truncate(string(resp.Body()), 256)))
		}
	}
	return resp, nil
}

// Get is Do for unsigned GET requests.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]any, out any) (*resty.Response, error) {
	return c.Do(ctx, http.MethodGet, endpoint, &RequestOptions{Params: params, Op: "GET " + endpoint}, out)
}

func toValues(m map[string]any) url.Values {
	v := make(url.Values, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case []string:
			v[k] = t
		default:
			v[k] = []string{fmt.Sprint(val)}
		}
	}
	return v
}

// StatusError describes a non-2xx response for logging and error messages.
func StatusError(resp *resty.Response) string {
	return fmt.Sprintf("http %d: %s", resp.StatusCode(), truncate(strings.TrimSpace(string(resp.Body())), 512))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
