// Package lakebtc adapts the LakeBTC bitcoin exchange (USD and CNY books).
package lakebtc

import (
	"time"

	"github.com/pkg/errors"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/nonce"
	"github.com/betbot/xchange/pkg/ratelimit"
	sdkhttp "github.com/betbot/xchange/pkg/sdk/http"
)

const Name = "LakeBTC"

func init() {
	exchange.Register(Name, func() exchange.Exchange { return &Exchange{} })
}

type Exchange struct {
	spec  exchange.Specification
	tonce *nonce.Factory
	raw   *Raw

	trade   *tradeService
	account *accountService
	market  *marketDataService
}

var _ exchange.Exchange = (*Exchange)(nil)

func (e *Exchange) Name() string { return Name }

func (e *Exchange) DefaultSpecification() exchange.Specification {
	return exchange.Specification{
		Name:           Name,
		Description:    "LakeBTC is a Bitcoin exchange for USD and CNY.",
		SSLURI:         "https://www.LakeBTC.com/api_v1",
		Host:           "https://lakebtc.com",
		NoncePrecision: exchange.PrecisionPtr(nonce.Microseconds),
		Timeout:        30 * time.Second,
		RetryCount:     exchange.IntPtr(2),
		RateLimit:      5,
	}
}

func (e *Exchange) Specification() exchange.Specification { return e.spec }

// ApplySpecification builds the transport and services. The account and
// trade services share one tonce factory, kept across calls.
func (e *Exchange) ApplySpecification(spec exchange.Specification) error {
	if spec.SSLURI == "" {
		return errors.New("lakebtc: ssl uri is required")
	}
	if spec.Name == "" {
		spec.Name = Name
	}

	// Created once; a re-applied specification keeps the sequence.
	if precision := spec.Precision(nonce.Microseconds); e.tonce == nil {
		e.tonce = nonce.New(nonce.WithPrecision(precision))
	} else {
		e.tonce.SetPrecision(precision)
	}
	client := sdkhttp.NewClient(sdkhttp.Config{
		Exchange:   spec.Name,
		BaseURL:    spec.SSLURI,
		Timeout:    spec.Timeout,
		RetryCount: spec.Retries(),
		ProxyURL:   spec.ProxyURL,
		Limits:     ratelimit.ForExchange(rateKeyPrivate, rateKeyPublic, spec.RateLimit),
	})

	e.spec = spec
	e.raw = newRaw(spec, e.tonce, client)
	e.trade = &tradeService{raw: e.raw}
	e.account = &accountService{raw: e.raw}
	e.market = &marketDataService{raw: e.raw, now: time.Now}
	return nil
}

func (e *Exchange) TradeService() exchange.TradeService           { return e.trade }
func (e *Exchange) AccountService() exchange.AccountService       { return e.account }
func (e *Exchange) MarketDataService() exchange.MarketDataService { return e.market }
func (e *Exchange) NonceFactory() nonce.Source                    { return e.tonce }

func (e *Exchange) Raw() *Raw { return e.raw }
