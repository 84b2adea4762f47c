// Package cryptsy adapts the Cryptsy altcoin exchange.
package cryptsy

import (
	"time"

	"github.com/pkg/errors"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/nonce"
	"github.com/betbot/xchange/pkg/ratelimit"
	sdkhttp "github.com/betbot/xchange/pkg/sdk/http"
)

const Name = "Cryptsy"

func init() {
	exchange.Register(Name, func() exchange.Exchange { return &Exchange{} })
}

// Exchange is the Cryptsy adapter. Build it with exchange.New or call
// ApplySpecification before use.
type Exchange struct {
	spec   exchange.Specification
	nonces *nonce.Factory
	raw    *Raw

	trade   *tradeService
	account *accountService
	market  *marketDataService
}

var _ exchange.Exchange = (*Exchange)(nil)

func (e *Exchange) Name() string { return Name }

func (e *Exchange) DefaultSpecification() exchange.Specification {
	return exchange.Specification{
		Name:           Name,
		Description:    "Cryptsy is a cryptocurrency exchange trading hundreds of altcoin markets.",
		SSLURI:         "https://api.cryptsy.com",
		PublicURI:      "http://pubapi.cryptsy.com",
		Host:           "cryptsy.com",
		NoncePrecision: exchange.PrecisionPtr(nonce.Milliseconds),
		Timeout:        30 * time.Second,
		RetryCount:     exchange.IntPtr(2),
		RateLimit:      5,
	}
}

func (e *Exchange) Specification() exchange.Specification { return e.spec }

// ApplySpecification (re)builds the transport and the services. The nonce
// factory is created on first use and every signed call made through this
// instance draws from it.
func (e *Exchange) ApplySpecification(spec exchange.Specification) error {
	if spec.SSLURI == "" {
		return errors.New("cryptsy: ssl uri is required")
	}
	if spec.PublicURI == "" {
		spec.PublicURI = spec.SSLURI
	}
	if spec.Name == "" {
		spec.Name = Name
	}

	limits := ratelimit.ForExchange(rateKeyPrivate, rateKeyPublic, spec.RateLimit)
	// Created once; a re-applied specification keeps the sequence.
	if precision := spec.Precision(nonce.Milliseconds); e.nonces == nil {
		e.nonces = nonce.New(nonce.WithPrecision(precision))
	} else {
		e.nonces.SetPrecision(precision)
	}
	private := sdkhttp.NewClient(sdkhttp.Config{
		Exchange:   spec.Name,
		BaseURL:    spec.SSLURI,
		Timeout:    spec.Timeout,
		RetryCount: spec.Retries(),
		ProxyURL:   spec.ProxyURL,
		Limits:     limits,
	})
	public := sdkhttp.NewClient(sdkhttp.Config{
		Exchange:   spec.Name,
		BaseURL:    spec.PublicURI,
		Timeout:    spec.Timeout,
		RetryCount: spec.Retries(),
		ProxyURL:   spec.ProxyURL,
		Limits:     limits,
	})

	e.spec = spec
	e.raw = newRaw(spec, e.nonces, private, public)
	e.trade = &tradeService{raw: e.raw, now: time.Now}
	e.account = &accountService{raw: e.raw}
	e.market = &marketDataService{raw: e.raw}
	return nil
}

func (e *Exchange) TradeService() exchange.TradeService           { return e.trade }
func (e *Exchange) AccountService() exchange.AccountService       { return e.account }
func (e *Exchange) MarketDataService() exchange.MarketDataService { return e.market }
func (e *Exchange) NonceFactory() nonce.Source                    { return e.nonces }

// Raw exposes the Cryptsy-specific calls the generic services do not cover.
func (e *Exchange) Raw() *Raw { return e.raw }
