package exchange

import (
	"fmt"
	"strings"
)

// Common currency codes.
const (
	BTC  = "BTC"
	LTC  = "LTC"
	DOGE = "DOGE"
	USD  = "USD"
	CNY  = "CNY"
)

// CurrencyPair is a tradable pair: Base is what is bought or sold, Counter is
// what it is priced in.
type CurrencyPair struct {
	Base    string `json:"base"`
	Counter string `json:"counter"`
}

var (
	BTCUSD  = NewCurrencyPair(BTC, USD)
	BTCCNY  = NewCurrencyPair(BTC, CNY)
	LTCBTC  = NewCurrencyPair(LTC, BTC)
	DOGEBTC = NewCurrencyPair(DOGE, BTC)
)

func NewCurrencyPair(base, counter string) CurrencyPair {
	return CurrencyPair{
		Base:    strings.ToUpper(strings.TrimSpace(base)),
		Counter: strings.ToUpper(strings.TrimSpace(counter)),
	}
}

// ParseCurrencyPair accepts "BTC/USD", "btc_usd" and "BTC-USD".
func ParseCurrencyPair(s string) (CurrencyPair, error) {
	s = strings.TrimSpace(s)
	for _, sep := range []string{"/", "_", "-"} {
		if parts := strings.Split(s, sep); len(parts) == 2 {
			p := NewCurrencyPair(parts[0], parts[1])
			if p.Base == "" || p.Counter == "" {
				break
			}
			return p, nil
		}
	}
	return CurrencyPair{}, fmt.Errorf("invalid currency pair %q", s)
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Counter
}

func (p CurrencyPair) IsZero() bool {
	return p.Base == "" && p.Counter == ""
}
