package exchange

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Ticker struct {
	Pair      CurrencyPair    `json:"pair"`
	Last      decimal.Decimal `json:"last"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderBook keeps asks ascending and bids descending by price.
type OrderBook struct {
	Timestamp time.Time    `json:"timestamp"`
	Asks      []LimitOrder `json:"asks"`
	Bids      []LimitOrder `json:"bids"`
}

// NewOrderBook sorts the levels into best-first order.
func NewOrderBook(ts time.Time, asks, bids []LimitOrder) *OrderBook {
	sort.SliceStable(asks, func(i, j int) bool { return asks[i].LimitPrice.LessThan(asks[j].LimitPrice) })
	sort.SliceStable(bids, func(i, j int) bool { return bids[i].LimitPrice.GreaterThan(bids[j].LimitPrice) })
	return &OrderBook{Timestamp: ts, Asks: asks, Bids: bids}
}

// Trade is a public trade printed on the exchange tape.
type Trade struct {
	Type           OrderType       `json:"type"`
	TradableAmount decimal.Decimal `json:"tradable_amount"`
	Pair           CurrencyPair    `json:"pair"`
	Price          decimal.Decimal `json:"price"`
	Timestamp      time.Time       `json:"timestamp"`
	ID             string          `json:"id"`
}

type Trades struct {
	Trades []Trade `json:"trades"`
	LastID int64   `json:"last_id"`
}
