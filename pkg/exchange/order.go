package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the side of an order.
type OrderType string

const (
	Bid OrderType = "BID" // buy
	Ask OrderType = "ASK" // sell
)

// ParseOrderType maps the usual spellings ("buy", "bid", "sell", "ask") to a side.
func ParseOrderType(s string) (OrderType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "bid":
		return Bid, nil
	case "sell", "ask":
		return Ask, nil
	default:
		return "", fmt.Errorf("invalid order side %q", s)
	}
}

// LimitOrder is an order with a price limit. It is also used for order book
// levels and open orders.
type LimitOrder struct {
	Type           OrderType       `json:"type"`
	TradableAmount decimal.Decimal `json:"tradable_amount"`
	Pair           CurrencyPair    `json:"pair"`
	ID             string          `json:"id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	LimitPrice     decimal.Decimal `json:"limit_price"`
}

// MarketOrder executes at whatever the book offers.
type MarketOrder struct {
	Type           OrderType       `json:"type"`
	TradableAmount decimal.Decimal `json:"tradable_amount"`
	Pair           CurrencyPair    `json:"pair"`
	ID             string          `json:"id,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
}

type OpenOrders struct {
	Orders []LimitOrder `json:"orders"`
}

// UserTrade is a fill on one of the account's own orders.
type UserTrade struct {
	Type           OrderType       `json:"type"`
	TradableAmount decimal.Decimal `json:"tradable_amount"`
	Pair           CurrencyPair    `json:"pair"`
	Price          decimal.Decimal `json:"price"`
	Timestamp      time.Time       `json:"timestamp"`
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id,omitempty"`
	FeeAmount      decimal.Decimal `json:"fee_amount"`
	FeeCurrency    string          `json:"fee_currency,omitempty"`
}

type UserTrades struct {
	Trades []UserTrade `json:"trades"`
	LastID int64       `json:"last_id"`
}
