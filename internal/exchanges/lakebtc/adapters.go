package lakebtc

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/xchange/pkg/exchange"
)

// counterOf returns the counter currency LakeBTC uses for pair, or false if
// the pair is not traded there.
func counterOf(pair exchange.CurrencyPair) (string, bool) {
	switch pair {
	case exchange.BTCUSD:
		return exchange.USD, true
	case exchange.BTCCNY:
		return exchange.CNY, true
	}
	return "", false
}

// pairOf maps the optional currency field on orders and trades. LakeBTC
// omits it for its original USD book.
func pairOf(currency string) exchange.CurrencyPair {
	if strings.EqualFold(currency, exchange.CNY) {
		return exchange.BTCCNY
	}
	return exchange.BTCUSD
}

func adaptOrderType(s string) exchange.OrderType {
	if strings.EqualFold(s, "buy") {
		return exchange.Bid
	}
	return exchange.Ask
}

func adaptTicker(e TickerEntry, pair exchange.CurrencyPair, ts time.Time) *exchange.Ticker {
	return &exchange.Ticker{
		Pair:      pair,
		Last:      e.Last,
		Bid:       e.Buy,
		Ask:       e.Sell,
		High:      e.High,
		Low:       e.Low,
		Volume:    e.Volume,
		Timestamp: ts,
	}
}

func adaptOrderBook(b *OrderBook, pair exchange.CurrencyPair, ts time.Time) *exchange.OrderBook {
	levels := func(side exchange.OrderType, in [][2]decimal.Decimal) []exchange.LimitOrder {
		out := make([]exchange.LimitOrder, 0, len(in))
		for _, l := range in {
			out = append(out, exchange.LimitOrder{
				Type:           side,
				TradableAmount: l[1],
				Pair:           pair,
				Timestamp:      ts,
				LimitPrice:     l[0],
			})
		}
		return out
	}
	return exchange.NewOrderBook(ts, levels(exchange.Ask, b.Asks), levels(exchange.Bid, b.Bids))
}

func adaptTrades(in []PublicTrade, pair exchange.CurrencyPair) *exchange.Trades {
	out := &exchange.Trades{Trades: make([]exchange.Trade, 0, len(in))}
	for _, t := range in {
		out.Trades = append(out.Trades, exchange.Trade{
			TradableAmount: t.Amount,
			Pair:           pair,
			Price:          t.Price,
			Timestamp:      time.Unix(int64(t.Date), 0),
			ID:             t.TID.String(),
		})
		if int64(t.TID) > out.LastID {
			out.LastID = int64(t.TID)
		}
	}
	return out
}

func adaptAccountInfo(info *AccountInfo) *exchange.AccountInfo {
	codes := map[string]struct{}{}
	for c := range info.Balance {
		codes[strings.ToUpper(c)] = struct{}{}
	}
	for c := range info.Locked {
		codes[strings.ToUpper(c)] = struct{}{}
	}
	lookup := func(m map[string]decimal.Decimal, code string) decimal.Decimal {
		for k, v := range m {
			if strings.EqualFold(k, code) {
				return v
			}
		}
		return decimal.Decimal{}
	}

	out := &exchange.AccountInfo{Username: info.Profile.Email, Wallets: make([]exchange.Wallet, 0, len(codes))}
	for code := range codes {
		out.Wallets = append(out.Wallets, exchange.Wallet{
			Currency:  code,
			Available: lookup(info.Balance, code),
			Frozen:    lookup(info.Locked, code),
		})
	}
	sort.Slice(out.Wallets, func(i, j int) bool { return out.Wallets[i].Currency < out.Wallets[j].Currency })
	return out
}

func adaptOpenOrders(in []Order) *exchange.OpenOrders {
	out := &exchange.OpenOrders{Orders: make([]exchange.LimitOrder, 0, len(in))}
	for _, o := range in {
		out.Orders = append(out.Orders, exchange.LimitOrder{
			Type:           adaptOrderType(o.Category),
			TradableAmount: o.Amount,
			Pair:           pairOf(o.Currency),
			ID:             o.ID.String(),
			Timestamp:      time.Unix(int64(o.At), 0),
			LimitPrice:     o.Price,
		})
	}
	return out
}

// adaptUserTrade derives the price from total/amount; getTrades reports no
// price of its own.
func adaptUserTrade(t UserTrade) exchange.UserTrade {
	pair := pairOf(t.Currency)
	price := decimal.Decimal{}
	if !t.Amount.IsZero() {
		price = t.Total.Div(t.Amount).Abs()
	}
	return exchange.UserTrade{
		Type:           adaptOrderType(t.Type),
		TradableAmount: t.Amount.Abs(),
		Pair:           pair,
		Price:          price,
		Timestamp:      time.Unix(int64(t.Date), 0),
		ID:             t.ID.String(),
		FeeCurrency:    pair.Counter,
	}
}
