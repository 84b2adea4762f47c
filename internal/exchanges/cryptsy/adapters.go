package cryptsy

import (
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/xchange/pkg/exchange"
)

func adaptOrderType(s string) exchange.OrderType {
	if strings.EqualFold(s, "buy") {
		return exchange.Bid
	}
	return exchange.Ask
}

func orderTypeParam(t exchange.OrderType) string {
	if t == exchange.Bid {
		return "Buy"
	}
	return "Sell"
}

func adaptOpenOrder(o Order, pair exchange.CurrencyPair) exchange.LimitOrder {
	return exchange.LimitOrder{
		Type:           adaptOrderType(o.OrderType),
		TradableAmount: o.Quantity,
		Pair:           pair,
		ID:             o.OrderID.String(),
		Timestamp:      o.Created.Time,
		LimitPrice:     o.Price,
	}
}

func adaptUserTrade(t UserTrade, pair exchange.CurrencyPair) exchange.UserTrade {
	return exchange.UserTrade{
		Type:           adaptOrderType(t.TradeType),
		TradableAmount: t.Quantity,
		Pair:           pair,
		Price:          t.TradePrice,
		Timestamp:      t.DateTime.Time,
		ID:             t.TradeID.String(),
		OrderID:        t.OrderID.String(),
		FeeAmount:      t.Fee,
		FeeCurrency:    pair.Counter,
	}
}

// adaptAccountInfo merges available and held balances into one wallet per
// currency, sorted by code.
func adaptAccountInfo(info *Info) *exchange.AccountInfo {
	wallets := map[string]*exchange.Wallet{}
	get := func(code string) *exchange.Wallet {
		code = strings.ToUpper(code)
		w, ok := wallets[code]
		if !ok {
			w = &exchange.Wallet{Currency: code}
			wallets[code] = w
		}
		return w
	}
	for code, amount := range info.BalancesAvailable {
		get(code).Available = amount
	}
	for code, amount := range info.BalancesHold {
		get(code).Frozen = amount
	}

	out := &exchange.AccountInfo{Wallets: make([]exchange.Wallet, 0, len(wallets))}
	for _, w := range wallets {
		out.Wallets = append(out.Wallets, *w)
	}
	sort.Slice(out.Wallets, func(i, j int) bool { return out.Wallets[i].Currency < out.Wallets[j].Currency })
	return out
}

func adaptTicker(m *PublicMarket, pair exchange.CurrencyPair) *exchange.Ticker {
	t := &exchange.Ticker{
		Pair:      pair,
		Last:      m.LastTradePrice,
		Volume:    m.Volume,
		Timestamp: m.LastTradeTime.Time,
	}
	if len(m.BuyOrders) > 0 {
		t.Bid = maxPrice(m.BuyOrders)
	}
	if len(m.SellOrders) > 0 {
		t.Ask = minPrice(m.SellOrders)
	}
	// No 24h range in the public feed; the recent tape is the best proxy.
	for i, tr := range m.RecentTrades {
		if i == 0 || tr.Price.GreaterThan(t.High) {
			t.High = tr.Price
		}
		if i == 0 || tr.Price.LessThan(t.Low) {
			t.Low = tr.Price
		}
	}
	return t
}

func maxPrice(levels []PublicOrder) decimal.Decimal {
	best := levels[0].Price
	for _, l := range levels[1:] {
		if l.Price.GreaterThan(best) {
			best = l.Price
		}
	}
	return best
}

func minPrice(levels []PublicOrder) decimal.Decimal {
	best := levels[0].Price
	for _, l := range levels[1:] {
		if l.Price.LessThan(best) {
			best = l.Price
		}
	}
	return best
}

func adaptOrderBook(m *PublicMarket, pair exchange.CurrencyPair) *exchange.OrderBook {
	levels := func(side exchange.OrderType, in []PublicOrder) []exchange.LimitOrder {
		out := make([]exchange.LimitOrder, 0, len(in))
		for _, o := range in {
			out = append(out, exchange.LimitOrder{
				Type:           side,
				TradableAmount: o.Quantity,
				Pair:           pair,
				LimitPrice:     o.Price,
			})
		}
		return out
	}
	return exchange.NewOrderBook(m.LastTradeTime.Time, levels(exchange.Ask, m.SellOrders), levels(exchange.Bid, m.BuyOrders))
}

func adaptTrades(m *PublicMarket, pair exchange.CurrencyPair) *exchange.Trades {
	out := &exchange.Trades{Trades: make([]exchange.Trade, 0, len(m.RecentTrades))}
	for _, t := range m.RecentTrades {
		out.Trades = append(out.Trades, exchange.Trade{
			Type:           adaptOrderType(t.Type),
			TradableAmount: t.Quantity,
			Pair:           pair,
			Price:          t.Price,
			Timestamp:      t.Time.Time,
			ID:             t.ID.String(),
		})
		if id, err := strconv.ParseInt(t.ID.String(), 10, 64); err == nil && id > out.LastID {
			out.LastID = id
		}
	}
	return out
}
