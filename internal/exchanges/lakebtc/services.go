package lakebtc

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
)

type marketDataService struct {
	raw *Raw
	now func() time.Time
}

func (s *marketDataService) counter(op string, pair exchange.CurrencyPair) (string, error) {
	c, ok := counterOf(pair)
	if !ok {
		return "", exchange.NewRejectedError(s.raw.name, op, "unsupported currency pair "+pair.String())
	}
	return c, nil
}

func (s *marketDataService) GetTicker(ctx context.Context, pair exchange.CurrencyPair) (*exchange.Ticker, error) {
	counter, err := s.counter("ticker", pair)
	if err != nil {
		return nil, err
	}
	tickers, err := s.raw.GetTicker(ctx)
	if err != nil {
		return nil, err
	}
	entry := tickers.USD
	if counter == exchange.CNY {
		entry = tickers.CNY
	}
	return adaptTicker(entry, pair, s.now()), nil
}

func (s *marketDataService) GetOrderBook(ctx context.Context, pair exchange.CurrencyPair) (*exchange.OrderBook, error) {
	counter, err := s.counter("orderbook", pair)
	if err != nil {
		return nil, err
	}
	book, err := s.raw.GetOrderBook(ctx, counter)
	if err != nil {
		return nil, err
	}
	return adaptOrderBook(book, pair, s.now()), nil
}

func (s *marketDataService) GetTrades(ctx context.Context, pair exchange.CurrencyPair) (*exchange.Trades, error) {
	counter, err := s.counter("trades", pair)
	if err != nil {
		return nil, err
	}
	trades, err := s.raw.GetPublicTrades(ctx, counter)
	if err != nil {
		return nil, err
	}
	return adaptTrades(trades, pair), nil
}

type accountService struct {
	raw *Raw
}

func (s *accountService) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	info, err := s.raw.GetAccountInfo(ctx)
	if err != nil {
		return nil, err
	}
	return adaptAccountInfo(info), nil
}

func (s *accountService) RequestDepositAddress(context.Context, string) (string, error) {
	return "", exchange.NewUnsupportedError(s.raw.name, "RequestDepositAddress")
}

func (s *accountService) Withdraw(context.Context, string, decimal.Decimal, string) (string, error) {
	return "", exchange.NewUnsupportedError(s.raw.name, "Withdraw")
}

type tradeService struct {
	raw *Raw
}

func (s *tradeService) GetOpenOrders(ctx context.Context) (*exchange.OpenOrders, error) {
	orders, err := s.raw.GetOrders(ctx)
	if err != nil {
		return nil, err
	}
	return adaptOpenOrders(orders), nil
}

func (s *tradeService) PlaceMarketOrder(context.Context, exchange.MarketOrder) (string, error) {
	return "", exchange.NewUnsupportedError(s.raw.name, "PlaceMarketOrder")
}

func (s *tradeService) PlaceLimitOrder(ctx context.Context, order exchange.LimitOrder) (string, error) {
	counter, ok := counterOf(order.Pair)
	if !ok {
		return "", exchange.NewRejectedError(s.raw.name, "placeOrder", "unsupported currency pair "+order.Pair.String())
	}

	var (
		res *OrderResponse
		err error
	)
	if order.Type == exchange.Bid {
		res, err = s.raw.BuyOrder(ctx, order.LimitPrice, order.TradableAmount, counter)
	} else {
		res, err = s.raw.SellOrder(ctx, order.LimitPrice, order.TradableAmount, counter)
	}
	if err != nil {
		return "", err
	}
	logger.WithField("exchange", s.raw.name).Infof("placed %s %s %s @ %s: order %d",
		order.Type, order.TradableAmount, order.Pair, order.LimitPrice, res.ID)
	return res.ID.String(), nil
}

func (s *tradeService) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return false, exchange.NewRejectedError(s.raw.name, "cancelOrder", "order id is required")
	}
	res, err := s.raw.CancelOrder(ctx, orderID)
	if err != nil {
		return false, err
	}
	return res.Result, nil
}

// GetTradeHistory asks for trades since the span's start (or the epoch) and
// drops anything after its end. A pair param narrows the result further.
func (s *tradeService) GetTradeHistory(ctx context.Context, params exchange.TradeHistoryParams) (*exchange.UserTrades, error) {
	var since int64
	var end time.Time
	if span, ok := params.(exchange.TradeHistoryParamsTimeSpan); ok {
		if !span.StartTime().IsZero() {
			since = span.StartTime().Unix()
		}
		end = span.EndTime()
	}
	var only exchange.CurrencyPair
	if p, ok := params.(exchange.TradeHistoryParamsCurrencyPair); ok {
		only = p.CurrencyPair()
	}

	trades, err := s.raw.GetTrades(ctx, since)
	if err != nil {
		return nil, err
	}
	out := &exchange.UserTrades{Trades: make([]exchange.UserTrade, 0, len(trades))}
	for _, t := range trades {
		ut := adaptUserTrade(t)
		if !end.IsZero() && ut.Timestamp.After(end) {
			continue
		}
		if !only.IsZero() && ut.Pair != only {
			continue
		}
		out.Trades = append(out.Trades, ut)
		if int64(t.ID) > out.LastID {
			out.LastID = int64(t.ID)
		}
	}
	return out, nil
}

func (s *tradeService) CreateTradeHistoryParams() exchange.TradeHistoryParams {
	return &exchange.AllParams{}
}
