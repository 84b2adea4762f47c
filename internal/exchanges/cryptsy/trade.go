package cryptsy

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
)

type tradeService struct {
	raw *Raw
	now func() time.Time
}

func (s *tradeService) GetOpenOrders(ctx context.Context) (*exchange.OpenOrders, error) {
	orders, err := s.raw.AllMyOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := &exchange.OpenOrders{Orders: make([]exchange.LimitOrder, 0, len(orders))}
	for _, o := range orders {
		pair, err := s.raw.PairForMarket(ctx, o.MarketID.String())
		if err != nil {
			if exchange.IsRejected(err) {
				logger.WithField("exchange", s.raw.name).Warnf("skipping order %s: %v", o.OrderID, err)
				continue
			}
			return nil, err
		}
		out.Orders = append(out.Orders, adaptOpenOrder(o, pair))
	}
	return out, nil
}

func (s *tradeService) PlaceMarketOrder(context.Context, exchange.MarketOrder) (string, error) {
	return "", exchange.NewUnsupportedError(s.raw.name, "PlaceMarketOrder")
}

func (s *tradeService) PlaceLimitOrder(ctx context.Context, order exchange.LimitOrder) (string, error) {
	marketID, err := s.raw.MarketID(ctx, order.Pair)
	if err != nil {
		return "", err
	}
	res, err := s.raw.CreateOrder(ctx, marketID, orderTypeParam(order.Type), order.TradableAmount, order.LimitPrice)
	if err != nil {
		return "", err
	}
	logger.WithField("exchange", s.raw.name).Infof("placed %s %s %s @ %s: order %s",
		order.Type, order.TradableAmount, order.Pair, order.LimitPrice, res.OrderID)
	return res.OrderID, nil
}

// CancelOrder needs Cryptsy's integer order id; anything else is rejected
// before a request is made.
func (s *tradeService) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(orderID), 10, 64)
	if err != nil {
		return false, exchange.NewRejectedError(s.raw.name, "cancelorder", "order id must be an integer: "+orderID)
	}
	if _, err := s.raw.CancelOrder(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

// GetTradeHistory understands time span and currency pair params. A missing
// window means everything from the epoch until now.
func (s *tradeService) GetTradeHistory(ctx context.Context, params exchange.TradeHistoryParams) (*exchange.UserTrades, error) {
	start, end := time.Unix(0, 0), s.now()
	if span, ok := params.(exchange.TradeHistoryParamsTimeSpan); ok {
		if !span.StartTime().IsZero() {
			start = span.StartTime()
		}
		if !span.EndTime().IsZero() {
			end = span.EndTime()
		}
	}
	var only exchange.CurrencyPair
	if p, ok := params.(exchange.TradeHistoryParamsCurrencyPair); ok {
		only = p.CurrencyPair()
	}

	trades, err := s.raw.AllMyTrades(ctx, start, end)
	if err != nil {
		return nil, err
	}
	out := &exchange.UserTrades{Trades: make([]exchange.UserTrade, 0, len(trades))}
	for _, t := range trades {
		pair, err := s.raw.PairForMarket(ctx, t.MarketID.String())
		if err != nil {
			if exchange.IsRejected(err) {
				logger.WithField("exchange", s.raw.name).Warnf("skipping trade %s: %v", t.TradeID, err)
				continue
			}
			return nil, err
		}
		if !only.IsZero() && pair != only {
			continue
		}
		out.Trades = append(out.Trades, adaptUserTrade(t, pair))
		if id, err := strconv.ParseInt(t.TradeID.String(), 10, 64); err == nil && id > out.LastID {
			out.LastID = id
		}
	}
	return out, nil
}

func (s *tradeService) CreateTradeHistoryParams() exchange.TradeHistoryParams {
	return &exchange.AllParams{}
}
