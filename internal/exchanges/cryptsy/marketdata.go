package cryptsy

import (
	"context"

	"github.com/betbot/xchange/pkg/exchange"
)

type marketDataService struct {
	raw *Raw
}

func (s *marketDataService) GetTicker(ctx context.Context, pair exchange.CurrencyPair) (*exchange.Ticker, error) {
	m, err := s.market(ctx, pair)
	if err != nil {
		return nil, err
	}
	return adaptTicker(m, pair), nil
}

func (s *marketDataService) GetOrderBook(ctx context.Context, pair exchange.CurrencyPair) (*exchange.OrderBook, error) {
	id, err := s.raw.MarketID(ctx, pair)
	if err != nil {
		return nil, err
	}
	m, err := s.raw.SingleOrderData(ctx, id)
	if err != nil {
		return nil, err
	}
	return adaptOrderBook(m, pair), nil
}

func (s *marketDataService) GetTrades(ctx context.Context, pair exchange.CurrencyPair) (*exchange.Trades, error) {
	m, err := s.market(ctx, pair)
	if err != nil {
		return nil, err
	}
	return adaptTrades(m, pair), nil
}

func (s *marketDataService) market(ctx context.Context, pair exchange.CurrencyPair) (*PublicMarket, error) {
	id, err := s.raw.MarketID(ctx, pair)
	if err != nil {
		return nil, err
	}
	return s.raw.SingleMarketData(ctx, id)
}
