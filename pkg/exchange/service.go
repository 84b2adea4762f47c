package exchange

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/betbot/xchange/pkg/nonce"
)

// TradeService places and manages orders for the authenticated account.
type TradeService interface {
	GetOpenOrders(ctx context.Context) (*OpenOrders, error)
	PlaceMarketOrder(ctx context.Context, order MarketOrder) (string, error)
	PlaceLimitOrder(ctx context.Context, order LimitOrder) (string, error)
	CancelOrder(ctx context.Context, orderID string) (bool, error)
	GetTradeHistory(ctx context.Context, params TradeHistoryParams) (*UserTrades, error)
	// CreateTradeHistoryParams returns the parameter type this exchange
	// understands best, ready to be filled in.
	CreateTradeHistoryParams() TradeHistoryParams
}

type AccountService interface {
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)
	RequestDepositAddress(ctx context.Context, currency string) (string, error)
	Withdraw(ctx context.Context, currency string, amount decimal.Decimal, address string) (string, error)
}

// MarketDataService needs no credentials.
type MarketDataService interface {
	GetTicker(ctx context.Context, pair CurrencyPair) (*Ticker, error)
	GetOrderBook(ctx context.Context, pair CurrencyPair) (*OrderBook, error)
	GetTrades(ctx context.Context, pair CurrencyPair) (*Trades, error)
}

// Exchange bundles one venue's services behind a single specification.
type Exchange interface {
	Name() string
	DefaultSpecification() Specification
	Specification() Specification
	ApplySpecification(spec Specification) error

	TradeService() TradeService
	AccountService() AccountService
	MarketDataService() MarketDataService

	// NonceFactory is shared by every signed call this exchange makes.
	NonceFactory() nonce.Source
}
