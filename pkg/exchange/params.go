package exchange

import "time"

// TradeHistoryParams is implemented by every parameter set an adapter may
// accept for GetTradeHistory. Adapters type-assert for the capabilities
// they support and ignore the rest.
type TradeHistoryParams interface{}

// TradeHistoryParamsTimeSpan restricts history to a time window. A zero
// bound means "unbounded on that side".
type TradeHistoryParamsTimeSpan interface {
	StartTime() time.Time
	EndTime() time.Time
}

type TradeHistoryParamsPaging interface {
	PageLength() int
	PageNumber() int
}

type TradeHistoryParamsCurrencyPair interface {
	CurrencyPair() CurrencyPair
}

type TimeSpanParams struct {
	Start time.Time
	End   time.Time
}

func (p *TimeSpanParams) StartTime() time.Time { return p.Start }
func (p *TimeSpanParams) EndTime() time.Time   { return p.End }

type PagingParams struct {
	Length int
	Number int
}

func (p *PagingParams) PageLength() int { return p.Length }
func (p *PagingParams) PageNumber() int { return p.Number }

type PairParams struct {
	Pair CurrencyPair
}

func (p *PairParams) CurrencyPair() CurrencyPair { return p.Pair }

// AllParams satisfies every capability at once.
type AllParams struct {
	TimeSpanParams
	PagingParams
	PairParams
}
