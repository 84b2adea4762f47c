package cryptsy

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Cryptsy reports times in its server zone, US Eastern without DST.
var serverZone = time.FixedZone("EST", -5*60*60)

const timeLayout = "2006-01-02 15:04:05"

// flexString decodes both JSON strings and JSON numbers; Cryptsy mixes them
// freely for ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(b)
	return nil
}

func (f flexString) String() string { return string(f) }

// flexBool decodes "1", 1, true as true.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	switch string(s) {
	case "1", "true":
		*f = true
	default:
		*f = false
	}
	return nil
}

// cryptsyTime decodes "2014-02-24 21:01:40" in server time.
type cryptsyTime struct{ time.Time }

func (t *cryptsyTime) UnmarshalJSON(b []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(b); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(timeLayout, string(s), serverZone)
	if err != nil {
		if secs, convErr := strconv.ParseInt(string(s), 10, 64); convErr == nil {
			t.Time = time.Unix(secs, 0)
			return nil
		}
		return err
	}
	t.Time = parsed
	return nil
}

// envelope wraps every private and public response.
type envelope struct {
	Success  flexBool        `json:"success"`
	Error    string          `json:"error"`
	Return   json.RawMessage `json:"return"`
	OrderID  flexString      `json:"orderid"`
	MoreInfo string          `json:"moreinfo"`
}

// Info is the getinfo payload.
type Info struct {
	BalancesAvailable map[string]decimal.Decimal `json:"balances_available"`
	BalancesHold      map[string]decimal.Decimal `json:"balances_hold"`
	ServerTimestamp   int64                      `json:"servertimestamp"`
	ServerTimezone    string                     `json:"servertimezone"`
	ServerDateTime    string                     `json:"serverdatetime"`
	OpenOrderCount    int                        `json:"openordercount"`
}

// Market is one entry of getmarkets.
type Market struct {
	MarketID              flexString      `json:"marketid"`
	Label                 string          `json:"label"`
	PrimaryCurrencyCode   string          `json:"primary_currency_code"`
	PrimaryCurrencyName   string          `json:"primary_currency_name"`
	SecondaryCurrencyCode string          `json:"secondary_currency_code"`
	SecondaryCurrencyName string          `json:"secondary_currency_name"`
	CurrentVolume         decimal.Decimal `json:"current_volume"`
	LastTrade             decimal.Decimal `json:"last_trade"`
	HighTrade             decimal.Decimal `json:"high_trade"`
	LowTrade              decimal.Decimal `json:"low_trade"`
	Created               cryptsyTime     `json:"created"`
}

// Order is one entry of myorders / allmyorders.
type Order struct {
	OrderID      flexString      `json:"orderid"`
	MarketID     flexString      `json:"marketid"`
	Created      cryptsyTime     `json:"created"`
	OrderType    string          `json:"ordertype"`
	Price        decimal.Decimal `json:"price"`
	Quantity     decimal.Decimal `json:"quantity"`
	OrigQuantity decimal.Decimal `json:"orig_quantity"`
	Total        decimal.Decimal `json:"total"`
}

// UserTrade is one entry of mytrades / allmytrades.
type UserTrade struct {
	TradeID           flexString      `json:"tradeid"`
	TradeType         string          `json:"tradetype"`
	DateTime          cryptsyTime     `json:"datetime"`
	MarketID          flexString      `json:"marketid"`
	TradePrice        decimal.Decimal `json:"tradeprice"`
	Quantity          decimal.Decimal `json:"quantity"`
	Fee               decimal.Decimal `json:"fee"`
	Total             decimal.Decimal `json:"total"`
	InitiateOrderType string          `json:"initiate_ordertype"`
	OrderID           flexString      `json:"order_id"`
}

// PlaceOrderResult is what createorder reports.
type PlaceOrderResult struct {
	OrderID  string
	MoreInfo string
}

// Fees is the calculatefees payload.
type Fees struct {
	Fee decimal.Decimal `json:"fee"`
	Net decimal.Decimal `json:"net"`
}

type depositAddress struct {
	Address string `json:"address"`
}

// PublicOrder is a level of the public order book.
type PublicOrder struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// PublicTrade is an entry of a market's recent trades.
type PublicTrade struct {
	ID       flexString      `json:"id"`
	Time     cryptsyTime     `json:"time"`
	Type     string          `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// PublicMarket is a market as reported by the public API.
type PublicMarket struct {
	MarketID       flexString      `json:"marketid"`
	Label          string          `json:"label"`
	LastTradePrice decimal.Decimal `json:"lasttradeprice"`
	Volume         decimal.Decimal `json:"volume"`
	LastTradeTime  cryptsyTime     `json:"lasttradetime"`
	PrimaryName    string          `json:"primaryname"`
	PrimaryCode    string          `json:"primarycode"`
	SecondaryName  string          `json:"secondaryname"`
	SecondaryCode  string          `json:"secondarycode"`
	RecentTrades   []PublicTrade   `json:"recenttrades"`
	SellOrders     []PublicOrder   `json:"sellorders"`
	BuyOrders      []PublicOrder   `json:"buyorders"`
}

type publicMarkets struct {
	Markets map[string]PublicMarket `json:"markets"`
}
