package lakebtc

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// flexInt decodes ids and timestamps sent either as numbers or strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		b = []byte(s)
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		// Some fields arrive as floats ("1402402020.0").
		fv, ferr := strconv.ParseFloat(string(b), 64)
		if ferr != nil {
			return err
		}
		v = int64(fv)
	}
	*f = flexInt(v)
	return nil
}

func (f flexInt) String() string { return strconv.FormatInt(int64(f), 10) }

// TickerEntry is one currency section of /ticker.
type TickerEntry struct {
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Last   decimal.Decimal `json:"last"`
	Volume decimal.Decimal `json:"vol"`
	Sell   decimal.Decimal `json:"sell"`
	Buy    decimal.Decimal `json:"buy"`
}

// Tickers is the /ticker payload, keyed by counter currency.
type Tickers struct {
	USD TickerEntry `json:"USD"`
	CNY TickerEntry `json:"CNY"`
}

// OrderBook levels are [price, amount].
type OrderBook struct {
	Asks [][2]decimal.Decimal `json:"asks"`
	Bids [][2]decimal.Decimal `json:"bids"`
}

type PublicTrade struct {
	Date   flexInt         `json:"date"`
	Price  decimal.Decimal `json:"price"`
	Amount decimal.Decimal `json:"amount"`
	TID    flexInt         `json:"tid"`
}

type Profile struct {
	Email             string `json:"email"`
	UID               string `json:"uid"`
	BTCDepositAddress string `json:"btc_deposit_addres"`
}

// AccountInfo is the getAccountInfo result.
type AccountInfo struct {
	Balance map[string]decimal.Decimal `json:"balance"`
	Locked  map[string]decimal.Decimal `json:"locked"`
	Profile Profile                    `json:"profile"`
}

// Order is one entry of getOrders.
type Order struct {
	ID       flexInt         `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"` // "buy" or "sell"
	Status   string          `json:"status"`
	At       flexInt         `json:"at"`
	Currency string          `json:"currency"`
}

// UserTrade is one entry of getTrades.
type UserTrade struct {
	Type     string          `json:"type"`
	Date     flexInt         `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Total    decimal.Decimal `json:"total"`
	ID       flexInt         `json:"id"`
	Currency string          `json:"currency"`
}

// OrderResponse is what buyOrder and sellOrder return.
type OrderResponse struct {
	ID     flexInt `json:"id"`
	Result string  `json:"result"`
}

type CancelResponse struct {
	Result bool `json:"result"`
}

type rpcRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

// rpcError is probed on every private response before decoding the result.
type rpcError struct {
	Error json.RawMessage `json:"error"`
}
