package exchange

import "github.com/shopspring/decimal"

// Wallet is the balance of one currency.
type Wallet struct {
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Frozen    decimal.Decimal `json:"frozen"`
}

func (w Wallet) Total() decimal.Decimal {
	return w.Available.Add(w.Frozen)
}

type AccountInfo struct {
	Username string   `json:"username,omitempty"`
	Wallets  []Wallet `json:"wallets"`
}

// Wallet returns the wallet for currency, or a zero wallet if the account
// holds none.
func (a *AccountInfo) Wallet(currency string) Wallet {
	for _, w := range a.Wallets {
		if w.Currency == currency {
			return w
		}
	}
	return Wallet{Currency: currency}
}
