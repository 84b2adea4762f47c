package cryptsy

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/betbot/xchange/pkg/exchange"
)

type accountService struct {
	raw *Raw
}

func (s *accountService) GetAccountInfo(ctx context.Context) (*exchange.AccountInfo, error) {
	info, err := s.raw.GetInfo(ctx)
	if err != nil {
		return nil, err
	}
	return adaptAccountInfo(info), nil
}

// RequestDepositAddress returns the existing address for currency if the
// account has one, otherwise asks Cryptsy for a new one.
func (s *accountService) RequestDepositAddress(ctx context.Context, currency string) (string, error) {
	currency = strings.ToUpper(currency)
	existing, err := s.raw.MyDepositAddresses(ctx)
	if err != nil {
		return "", err
	}
	if addr := existing[currency]; addr != "" {
		return addr, nil
	}
	return s.raw.GenerateNewAddress(ctx, currency)
}

// Withdraw sends to a pre-approved address; Cryptsy infers the currency
// from the address.
func (s *accountService) Withdraw(ctx context.Context, currency string, amount decimal.Decimal, address string) (string, error) {
	if !amount.IsPositive() {
		return "", exchange.NewRejectedError(s.raw.name, "makewithdrawal", "amount must be positive")
	}
	return s.raw.MakeWithdrawal(ctx, address, amount)
}
