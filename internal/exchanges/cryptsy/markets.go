package cryptsy

import (
	"context"
	"time"

	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
)

// marketTable maps Cryptsy's numeric market ids to currency pairs and back.
type marketTable struct {
	byPair map[exchange.CurrencyPair]string
	byID   map[string]exchange.CurrencyPair
	loaded time.Time
}

// A miss on a table older than this reloads it once; newly listed markets
// show up without waiting for the TTL.
const marketsMinRefresh = time.Minute

func newMarketTable() *marketTable {
	return &marketTable{
		byPair: map[exchange.CurrencyPair]string{},
		byID:   map[string]exchange.CurrencyPair{},
		loaded: time.Now(),
	}
}

func (t *marketTable) add(id string, pair exchange.CurrencyPair) {
	if id == "" || pair.Base == "" || pair.Counter == "" {
		return
	}
	t.byPair[pair] = id
	t.byID[id] = pair
}

// marketTable returns the cached id table, loading it when missing or
// stale. With credentials the private getmarkets call is used; without,
// the public market dump.
func (r *Raw) marketTable(ctx context.Context) (*marketTable, error) {
	return r.markets.GetOrLoad(marketsCacheKey, func() (*marketTable, error) {
		t := newMarketTable()
		if r.spec.HasCredentials() {
			markets, err := r.GetMarkets(ctx)
			if err != nil {
				return nil, err
			}
			for _, m := range markets {
				t.add(m.MarketID.String(), exchange.NewCurrencyPair(m.PrimaryCurrencyCode, m.SecondaryCurrencyCode))
			}
		} else {
			markets, err := r.MarketDataV2(ctx)
			if err != nil {
				return nil, err
			}
			for label, m := range markets {
				pair := exchange.NewCurrencyPair(m.PrimaryCode, m.SecondaryCode)
				if pair.Base == "" {
					if p, err := exchange.ParseCurrencyPair(label); err == nil {
						pair = p
					}
				}
				t.add(m.MarketID.String(), pair)
			}
		}
		logger.WithField("exchange", r.name).Debugf("loaded %d markets", len(t.byID))
		return t, nil
	})
}

// lookup runs find against the cached table, reloading it once on a miss
// if the table is old enough.
func (r *Raw) lookup(ctx context.Context, find func(*marketTable) bool) (bool, error) {
	t, err := r.marketTable(ctx)
	if err != nil {
		return false, err
	}
	if find(t) {
		return true, nil
	}
	if time.Since(t.loaded) < marketsMinRefresh {
		return false, nil
	}
	r.InvalidateMarkets()
	if t, err = r.marketTable(ctx); err != nil {
		return false, err
	}
	return find(t), nil
}

// MarketID resolves pair to Cryptsy's market id.
func (r *Raw) MarketID(ctx context.Context, pair exchange.CurrencyPair) (string, error) {
	var id string
	ok, err := r.lookup(ctx, func(t *marketTable) (found bool) {
		id, found = t.byPair[pair]
		return found
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", exchange.NewRejectedError(r.name, "marketid", "unknown currency pair "+pair.String())
	}
	return id, nil
}

// PairForMarket is the reverse of MarketID.
func (r *Raw) PairForMarket(ctx context.Context, marketID string) (exchange.CurrencyPair, error) {
	var pair exchange.CurrencyPair
	ok, err := r.lookup(ctx, func(t *marketTable) (found bool) {
		pair, found = t.byID[marketID]
		return found
	})
	if err != nil {
		return exchange.CurrencyPair{}, err
	}
	if !ok {
		return exchange.CurrencyPair{}, exchange.NewRejectedError(r.name, "marketid", "unknown market id "+marketID)
	}
	return pair, nil
}

// InvalidateMarkets drops the cached id table.
func (r *Raw) InvalidateMarkets() {
	r.markets.Delete(marketsCacheKey)
}
