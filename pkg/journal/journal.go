// Package journal records placed orders and fetched fills in SQLite so they
// survive restarts and can be listed without asking the exchange again.
package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/betbot/xchange/pkg/exchange"
)

// Order statuses.
const (
	StatusPlaced    = "placed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Fixed-width UTC timestamps so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Order kinds.
const (
	KindLimit  = "limit"
	KindMarket = "market"
)

type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates the database file and its directory if needed.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "mkdir journal dir")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// One connection: sqlite serializes writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db, now: time.Now}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// OrderRecord is one order attempt. Ref is assigned locally; OrderID is the
// exchange's id and stays empty when placement failed.
type OrderRecord struct {
	Ref       string                `json:"ref"`
	Exchange  string                `json:"exchange"`
	OrderID   string                `json:"order_id,omitempty"`
	Kind      string                `json:"kind"`
	Side      exchange.OrderType    `json:"side"`
	Pair      exchange.CurrencyPair `json:"pair"`
	Amount    decimal.Decimal       `json:"amount"`
	Price     *decimal.Decimal      `json:"price,omitempty"`
	Status    string                `json:"status"`
	Error     string                `json:"error,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// RecordOrder stores rec and returns its ref.
func (j *Journal) RecordOrder(ctx context.Context, rec OrderRecord) (string, error) {
	if rec.Ref == "" {
		rec.Ref = uuid.NewString()
	}
	now := j.now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	var price sql.NullString
	if rec.Price != nil {
		price = sql.NullString{String: rec.Price.String(), Valid: true}
	}
	_, err := j.db.ExecContext(ctx, `
INSERT INTO orders (ref,exchange,order_id,kind,side,pair,amount,price,status,error,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`, rec.Ref, strings.ToLower(rec.Exchange), rec.OrderID, rec.Kind, string(rec.Side), rec.Pair.String(),
		rec.Amount.String(), price, rec.Status, rec.Error,
		rec.CreatedAt.Format(timeLayout), rec.UpdatedAt.Format(timeLayout))
	if err != nil {
		return "", errors.Wrap(err, "insert order")
	}
	return rec.Ref, nil
}

// MarkCancelled flags the order with the given exchange id. It reports
// whether a journalled order matched.
func (j *Journal) MarkCancelled(ctx context.Context, exchangeName, orderID string) (bool, error) {
	res, err := j.db.ExecContext(ctx, `
UPDATE orders SET status=?, updated_at=? WHERE exchange=? AND order_id=?
`, StatusCancelled, j.now().UTC().Format(timeLayout), strings.ToLower(exchangeName), orderID)
	if err != nil {
		return false, errors.Wrap(err, "update order")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListOrders returns the newest orders first. An empty exchange lists all.
func (j *Journal) ListOrders(ctx context.Context, exchangeName string, limit int) ([]OrderRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT ref,exchange,order_id,kind,side,pair,amount,price,status,error,created_at,updated_at
FROM orders WHERE (?='' OR exchange=?) ORDER BY created_at DESC LIMIT ?
`, strings.ToLower(exchangeName), strings.ToLower(exchangeName), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	var out []OrderRecord
	for rows.Next() {
		var (
			rec                    OrderRecord
			orderID, price, errMsg sql.NullString
			side, pair, amount     string
			created, updated       string
		)
		if err := rows.Scan(&rec.Ref, &rec.Exchange, &orderID, &rec.Kind, &side, &pair, &amount, &price,
			&rec.Status, &errMsg, &created, &updated); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		rec.OrderID = orderID.String
		rec.Error = errMsg.String
		rec.Side = exchange.OrderType(side)
		rec.Pair, _ = exchange.ParseCurrencyPair(pair)
		rec.Amount, _ = decimal.NewFromString(amount)
		if price.Valid {
			p, err := decimal.NewFromString(price.String)
			if err == nil {
				rec.Price = &p
			}
		}
		rec.CreatedAt, _ = time.Parse(timeLayout, created)
		rec.UpdatedAt, _ = time.Parse(timeLayout, updated)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TradeRecord is a journalled fill.
type TradeRecord struct {
	Exchange string `json:"exchange"`
	exchange.UserTrade
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordTrades stores fills, ignoring ones already journalled for the same
// exchange and trade id. It returns how many were new.
func (j *Journal) RecordTrades(ctx context.Context, exchangeName string, trades []exchange.UserTrade) (int, error) {
	if len(trades) == 0 {
		return 0, nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR IGNORE INTO trades (exchange,trade_id,order_id,side,pair,amount,price,fee_amount,fee_currency,traded_at,recorded_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)
`)
	if err != nil {
		return 0, errors.Wrap(err, "prepare")
	}
	defer stmt.Close()

	recorded := j.now().UTC().Format(timeLayout)
	inserted := 0
	for _, t := range trades {
		if t.ID == "" {
			continue
		}
		res, err := stmt.ExecContext(ctx, strings.ToLower(exchangeName), t.ID, t.OrderID, string(t.Type), t.Pair.String(),
			t.TradableAmount.String(), t.Price.String(), t.FeeAmount.String(), t.FeeCurrency,
			t.Timestamp.UTC().Format(timeLayout), recorded)
		if err != nil {
			return 0, errors.Wrapf(err, "insert trade %s", t.ID)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return inserted, nil
}

// ListTrades returns the newest fills first. An empty exchange lists all.
func (j *Journal) ListTrades(ctx context.Context, exchangeName string, limit int) ([]TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx, `
SELECT exchange,trade_id,order_id,side,pair,amount,price,fee_amount,fee_currency,traded_at,recorded_at
FROM trades WHERE (?='' OR exchange=?) ORDER BY traded_at DESC LIMIT ?
`, strings.ToLower(exchangeName), strings.ToLower(exchangeName), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query trades")
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			rec                       TradeRecord
			orderID, feeCurrency      sql.NullString
			side, pair, amount, price string
			fee, traded, recordedAt   string
		)
		if err := rows.Scan(&rec.Exchange, &rec.ID, &orderID, &side, &pair, &amount, &price, &fee, &feeCurrency,
			&traded, &recordedAt); err != nil {
			return nil, errors.Wrap(err, "scan trade")
		}
		rec.OrderID = orderID.String
		rec.FeeCurrency = feeCurrency.String
		rec.Type = exchange.OrderType(side)
		rec.Pair, _ = exchange.ParseCurrencyPair(pair)
		rec.TradableAmount, _ = decimal.NewFromString(amount)
		rec.Price, _ = decimal.NewFromString(price)
		rec.FeeAmount, _ = decimal.NewFromString(fee)
		rec.Timestamp, _ = time.Parse(timeLayout, traded)
		rec.RecordedAt, _ = time.Parse(timeLayout, recordedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}
