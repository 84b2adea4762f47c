package journal

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

func (j *Journal) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS orders (
  ref TEXT PRIMARY KEY,
  exchange TEXT NOT NULL,
  order_id TEXT,
  kind TEXT NOT NULL,
  side TEXT NOT NULL,
  pair TEXT NOT NULL,
  amount TEXT NOT NULL,
  price TEXT,
  status TEXT NOT NULL,
  error TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_exchange ON orders(exchange, created_at);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_order_id ON orders(exchange, order_id);`,
		`
CREATE TABLE IF NOT EXISTS trades (
  exchange TEXT NOT NULL,
  trade_id TEXT NOT NULL,
  order_id TEXT,
  side TEXT NOT NULL,
  pair TEXT NOT NULL,
  amount TEXT NOT NULL,
  price TEXT NOT NULL,
  fee_amount TEXT NOT NULL,
  fee_currency TEXT,
  traded_at TEXT NOT NULL,
  recorded_at TEXT NOT NULL,
  PRIMARY KEY (exchange, trade_id)
);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(exchange, traded_at);`,
	}
	for _, stmt := range stmts {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate journal")
		}
	}
	return nil
}
