// Command xchange talks to one configured exchange from the shell.
//
//	xchange -exchange cryptsy ticker LTC/BTC
//	xchange -exchange lakebtc buy BTC/USD 0.5 610.25
//	xchange -exchange lakebtc history 2014-03-01T00:00:00Z
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	_ "github.com/betbot/xchange/internal/exchanges/all"
	"github.com/betbot/xchange/pkg/config"
	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/logger"
)

const usage = `usage: xchange [-config file] -exchange name <command> [args]

commands:
  ticker PAIR                     last, bid, ask, high, low, volume
  book PAIR                       order book
  trades PAIR                     recent public trades
  account                         balances
  orders                          open orders
  buy PAIR AMOUNT [PRICE]         limit order, or market order without PRICE
  sell PAIR AMOUNT [PRICE]
  cancel ORDER_ID
  history [START [END]]           own fills, RFC3339 bounds
  deposit CURRENCY                deposit address
  withdraw CURRENCY AMOUNT ADDRESS
  nonce [N]                       draw N nonces from the exchange's factory
`

func main() {
	config.LoadDotEnv()

	var (
		configPath = flag.String("config", config.GetEnv("XCHANGE_CONFIG", "xchange.yaml"), "config file path")
		name       = flag.String("exchange", config.GetEnv("XCHANGE_DEFAULT", ""), "exchange name")
		timeout    = flag.Duration("timeout", time.Minute, "overall command timeout")
	)
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if *name == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	ex, err := openExchange(*configPath, *name)
	if err != nil {
		fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, ex, flag.Args()); err != nil {
		fatal(err)
	}
}

// openExchange builds name from the config file, falling back to defaults
// and environment when the file does not exist.
func openExchange(path, name string) (exchange.Exchange, error) {
	if _, err := os.Stat(path); err != nil {
		path = ""
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return nil, err
	}
	store, err := cfg.OpenSecretStore(true)
	if err != nil {
		return nil, err
	}
	if store != nil {
		err = cfg.ResolveSecrets(store)
		_ = store.Close()
		if err != nil {
			return nil, err
		}
	}
	spec, err := cfg.Specification(name)
	if err != nil {
		return nil, err
	}
	return exchange.New(spec)
}

func run(ctx context.Context, w io.Writer, ex exchange.Exchange, args []string) error {
	cmd, args := strings.ToLower(args[0]), args[1:]
	md, trade, account := ex.MarketDataService(), ex.TradeService(), ex.AccountService()

	switch cmd {
	case "ticker", "book", "trades":
		if len(args) != 1 {
			return errors.Errorf("%s needs PAIR", cmd)
		}
		pair, err := exchange.ParseCurrencyPair(args[0])
		if err != nil {
			return err
		}
		switch cmd {
		case "ticker":
			return printResult(w)(md.GetTicker(ctx, pair))
		case "book":
			return printResult(w)(md.GetOrderBook(ctx, pair))
		default:
			return printResult(w)(md.GetTrades(ctx, pair))
		}

	case "account":
		return printResult(w)(account.GetAccountInfo(ctx))

	case "orders":
		return printResult(w)(trade.GetOpenOrders(ctx))

	case "buy", "sell":
		return placeOrder(ctx, w, trade, cmd, args)

	case "cancel":
		if len(args) != 1 {
			return errors.New("cancel needs ORDER_ID")
		}
		return printResult(w)(trade.CancelOrder(ctx, args[0]))

	case "history":
		params := trade.CreateTradeHistoryParams()
		span, ok := params.(*exchange.AllParams)
		if !ok && len(args) > 0 {
			return errors.Errorf("%s does not accept a time span", ex.Name())
		}
		for i, arg := range args {
			t, err := time.Parse(time.RFC3339, arg)
			if err != nil {
				return errors.Wrapf(err, "history bound %q", arg)
			}
			if i == 0 {
				span.Start = t
			} else {
				span.End = t
			}
		}
		return printResult(w)(trade.GetTradeHistory(ctx, params))

	case "deposit":
		if len(args) != 1 {
			return errors.New("deposit needs CURRENCY")
		}
		return printResult(w)(account.RequestDepositAddress(ctx, strings.ToUpper(args[0])))

	case "withdraw":
		if len(args) != 3 {
			return errors.New("withdraw needs CURRENCY AMOUNT ADDRESS")
		}
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return errors.Wrap(err, "amount")
		}
		return printResult(w)(account.Withdraw(ctx, strings.ToUpper(args[0]), amount, args[2]))

	case "nonce":
		n := 1
		if len(args) > 0 {
			if _, err := fmt.Sscanf(args[0], "%d", &n); err != nil || n < 1 {
				return errors.Errorf("bad count %q", args[0])
			}
		}
		src := ex.NonceFactory()
		for i := 0; i < n; i++ {
			fmt.Fprintln(w, src.Next())
		}
		return nil

	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func placeOrder(ctx context.Context, w io.Writer, trade exchange.TradeService, cmd string, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errors.Errorf("%s needs PAIR AMOUNT [PRICE]", cmd)
	}
	side, err := exchange.ParseOrderType(cmd)
	if err != nil {
		return err
	}
	pair, err := exchange.ParseCurrencyPair(args[0])
	if err != nil {
		return err
	}
	amount, err := decimal.NewFromString(args[1])
	if err != nil {
		return errors.Wrap(err, "amount")
	}
	if len(args) == 2 {
		return printResult(w)(trade.PlaceMarketOrder(ctx, exchange.MarketOrder{
			Type: side, TradableAmount: amount, Pair: pair, Timestamp: time.Now(),
		}))
	}
	price, err := decimal.NewFromString(args[2])
	if err != nil {
		return errors.Wrap(err, "price")
	}
	return printResult(w)(trade.PlaceLimitOrder(ctx, exchange.LimitOrder{
		Type: side, TradableAmount: amount, Pair: pair, LimitPrice: price, Timestamp: time.Now(),
	}))
}

// printResult writes v as indented JSON unless err is set.
func printResult(w io.Writer) func(v any, err error) error {
	return func(v any, err error) error {
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func fatal(err error) {
	kind := exchange.KindOf(err)
	if kind != 0 {
		fmt.Fprintf(os.Stderr, "error (%s): %v\n", kind, err)
	} else {
		fmt.Fprintln(os.Stderr, "error:", err.Error())
	}
	os.Exit(1)
}
