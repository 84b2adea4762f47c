package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/betbot/xchange/internal/controlplane/server"
	_ "github.com/betbot/xchange/internal/exchanges/all"
	"github.com/betbot/xchange/internal/metrics"
	"github.com/betbot/xchange/pkg/config"
	"github.com/betbot/xchange/pkg/exchange"
	"github.com/betbot/xchange/pkg/journal"
	"github.com/betbot/xchange/pkg/logger"
	"github.com/betbot/xchange/pkg/shutdown"
)

func main() {
	// .env is best-effort; real env vars still apply.
	config.LoadDotEnv()

	var (
		configPath  = flag.String("config", config.GetEnv("XCHANGE_CONFIG", "xchange.yaml"), "config file path")
		listenAddr  = flag.String("listen", "", "HTTP listen address (overrides config)")
		dbPath      = flag.String("db", "", "journal sqlite path (overrides config)")
		metricsAddr = flag.String("metrics", config.GetEnv("XCHANGE_METRICS_LISTEN", ""), "expvar/pprof listen address, empty disables")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		logger.Errorf("init logger: %v", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.Listen = *listenAddr
	}
	if *dbPath != "" {
		cfg.Journal.Path = *dbPath
	}

	if err := resolveSecrets(cfg); err != nil {
		logger.Errorf("secrets: %v", err)
		os.Exit(1)
	}

	exchanges := map[string]exchange.Exchange{}
	for _, name := range cfg.ExchangeNames() {
		spec, err := cfg.Specification(name)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		ex, err := exchange.New(spec)
		if err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		exchanges[name] = ex
		logger.Infof("exchange %s ready (credentials: %t)", ex.Name(), ex.Specification().HasCredentials())
	}

	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		logger.Errorf("open journal: %v", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Exchanges:      exchanges,
		Journal:        j,
		MaxOrderErrors: cfg.Server.MaxOrderErrors,
	})
	if err != nil {
		logger.Errorf("init server failed: %v", err)
		os.Exit(1)
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()
	if *metricsAddr != "" {
		if _, err := metrics.StartAsync(rootCtx, *metricsAddr); err != nil {
			logger.Errorf("%v", err)
			os.Exit(1)
		}
		logger.Infof("metrics listening on %s", *metricsAddr)
	}

	sm := shutdown.NewManager()
	sm.OnShutdown("http", func(ctx context.Context) { _ = httpSrv.Shutdown(ctx) })
	sm.OnShutdown("journal", func(context.Context) { _ = j.Close() })

	go func() {
		logger.Infof("xchange server listening on %s", cfg.Server.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	<-stopCh

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	cancelRoot()
	sm.Shutdown(ctx)
}

// resolveSecrets fills credential gaps from the Badger store when one is
// configured. The store is only needed during startup.
func resolveSecrets(cfg *config.Config) error {
	store, err := cfg.OpenSecretStore(true)
	if err != nil || store == nil {
		return err
	}
	defer store.Close()
	return cfg.ResolveSecrets(store)
}
