package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wattmart/gowatt/internal/feed"
	"github.com/wattmart/gowatt/internal/gateway"
	"github.com/wattmart/gowatt/internal/journal"
	"github.com/wattmart/gowatt/internal/marketplace"
	"github.com/wattmart/gowatt/internal/trade"
	"github.com/wattmart/gowatt/internal/wallet"
	"github.com/wattmart/gowatt/pkg/config"
	"github.com/wattmart/gowatt/pkg/kvstore"
	"github.com/wattmart/gowatt/pkg/logger"
)

func main() {
	configPath := flag.String("config", "gowatt.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid config: %v", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logger.Errorf("init logger: %v", err)
		os.Exit(1)
	}

	kv, err := kvstore.Open(kvstore.OpenOptions{Path: cfg.DataDir + "/listings"})
	if err != nil {
		logger.Errorf("open listing store: %v", err)
		os.Exit(1)
	}
	defer kv.Close()

	jnl, err := journal.Open(cfg.JournalPath)
	if err != nil {
		logger.Errorf("open journal: %v", err)
		os.Exit(1)
	}
	defer jnl.Close()

	provider, err := wallet.NewKeyWallet(cfg.Chain)
	if err != nil {
		logger.Errorf("init wallet: %v", err)
		os.Exit(1)
	}

	contract, err := trade.NewContract(cfg.Chain.ContractAddress, provider)
	if err != nil {
		logger.Errorf("init contract: %v", err)
		os.Exit(1)
	}

	store := marketplace.NewKVListingStore(kv)
	feedClient := feed.NewClient(cfg.Feed)
	repo := marketplace.NewRepository(store, feedClient)
	editor := marketplace.NewEditor(store)
	orch := trade.NewOrchestrator(provider, contract, jnl, cfg.Chain.FallbackGas)

	srv := gateway.New(repo, editor, orch, contract, jnl, provider)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Gateway.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Infof("gateway listening on %s", cfg.Gateway.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("http server error: %v", err)
		}
	}()

	// Connect eagerly so the first purchase does not pay the dial latency.
	// Failure is fine: purchases retry the connect step on demand.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := provider.Connect(ctx); err != nil {
			logger.Warnf("wallet connect deferred: %v", err)
		}
	}()

	// Warm the feed cache in the background on the same cadence the cache
	// expires, so interactive requests rarely block on the feed.
	refreshCtx, stopRefresh := context.WithCancel(context.Background())
	go refreshLoop(refreshCtx, repo, cfg.Feed.CacheTTL)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM)
	<-stopCh

	stopRefresh()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
	logger.Info("gowatt stopped")
}

func refreshLoop(ctx context.Context, repo *marketplace.Repository, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := repo.Listings(ctx); err != nil {
			logger.Warnf("background refresh: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
