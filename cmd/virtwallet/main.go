package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"

	"virtwallet/internal/account"
	"virtwallet/internal/api"
	"virtwallet/internal/cache"
	"virtwallet/internal/config"
	"virtwallet/internal/datasync"
	"virtwallet/internal/debounce"
	"virtwallet/internal/events"
	applog "virtwallet/internal/log"
	"virtwallet/internal/notify"
	"virtwallet/internal/wallet"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logHandler := applog.NewHandler(applog.ParseLevel(cfg.LogLevel))
	logger := applog.For(logHandler, applog.ComponentApp)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	// Choose cache backend (default: sqlite for durability across runs)
	var store cache.Store
	switch cfg.CacheBackend {
	case "sqlite":
		sqliteStore, err := cache.NewSQLite(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite cache", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		store = sqliteStore
		logger.Info("Initialized sqlite cache backend", "path", cfg.SQLiteDBPath)
	default:
		store = cache.NewMemory()
		logger.Info("Initialized memory cache backend")
	}

	tokens := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: os.Getenv("API_TOKEN")})
	client, err := api.NewClient(cfg.APIBaseURL, tokens,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(applog.For(logHandler, applog.ComponentAPI)))
	if err != nil {
		logger.Error("Failed to initialize API client", "error", err, "base_url", cfg.APIBaseURL)
		os.Exit(1)
	}

	// Initialize AMQP invalidation bus (optional)
	var publisher events.Publisher = events.Nop{}
	var bus *events.AMQPClient
	if cfg.AMQPURL != "" {
		bus, err = events.NewAMQPClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		publisher = bus
		logger.Info("Initialized AMQP invalidation bus", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP invalidation bus disabled - no AMQP_URL provided")
	}

	engine := datasync.NewEngine(store, client,
		datasync.WithEvents(publisher),
		datasync.WithLogger(applog.For(logHandler, applog.ComponentSync)))

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	messages := notify.HandlerFunc(func(messageKey string) {
		logger.Info("notification", "message", messageKey)
	})

	// Warm the cache: accounts first, then every wallet the user owns.
	accounts, err := account.NewLoader(engine, messages, applog.For(logHandler, applog.ComponentAccount)).LoadAll(ctx)
	if err != nil {
		logger.Error("Failed to load accounts", "error", err)
		os.Exit(1)
	}
	logger.Info("Accounts loaded", "count", len(accounts))

	walletLoader := wallet.NewLoader(engine, messages, applog.For(logHandler, applog.ComponentWallet))
	wallets, err := walletLoader.LoadAll(ctx)
	if err != nil {
		logger.Error("Failed to load wallets", "error", err)
		os.Exit(1)
	}
	logger.Info("Wallets loaded", "count", len(wallets))

	// Apply invalidations published by other devices until shutdown.
	// Invalidations arrive in bursts (one per key); debounce the re-warm
	// so a burst triggers a single reload once the bus goes quiet.
	if bus != nil {
		rewarm := debounce.New(2 * time.Second)
		defer rewarm.Stop()

		invalidate := events.Invalidate(store)
		logger.Info("Listening for cache invalidation events")
		err := bus.Consume(ctx, func(event events.Event) error {
			if err := invalidate(event); err != nil {
				return err
			}
			rewarm.Trigger(func() {
				wallets, err := walletLoader.LoadAll(ctx)
				if err != nil {
					logger.Warn("Re-warm after invalidation failed", "error", err)
					return
				}
				logger.Info("Cache re-warmed", "wallets", len(wallets))
			})
			return nil
		})
		if err != nil && ctx.Err() == nil {
			logger.Error("Invalidation consumer stopped", "error", err)
			os.Exit(1)
		}
	} else {
		<-ctx.Done()
	}

	logger.Info("Stopped gracefully")
}
