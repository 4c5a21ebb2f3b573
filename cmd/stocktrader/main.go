package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/efreitasn/stocktrader/internal/config"
	"github.com/efreitasn/stocktrader/internal/engine"
	"github.com/efreitasn/stocktrader/internal/handler"
	"github.com/efreitasn/stocktrader/internal/persistence"
	"github.com/efreitasn/stocktrader/internal/service"
)

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	seed, err := config.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.Error("failed to load seed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Persistence: chosen once, never re-probed.
	gw := persistence.Open(ctx, persistence.Options{
		DBPath:          cfg.DBPath,
		MirrorPath:      cfg.FallbackLogPath,
		MirrorMaxSizeMB: cfg.FallbackLogMaxSizeMB,
	}, logger)
	defer gw.Close()

	// Services.
	instrumentSvc := service.NewInstrumentService(gw)
	accountSvc := service.NewAccountService(gw)
	if err := seedStores(ctx, seed, instrumentSvc, accountSvc, logger); err != nil {
		logger.Error("failed to seed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Engine.
	executor := engine.NewExecutor(gw, engine.NewAccountLocks(), logger)
	tradeSvc := service.NewTradeService(executor)
	updater := engine.NewPriceUpdater(gw, cfg.PriceUpdateInterval, cfg.PriceMaxChange, cfg.PriceFloor, nil, logger)

	// Router.
	router := handler.NewRouter(accountSvc, tradeSvc, instrumentSvc, gw.Mode(), logger)

	updater.Start(ctx)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("persistence", string(gw.Mode())),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	// Graceful shutdown: stop HTTP server, then join the price updater
	// before the gateway is closed.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	updater.Stop()
	cancel()

	logger.Info("server stopped")
}

// seedStores adds the seed instruments and accounts that storage does not
// hold yet.
func seedStores(
	ctx context.Context,
	seed *config.Seed,
	instrumentSvc *service.InstrumentService,
	accountSvc *service.AccountService,
	logger *slog.Logger,
) error {
	instruments, err := seed.InstrumentList()
	if err != nil {
		return err
	}
	added, err := instrumentSvc.Seed(ctx, instruments)
	if err != nil {
		return err
	}

	balances, err := seed.AccountBalances()
	if err != nil {
		return err
	}
	accounts := make([]service.AccountSeed, 0, len(balances))
	for _, b := range balances {
		accounts = append(accounts, service.AccountSeed{AccountID: b.AccountID, Balance: b.Balance})
	}
	created, err := accountSvc.Seed(ctx, accounts)
	if err != nil {
		return err
	}

	logger.Info("seed applied",
		slog.Int("instruments_added", added),
		slog.Int("accounts_created", created),
	)
	return nil
}
