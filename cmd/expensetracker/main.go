package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/backend"
	"expensetracker/internal/cache"
	"expensetracker/internal/cli"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
)

func main() {
	if err := cli.LoadEnvFile(); err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()
	ctx = log.NewContext(ctx, logger)

	factory := backend.NewFactory(logger)
	ledger, err := factory.CreateBackend(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize ledger backend", "error", err, log.FieldBackend, cfg.LedgerBackend)
		os.Exit(1)
	}

	srv := apphttp.NewServer(cfg.Addr(), ledger,
		apphttp.WithLogger(logger),
		apphttp.WithPinger(ledger),
		apphttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
		apphttp.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout),
	)
	janitor := cache.NewJanitor(cfg.QueryCacheTTL, factory.Cleaners...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expense server",
			"addr", srv.Addr,
			log.FieldBackend, cfg.LedgerBackend,
			log.FieldBroker, cfg.EventsBroker,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return janitor.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	if err := ledger.Close(); err != nil {
		logger.Error("Failed to close ledger backend", "error", err)
	}
	if runErr != nil {
		logger.Error("Server error", "error", runErr)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
