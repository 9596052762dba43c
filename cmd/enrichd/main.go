package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/httpadapter"
	"github.com/couchcryptid/dpe-enrichment-service/internal/app"
	"github.com/couchcryptid/dpe-enrichment-service/internal/config"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/couchcryptid/dpe-enrichment-service/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.Store, httpadapter.Handlers{
		Enricher: a.Pipeline,
		Batch:    a.Runner,
		Seeder:   a.Loader,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start the scheduled persisting batch.
	if cfg.BatchInterval > 0 {
		scheduler := pipeline.NewScheduler(a.Runner, cfg.BatchInterval, logger, metrics)
		go func() {
			if err := scheduler.Run(ctx); err != nil {
				logger.Error("scheduler error", "error", err)
			}
		}()
	} else {
		logger.Info("scheduled batch disabled")
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	a.Close()

	logger.Info("shutdown complete")
}
