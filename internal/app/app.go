// Package app assembles the enrichment service from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/ademe"
	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/adresse"
	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/dvf"
	kafkaadapter "github.com/couchcryptid/dpe-enrichment-service/internal/adapter/kafka"
	"github.com/couchcryptid/dpe-enrichment-service/internal/adapter/postgres"
	"github.com/couchcryptid/dpe-enrichment-service/internal/config"
	"github.com/couchcryptid/dpe-enrichment-service/internal/observability"
	"github.com/couchcryptid/dpe-enrichment-service/internal/pipeline"
	"github.com/couchcryptid/dpe-enrichment-service/internal/refdata"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Store    *postgres.Store
	Pipeline *pipeline.Pipeline
	Runner   *pipeline.Runner
	Loader   *refdata.Loader

	writer *kafkaadapter.Writer
	logger *slog.Logger
}

// New connects to the database, optionally migrates it, and wires the
// upstream clients, pipeline, batch runner and event writer.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*App, error) {
	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(cfg.MigrationsDir, cfg.DatabaseURL, logger); err != nil {
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := postgres.New(pool)

	geocoder := adresse.NewClient(cfg.GeocodeBaseURL, cfg.UpstreamTimeout, cfg.UpstreamRateLimit, metrics, logger)
	transactions := dvf.NewClient(cfg.DVFBaseURL, cfg.UpstreamTimeout, cfg.UpstreamRateLimit, metrics, logger)
	diagnostics := ademe.NewClient(cfg.ADEMEBaseURL, cfg.UpstreamTimeout, cfg.UpstreamRateLimit, metrics, logger)

	indicators := pipeline.NewIndicatorStage(store, store, cfg.TargetDPEClass, logger)
	p := pipeline.New(geocoder, transactions, diagnostics, indicators, cfg.SearchRadius, logger, metrics)

	a := &App{
		Store:    store,
		Pipeline: p,
		Loader:   refdata.NewLoader(store, metrics, logger),
		logger:   logger,
	}

	var publisher pipeline.EventPublisher
	if cfg.KafkaEnabled {
		a.writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = a.writer
		logger.Info("kafka publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	a.Runner = pipeline.NewRunner(pipeline.RunnerConfig{
		Users:       store,
		Results:     store,
		Pipeline:    p,
		Indicators:  indicators,
		Publisher:   publisher,
		Concurrency: cfg.BatchConcurrency,
	}, logger, metrics)

	return a, nil
}

// Close releases the event writer and the database pool.
func (a *App) Close() {
	if a.writer != nil {
		if err := a.writer.Close(); err != nil {
			a.logger.Error("kafka writer close error", "error", err)
		}
	}
	a.Store.Close()
}
