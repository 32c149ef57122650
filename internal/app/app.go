// Package app wires configuration into a ready PredictionService.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresuchdata/reseller-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/config"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/llm"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/metrics"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/repository"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/service"
	"github.com/andresuchdata/reseller-forecast/backend-go/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

// Options choose which optional backends Build connects.
type Options struct {
	// Catalog connects Postgres. RequireCatalog turns a connection failure
	// into an error instead of a warning.
	Catalog        bool
	RequireCatalog bool
	Storage        bool
}

// App holds the wired service and the resources that must be released.
type App struct {
	Service  *service.PredictionService
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	closers []func() error
}

// Build creates the generator, predictor and service described by cfg.
// Optional backends that fail to connect are logged and left out.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.Metrics = metrics.New(a.Registry)

	gen, err := llm.New(ctx, cfg.LLM)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.LLM.Provider).Msg("llm provider unavailable, predictions will use fallbacks")
		gen = llm.Disabled{}
	}
	gen = llm.Instrument(gen, a.Metrics)
	if c, ok := gen.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	predictor := forecast.NewPredictor(gen,
		forecast.WithCallTimeout(cfg.LLM.CallTimeout()),
		forecast.WithTemperatures(cfg.Forecast.MarketTemperature, cfg.Forecast.DemandTemperature),
		forecast.WithRecorder(a.Metrics),
	)

	var repo repository.CatalogRepository
	if opts.Catalog {
		db, err := postgres.NewDB(ctx, &cfg.Database)
		switch {
		case err == nil:
			repo = postgres.NewCatalogRepository(db)
			a.closers = append(a.closers, db.Close)
		case opts.RequireCatalog:
			a.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		default:
			log.Warn().Err(err).Msg("catalog database unavailable, catalog endpoints disabled")
		}
	}

	catalogCache, err := cache.NewCatalogCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("catalog cache unavailable, continuing without cache")
		catalogCache = cache.NewNoopCatalogCache()
	}
	a.closers = append(a.closers, catalogCache.Close)

	var store storage.ObjectStorage
	if opts.Storage {
		store, err = storage.New(ctx, cfg.Storage, cfg.App.ExportDir)
		if err != nil {
			log.Warn().Err(err).Msg("report storage unavailable, export disabled")
			store = nil
		}
	}

	a.Service = service.NewPredictionService(predictor, repo, catalogCache, store, service.Options{
		DefaultTimeframe: cfg.Forecast.DefaultTimeframe,
		HistoryDays:      cfg.Forecast.HistoryDays,
		BatchConcurrency: cfg.Forecast.BatchConcurrency,
		ExportPrefix:     cfg.Storage.Prefix,
	})

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
