// Package main provides the entrypoint for the Routopia route engine API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/api"
	"github.com/routopia/routeengine/internal/api/handler"
	"github.com/routopia/routeengine/internal/api/middleware"
	"github.com/routopia/routeengine/internal/config"
	"github.com/routopia/routeengine/internal/congestion"
	"github.com/routopia/routeengine/internal/database"
	"github.com/routopia/routeengine/internal/optimizer"
	"github.com/routopia/routeengine/internal/preferences"
	"github.com/routopia/routeengine/internal/provider"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routopia-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	log = log.Level(cfg.App.LogLevel)

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.App.Env).
		Msg("starting Routopia API")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if cfg.Telemetry.Enabled {
		log.Info().
			Str("otlp_endpoint", cfg.Telemetry.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize http metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize provider metrics")
		os.Exit(1)
	}
	engineMetrics, err := telemetry.NewEngineMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize engine metrics")
		os.Exit(1)
	}

	providers := provider.New(provider.Options{
		Config:  cfg.Providers,
		Metrics: providerMetrics,
		Logger:  log,
	})
	if len(providers.Static) > 0 {
		log.Warn().
			Strs("kinds", providers.Static).
			Msg("using static providers, configure API keys for live data")
	}

	engine, err := routing.NewEngine(routing.Config{
		Providers:          providers.Conditions(),
		Logger:             log,
		SegmentConcurrency: cfg.Engine.SegmentConcurrency,
		Metrics:            engineMetrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create route engine")
	}

	opt, err := optimizer.New(optimizer.Config{
		Engine:          engine,
		Directions:      providers.Directions,
		Logger:          log,
		Timeout:         cfg.Engine.OptimizerTimeout,
		MaxAlternatives: cfg.Engine.MaxAlternatives,
		Metrics:         engineMetrics,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create optimizer")
	}

	predictor := congestion.NewService(congestion.ServiceConfig{
		Traffic:  providers.Traffic,
		Weather:  providers.Weather,
		Logger:   log,
		Interval: cfg.Engine.PredictionInterval,
		Metrics:  engineMetrics,
	})

	checks := map[string]handler.ReadinessCheck{}

	var prefsRepo preferences.Repository
	switch cfg.App.PreferenceStore {
	case config.StorePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()

		repo := preferences.NewPostgresRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare preferences schema")
		}
		prefsRepo = repo
		checks["database"] = pool.Ping

		log.Info().Str("dsn", cfg.Database.Redacted()).Msg("database connected")
	default:
		prefsRepo = preferences.NewInMemoryRepository()
		log.Info().Msg("using in-memory preference store")
	}
	prefsService := preferences.NewService(prefsRepo, log)

	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		ServiceName:     serviceName,
		Logger:          log,
		Metrics:         httpMetrics,
		Optimizer:       opt,
		Engine:          engine,
		Congestion:      predictor,
		Preferences:     prefsService,
		Registry:        providers.Registry,
		ReadinessChecks: checks,
	})

	// WriteTimeout leaves room for a full optimizer run.
	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Engine.OptimizerTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
