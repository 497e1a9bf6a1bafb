// Package main provides the entrypoint for the Routopia conditions worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/routopia/routeengine/internal/config"
	"github.com/routopia/routeengine/internal/provider"
	"github.com/routopia/routeengine/internal/telemetry"
	"github.com/routopia/routeengine/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "routopia-worker"

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
		Msg("starting Routopia worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	providerMetrics, err := telemetry.NewProviderMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize provider metrics")
	}

	providers := provider.New(provider.Options{
		Config:  cfg.Providers,
		Metrics: providerMetrics,
		Logger:  log,
	})

	metrics := worker.NewMetrics()
	refreshCfg := worker.DefaultRefreshConfig()
	refreshCfg.Concurrency = cfg.Worker.RefreshConcurrency
	refreshCfg.Timeout = cfg.Worker.RefreshTimeout

	job := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:  refreshCfg,
		Logger:  log,
		Weather: providers.Weather,
		Traffic: providers.Traffic,
		Terrain: providers.Terrain,
		Metrics: metrics,
	})
	dispatcher := worker.NewDispatcher(job, metrics, log)

	// The worker exposes health and metrics for Cloud Run and Prometheus.
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		upstreams := map[string]string{}
		for _, h := range providers.Registry.GetAllHealth() {
			upstreams[h.Name] = h.Status()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    providers.Registry.Status(),
			"version":   Version,
			"providers": upstreams,
			"refresh":   job.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + cfg.Worker.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Worker.PubSubProject != "" {
		sub, err := worker.NewSubscription(ctx, worker.SubscriptionConfig{
			ProjectID:  cfg.Worker.PubSubProject,
			Name:       cfg.Worker.PubSubSubscription,
			Dispatcher: dispatcher,
			Logger:     log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub subscription")
		}
		defer sub.Close()

		g.Go(func() error { return sub.Run(gctx) })
	} else {
		log.Warn().
			Dur("interval", cfg.Worker.RefreshInterval).
			Msg("PUBSUB_PROJECT_ID not set, refreshing on a local ticker")

		g.Go(func() error {
			return worker.Schedule(gctx, dispatcher, worker.JobConditionsRefresh, cfg.Worker.RefreshInterval, log)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	log.Info().Msg("worker stopped")
}
