// Package api provides the HTTP API of the route engine.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/api/handler"
	"github.com/routopia/routeengine/internal/api/middleware"
	"github.com/routopia/routeengine/internal/congestion"
	"github.com/routopia/routeengine/internal/optimizer"
	"github.com/routopia/routeengine/internal/preferences"
	"github.com/routopia/routeengine/internal/provider/resilience"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	ServiceName string
	Logger      zerolog.Logger

	// Metrics records HTTP server metrics (optional).
	Metrics *middleware.Metrics

	Optimizer   optimizer.RouteOptimizer
	Engine      handler.RouteEngine
	Congestion  congestion.Predictor
	Preferences *preferences.Service

	// Registry backs /v1/ops/status (optional).
	Registry *resilience.Registry

	// ReadinessChecks back /v1/ops/ready, keyed by dependency name.
	ReadinessChecks map[string]handler.ReadinessCheck
}

// NewRouter creates a chi router with every API route configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "routopia-api"
	}

	r := chi.NewRouter()

	// Order matters: the request ID must exist before tracing and logging,
	// and recovery must sit inside the logger so panics are logged as 500s.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireJSON)

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Registry:  cfg.Registry,
		Checks:    cfg.ReadinessChecks,
		Logger:    cfg.Logger,
	})
	routeHandler := handler.NewRouteHandler(cfg.Optimizer, cfg.Engine, cfg.Preferences, cfg.Logger)
	congestionHandler := handler.NewCongestionHandler(cfg.Congestion, cfg.Logger)

	computeRateLimit := middleware.RateLimitByIP(middleware.ComputeRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Every engine call fans out to the condition providers.
		r.Group(func(r chi.Router) {
			r.Use(computeRateLimit)
			r.Post("/routes:optimize", routeHandler.OptimizeRoute)
			r.Post("/routes:rank", routeHandler.RankRoutes)
			r.Post("/routes:alternatives", routeHandler.GenerateAlternatives)
			r.Post("/reroute:evaluate", routeHandler.EvaluateReroute)
		})

		r.Route("/congestion", func(r chi.Router) {
			r.Use(computeRateLimit)
			r.Get("/predictions", congestionHandler.PredictCongestion)
			r.Get("/trend", congestionHandler.AnalyzeTrend)
		})

		if cfg.Preferences != nil {
			prefsHandler := handler.NewPreferencesHandler(cfg.Preferences, cfg.Logger)
			r.Group(func(r chi.Router) {
				r.Use(standardRateLimit)
				r.Get("/users/{userId}/preferences", prefsHandler.GetPreferences)
				r.Put("/users/{userId}/preferences", prefsHandler.PutPreferences)
				r.Delete("/users/{userId}/preferences", prefsHandler.DeletePreferences)
			})
		}
	})

	return r
}
