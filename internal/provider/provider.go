// Package provider assembles the cached condition and directions services
// from configuration. Upstreams without credentials are replaced by static
// stand-ins so the engine runs locally without API keys.
package provider

import (
	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/config"
	"github.com/routopia/routeengine/internal/directions"
	"github.com/routopia/routeengine/internal/directions/openrouteservice"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/telemetry"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/terrain/openmeteo"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/traffic/tomtom"
	"github.com/routopia/routeengine/internal/weather"
	"github.com/routopia/routeengine/internal/weather/openweathermap"
)

// Set is the wired provider stack shared by the API server and the worker.
type Set struct {
	Weather    *weather.Service
	Traffic    *traffic.Service
	Terrain    *terrain.Service
	Directions *directions.Service

	// Registry tracks circuit state of every remote upstream.
	Registry *resilience.Registry

	// Static lists the kinds served by development stand-ins.
	Static []string
}

// Options configures New.
type Options struct {
	Config  config.ProvidersConfig
	Metrics *telemetry.ProviderMetrics
	Logger  zerolog.Logger
}

// New builds the provider set.
func New(opts Options) *Set {
	cfg := opts.Config
	registry := resilience.NewRegistry()
	set := &Set{Registry: registry}

	// The cached services retry; the transport only trips the breaker.
	client := func(name string) *resilience.Client {
		cc := resilience.DefaultClientConfig(name)
		cc.Timeout = cfg.HTTPTimeout
		cc.Retry = resilience.NoRetry()
		cc.Registry = registry
		return resilience.NewClient(cc)
	}

	var wx weather.Provider
	if cfg.OpenWeatherMapAPIKey != "" {
		wx = openweathermap.NewClient(openweathermap.ClientConfig{
			APIKey:     cfg.OpenWeatherMapAPIKey,
			BaseURL:    cfg.OpenWeatherMapBaseURL,
			HTTPClient: client(openweathermap.ProviderName),
			Logger:     opts.Logger,
		})
	} else {
		wx = weather.NewStaticProvider(weather.DefaultConditions())
		set.Static = append(set.Static, "weather")
	}

	var tr traffic.Provider
	if cfg.TomTomAPIKey != "" {
		tr = tomtom.NewClient(tomtom.ClientConfig{
			APIKey:     cfg.TomTomAPIKey,
			BaseURL:    cfg.TomTomBaseURL,
			HTTPClient: client(tomtom.ProviderName),
			Logger:     opts.Logger,
		})
	} else {
		tr = traffic.NewStaticProvider(traffic.DefaultConditions())
		set.Static = append(set.Static, "traffic")
	}

	var te terrain.Provider
	if cfg.UseOpenMeteo {
		te = openmeteo.NewClient(openmeteo.ClientConfig{
			BaseURL:    cfg.OpenMeteoBaseURL,
			HTTPClient: client(openmeteo.ProviderName),
			Logger:     opts.Logger,
		})
	} else {
		te = terrain.NewStaticProvider(terrain.DefaultConditions())
		set.Static = append(set.Static, "terrain")
	}

	retry := cfg.Retry
	set.Weather = weather.NewService(weather.ServiceConfig{
		Provider:        wx,
		Logger:          opts.Logger,
		CacheTTL:        cfg.WeatherCacheTTL,
		StaleIfErrorTTL: cfg.StaleIfErrorTTL,
		Retry:           &retry,
		Metrics:         opts.Metrics,
	})
	set.Traffic = traffic.NewService(traffic.ServiceConfig{
		Provider:        tr,
		Logger:          opts.Logger,
		CacheTTL:        cfg.TrafficCacheTTL,
		StaleIfErrorTTL: cfg.StaleIfErrorTTL,
		Retry:           &retry,
		Metrics:         opts.Metrics,
	})
	set.Terrain = terrain.NewService(terrain.ServiceConfig{
		Provider:        te,
		Logger:          opts.Logger,
		CacheTTL:        cfg.TerrainCacheTTL,
		StaleIfErrorTTL: cfg.StaleIfErrorTTL,
		Retry:           &retry,
		Metrics:         opts.Metrics,
	})

	// Great-circle geometry is always available, as primary or as fallback.
	var primary, fallback directions.Provider = directions.GreatCircle{}, nil
	if cfg.OpenRouteServiceAPIKey != "" {
		primary = openrouteservice.NewClient(openrouteservice.ClientConfig{
			APIKey:   cfg.OpenRouteServiceAPIKey,
			BaseURL:  cfg.OpenRouteServiceBaseURL,
			Timeout:  cfg.HTTPTimeout,
			Registry: registry,
			Logger:   opts.Logger,
		})
		fallback = directions.GreatCircle{}
	} else {
		set.Static = append(set.Static, "directions")
	}
	set.Directions = directions.NewService(directions.ServiceConfig{
		Provider: primary,
		Fallback: fallback,
		Logger:   opts.Logger,
		CacheTTL: cfg.DirectionsCacheTTL,
		Metrics:  opts.Metrics,
	})

	return set
}

// Conditions returns the condition providers in the form the engine takes.
func (s *Set) Conditions() routing.Providers {
	return routing.Providers{
		Weather: s.Weather,
		Traffic: s.Traffic,
		Terrain: s.Terrain,
	}
}
