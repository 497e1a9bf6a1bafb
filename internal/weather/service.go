package weather

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/provider/gridcache"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/internal/telemetry"
)

const kind = "weather"

// Provider returns current weather conditions for a point.
type Provider interface {
	GetConditions(ctx context.Context, p geo.Point) (Conditions, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the upstream weather provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// CacheTTL is how long to cache conditions (default: 15 minutes).
	CacheTTL time.Duration

	// CacheGridSize is the size of cache grid cells in degrees (default: 0.05).
	CacheGridSize float64

	// StaleIfErrorTTL allows serving stale data on provider errors (default: 1 hour).
	StaleIfErrorTTL time.Duration

	// Retry is applied to every upstream call (default: resilience.DefaultRetryPolicy).
	Retry *resilience.RetryPolicy

	// Metrics records provider calls and cache usage (optional).
	Metrics *telemetry.ProviderMetrics
}

// Service provides cached, retried weather conditions. It satisfies Provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	retry    resilience.RetryPolicy
	metrics  *telemetry.ProviderMetrics
	cache    *gridcache.Cache[Conditions]
}

var _ Provider = (*Service)(nil)

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 15 * time.Minute
	}

	gridSize := cfg.CacheGridSize
	if gridSize == 0 {
		gridSize = 0.05 // ~5.5km at equator
	}

	retry := resilience.DefaultRetryPolicy()
	if cfg.Retry != nil {
		retry = *cfg.Retry
	}

	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		retry:    retry,
		metrics:  cfg.Metrics,
		cache: gridcache.New[Conditions](gridcache.Config{
			TTL:             cacheTTL,
			StaleIfErrorTTL: cfg.StaleIfErrorTTL,
			GridSize:        gridSize,
		}),
	}
}

// Name returns the upstream provider name.
func (s *Service) Name() string {
	return s.provider.Name()
}

// GetConditions returns current weather at p, from cache when fresh.
// On provider failure a stale entry is served if one is within the stale window.
func (s *Service) GetConditions(ctx context.Context, p geo.Point) (Conditions, error) {
	if err := p.Validate(); err != nil {
		return Conditions{}, err
	}

	if c, ok := s.cache.Get(p); ok {
		s.metrics.RecordCacheHit(s.provider.Name(), kind)
		return c, nil
	}
	s.metrics.RecordCacheMiss(s.provider.Name(), kind)

	s.logger.Debug().
		Float64("lat", p.Lat).
		Float64("lng", p.Lng).
		Str("provider", s.provider.Name()).
		Msg("fetching weather from provider")

	start := time.Now()
	c, err := resilience.Retry(ctx, s.retry, func(ctx context.Context) (Conditions, error) {
		return s.provider.GetConditions(ctx, p)
	})
	s.metrics.RecordRequest(s.provider.Name(), kind, time.Since(start), err)

	if err != nil {
		s.logger.Error().Err(err).
			Float64("lat", p.Lat).
			Float64("lng", p.Lng).
			Msg("failed to fetch weather")

		if stale, fetchedAt, ok := s.cache.GetStale(p); ok {
			s.logger.Warn().
				Time("fetched_at", fetchedAt).
				Msg("serving stale weather data due to provider error")
			s.metrics.RecordStaleServed(s.provider.Name(), kind)
			return stale, nil
		}

		return Conditions{}, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	s.cache.Set(p, c)
	return c, nil
}

// InvalidateCache clears all cached data.
func (s *Service) InvalidateCache() {
	s.cache.Invalidate()
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Entries      int
	FreshEntries int
	Provider     string
}

// CacheStats returns cache statistics.
func (s *Service) CacheStats() CacheStats {
	st := s.cache.Stats()
	return CacheStats{
		Entries:      st.Entries,
		FreshEntries: st.FreshEntries,
		Provider:     s.provider.Name(),
	}
}
