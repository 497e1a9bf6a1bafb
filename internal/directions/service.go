package directions

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/provider/gridcache"
	"github.com/routopia/routeengine/internal/telemetry"
)

const kind = "directions"

// ServiceConfig holds configuration for the directions service.
type ServiceConfig struct {
	Provider Provider

	// Fallback answers when Provider fails and nothing stale is cached (optional).
	Fallback Provider

	Logger zerolog.Logger

	// CacheTTL defaults to 5 minutes.
	CacheTTL time.Duration

	// CacheGridSize is the endpoint snapping in degrees (default: 0.001, ~110m).
	CacheGridSize float64

	// StaleIfErrorTTL defaults to 15 minutes.
	StaleIfErrorTTL time.Duration

	Metrics *telemetry.ProviderMetrics
}

// Service caches directions per profile and endpoint pair, serving stale
// routes or the fallback when the provider fails.
type Service struct {
	provider Provider
	fallback Provider
	logger   zerolog.Logger
	metrics  *telemetry.ProviderMetrics
	cache    *gridcache.Cache[*Response]
}

var _ Provider = (*Service)(nil)

// NewService creates a new directions service.
func NewService(cfg ServiceConfig) *Service {
	gridConfig := gridcache.Config{
		TTL:             cfg.CacheTTL,
		GridSize:        cfg.CacheGridSize,
		StaleIfErrorTTL: cfg.StaleIfErrorTTL,
	}
	if gridConfig.GridSize == 0 {
		gridConfig.GridSize = 0.001
	}
	if gridConfig.StaleIfErrorTTL == 0 {
		gridConfig.StaleIfErrorTTL = 15 * time.Minute
	}

	return &Service{
		provider: cfg.Provider,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		cache:    gridcache.New[*Response](gridConfig),
	}
}

// Name returns the name of the underlying provider.
func (s *Service) Name() string { return s.provider.Name() }

// SupportedProfiles returns the profiles of the underlying provider.
func (s *Service) SupportedProfiles() []Profile { return s.provider.SupportedProfiles() }

// GetDirections returns routes between two points, from cache when fresh.
func (s *Service) GetDirections(ctx context.Context, req Request) (*Response, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	name := s.provider.Name()
	key := s.key(req)
	if resp, ok := s.cache.Lookup(key); ok {
		s.metrics.RecordCacheHit(name, kind)
		return resp, nil
	}
	s.metrics.RecordCacheMiss(name, kind)

	log := s.logger.With().
		Str("provider", name).
		Str("profile", string(req.Profile)).
		Logger()
	log.Debug().
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Msg("fetching directions")

	start := time.Now()
	resp, err := s.provider.GetDirections(ctx, req)
	if err == nil && len(resp.Routes) == 0 {
		err = &Error{Provider: name, Code: "NO_ROUTE", Message: "provider returned no routes", Err: ErrNoRouteFound}
	}
	s.metrics.RecordRequest(name, kind, time.Since(start), err)

	if err == nil {
		s.cache.Put(key, resp)
		return resp, nil
	}

	log.Error().Err(err).Msg("failed to fetch directions")

	if stale, fetchedAt, ok := s.cache.LookupStale(key); ok {
		log.Warn().Time("fetched_at", fetchedAt).Msg("serving stale directions due to provider error")
		s.metrics.RecordStaleServed(name, kind)
		return stale, nil
	}
	if s.fallback != nil {
		log.Warn().Str("fallback", s.fallback.Name()).Msg("using fallback directions provider")
		return s.fallback.GetDirections(ctx, req)
	}
	return nil, err
}

func (s *Service) validate(req Request) error {
	if err := req.Origin.Validate(); err != nil {
		return &Error{Provider: s.provider.Name(), Code: "INVALID_ORIGIN", Message: "invalid origin coordinates", Err: err}
	}
	if err := req.Destination.Validate(); err != nil {
		return &Error{Provider: s.provider.Name(), Code: "INVALID_DESTINATION", Message: "invalid destination coordinates", Err: err}
	}
	return nil
}

// key snaps both endpoints to the grid and adds the profile and avoid flags.
func (s *Service) key(req Request) string {
	flags := 0
	if req.AvoidHighways {
		flags |= 1
	}
	if req.AvoidTolls {
		flags |= 2
	}
	return string(req.Profile) + "|" + strconv.Itoa(flags) + "|" +
		s.cache.Key(req.Origin) + "|" + s.cache.Key(req.Destination)
}

// InvalidateCache clears all cached routes.
func (s *Service) InvalidateCache() { s.cache.Invalidate() }

// CacheStats returns the cache statistics.
func (s *Service) CacheStats() gridcache.Stats { return s.cache.Stats() }
