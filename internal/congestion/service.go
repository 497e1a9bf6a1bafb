package congestion

import (
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/telemetry"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// ServiceConfig holds configuration for the congestion service.
type ServiceConfig struct {
	// Traffic provides the live baseline.
	Traffic traffic.Provider

	// Weather provides the conditions modulating the forecast.
	Weather weather.Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Interval between prediction points (default: 15 minutes).
	Interval time.Duration

	// MaxPoints caps the number of points per call (default: 672, one week at 15 minutes).
	MaxPoints int

	// Metrics records operation durations (optional).
	Metrics *telemetry.EngineMetrics

	// Clock returns the current time (default: time.Now).
	Clock func() time.Time
}

// Service implements Predictor.
type Service struct {
	providers routing.Providers
	logger    zerolog.Logger
	interval  time.Duration
	maxPoints int
	metrics   *telemetry.EngineMetrics
	clock     func() time.Time
	tracer    trace.Tracer
}

var _ Predictor = (*Service)(nil)

// NewService creates a new congestion service.
func NewService(cfg ServiceConfig) *Service {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	maxPoints := cfg.MaxPoints
	if maxPoints <= 0 {
		maxPoints = 672
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		providers: routing.Providers{Traffic: cfg.Traffic, Weather: cfg.Weather},
		logger:    cfg.Logger,
		interval:  interval,
		maxPoints: maxPoints,
		metrics:   cfg.Metrics,
		clock:     clock,
		tracer:    telemetry.Tracer(telemetry.InstrumentationName + "/congestion"),
	}
}

// Modelling constants.
const (
	defaultFreeFlowSpeed = 50.0 // km/h when the provider gives none

	rainSpeedFactor = 0.85
	rainLevelDelta  = 0.1
	snowSpeedFactor = 0.7
	snowLevelDelta  = 0.2
	windSpeedFactor = 0.9
	windLevelDelta  = 0.05
	highWindKmh     = 40.0

	incidentLevelDelta = 0.1

	// liveDecayHours is how quickly the live reading gives way to the profile.
	liveDecayHours = 2.0

	baseConfidence    = 0.9
	factorConfidence  = 0.1
	minConfidence     = 0.3
	trendBand         = 0.05
	defaultRangeHours = 2
)

// PredictCongestion forecasts congestion at location every interval across tr.
// At least one point is always returned for a valid request.
func (s *Service) PredictCongestion(ctx context.Context, location geo.Point, tr TimeRange) ([]PredictionPoint, error) {
	ctx, span := s.tracer.Start(ctx, "congestion.PredictCongestion")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "predict_congestion", time.Since(start)) }()

	points, _, err := s.predict(ctx, location, tr)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("points", len(points)))
	return points, nil
}

// AnalyzeTrend compares the mean level of the first and last thirds of the
// forecast. Every adverse factor seen in the range is reported and lowers
// confidence.
func (s *Service) AnalyzeTrend(ctx context.Context, location geo.Point, tr TimeRange) (TrendAnalysis, error) {
	ctx, span := s.tracer.Start(ctx, "congestion.AnalyzeTrend")
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "analyze_trend", time.Since(start)) }()

	points, factors, err := s.predict(ctx, location, tr)
	if err != nil {
		return TrendAnalysis{}, err
	}

	analysis := TrendAnalysis{
		Trend:      classify(points),
		Confidence: confidenceFor(len(factors)),
		Factors:    factors,
	}
	span.SetAttributes(attribute.String("trend", string(analysis.Trend)))
	return analysis, nil
}

func (s *Service) normalize(tr TimeRange) (TimeRange, error) {
	if tr.Start.IsZero() {
		tr.Start = s.clock()
	}
	if tr.End.IsZero() {
		tr.End = tr.Start.Add(defaultRangeHours * time.Hour)
	}
	if tr.End.Before(tr.Start) {
		return tr, &routing.ValidationError{Field: "timeRange", Message: "end is before start", Err: ErrInvalidTimeRange}
	}
	if n := int(tr.End.Sub(tr.Start)/s.interval) + 1; n > s.maxPoints {
		return tr, &routing.ValidationError{
			Field:   "timeRange",
			Message: fmt.Sprintf("range needs %d points, at most %d allowed", n, s.maxPoints),
			Err:     ErrInvalidTimeRange,
		}
	}
	return tr, nil
}

// predict builds the forecast and returns it with the union of its factors.
func (s *Service) predict(ctx context.Context, location geo.Point, tr TimeRange) ([]PredictionPoint, []string, error) {
	if err := location.Validate(); err != nil {
		return nil, nil, &routing.ValidationError{Field: "location", Message: err.Error(), Err: err}
	}
	tr, err := s.normalize(tr)
	if err != nil {
		return nil, nil, err
	}

	now := s.clock()
	snap := s.providers.Fetch(ctx, location)

	live := snap.TrafficErr == nil
	if !live {
		s.logger.Warn().Err(snap.TrafficErr).
			Float64("lat", location.Lat).
			Float64("lng", location.Lng).
			Msg("live traffic unavailable, forecasting from profile")
	}
	if snap.WeatherErr != nil {
		s.logger.Warn().Err(snap.WeatherErr).Msg("weather unavailable, forecasting clear conditions")
	}

	freeFlow := defaultFreeFlowSpeed
	if live && snap.Traffic.FreeFlowSpeed > 0 {
		freeFlow = snap.Traffic.FreeFlowSpeed
	}

	// Weather is assumed to persist over the range.
	speedFactor, levelDelta := 1.0, 0.0
	var weatherFactors []string
	if snap.WeatherErr == nil {
		w := snap.Weather
		switch {
		case w.Has(weather.TagSnow):
			speedFactor *= snowSpeedFactor
			levelDelta += snowLevelDelta
			weatherFactors = append(weatherFactors, FactorAdverseWeather)
		case w.Has(weather.TagRain):
			speedFactor *= rainSpeedFactor
			levelDelta += rainLevelDelta
			weatherFactors = append(weatherFactors, FactorAdverseWeather)
		}
		if w.WindSpeed > highWindKmh {
			speedFactor *= windSpeedFactor
			levelDelta += windLevelDelta
			weatherFactors = append(weatherFactors, FactorHighWind)
		}
	}

	seen := make(map[string]bool)
	var points []PredictionPoint

	for t := tr.Start; !t.After(tr.End); t = t.Add(s.interval) {
		factors := slices.Clone(weatherFactors)

		level := profileLevel(location, t)
		if rushHour(location, t) {
			factors = append(factors, FactorRushHour)
		}

		if live {
			// The live reading replaces the profile now and fades out ahead.
			ahead := math.Max(t.Sub(now).Hours(), 0)
			weight := math.Exp(-ahead / liveDecayHours)
			level += (snap.Traffic.CongestionLevel - profileLevel(location, now)) * weight

			if snap.Traffic.Incidents > 0 {
				level += incidentLevelDelta * weight
				factors = append(factors, FactorIncidents)
			}
		} else {
			factors = append(factors, FactorLimitedLiveData)
		}

		// Level saturates at 1; past that, weather only lowers speed.
		level = clamp01(level + levelDelta)
		speed := freeFlow * (1 - 0.8*level) * speedFactor

		for _, f := range factors {
			seen[f] = true
		}

		points = append(points, PredictionPoint{
			Timestamp:  t,
			Level:      round(level),
			Speed:      round(speed),
			Density:    round(traffic.DensityFromSpeed(speed, freeFlow)),
			Confidence: confidenceFor(len(factors)),
			Factors:    factors,
		})
	}

	var all []string
	for _, f := range factorOrder {
		if seen[f] {
			all = append(all, f)
		}
	}

	s.logger.Debug().
		Int("points", len(points)).
		Bool("live", live).
		Strs("factors", all).
		Msg("predicted congestion")

	return points, all, nil
}

// classify compares the mean level of the first and last thirds.
func classify(points []PredictionPoint) Trend {
	n := len(points)
	if n < 2 {
		return TrendStable
	}
	third := max(n/3, 1)

	mean := func(ps []PredictionPoint) float64 {
		sum := 0.0
		for _, p := range ps {
			sum += p.Level
		}
		return sum / float64(len(ps))
	}

	diff := mean(points[n-third:]) - mean(points[:third])
	switch {
	case diff > trendBand:
		return TrendWorsening
	case diff < -trendBand:
		return TrendImproving
	default:
		return TrendStable
	}
}

func confidenceFor(factors int) float64 {
	return round(math.Max(baseConfidence-factorConfidence*float64(factors), minConfidence))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
