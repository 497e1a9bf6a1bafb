package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// Provider labels used in results and metrics.
const (
	providerWeather = "weather"
	providerTraffic = "traffic"
	providerTerrain = "terrain"
)

// RefreshJob fetches conditions for every configured point through the cached
// provider services, which stores the fresh values in their caches.
type RefreshJob struct {
	config RefreshConfig
	logger zerolog.Logger

	// Providers are optional; a nil provider is skipped.
	weather weather.Provider
	traffic traffic.Provider
	terrain terrain.Provider

	metrics *Metrics
	stats   *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics for the health endpoint.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRefreshes    int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	WeatherRefresh    int64
	TrafficRefresh    int64
	TerrainRefresh    int64

	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config  RefreshConfig
	Logger  zerolog.Logger
	Weather weather.Provider
	Traffic traffic.Provider
	Terrain terrain.Provider
	Metrics *Metrics
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultRefreshTargets()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 3
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:  config,
		logger:  cfg.Logger,
		weather: cfg.Weather,
		traffic: cfg.Traffic,
		terrain: cfg.Terrain,
		metrics: cfg.Metrics,
		stats:   &RefreshMetrics{},
	}
}

// RefreshResult contains the result of a refresh run.
type RefreshResult struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalPoints int
	Successful  int
	Failed      int
	Errors      []RefreshError
}

// RefreshError records a failed provider fetch.
type RefreshError struct {
	Provider string
	Point    geo.Point
	Error    string
}

// Run refreshes all configured points. Points not reached before ctx is
// done are counted as neither successful nor failed.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:   startTime,
		TotalPoints: j.config.TotalPoints(),
	}

	j.logger.Info().
		Int("total_points", result.TotalPoints).
		Int("concurrency", j.config.Concurrency).
		Msg("starting conditions refresh")

	points := j.config.AllPoints()

	pointsChan := make(chan geo.Point, len(points))
	resultsChan := make(chan pointResult, len(points))

	var wg sync.WaitGroup
	for range j.config.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, pointsChan, resultsChan)
		}()
	}

	for _, p := range points {
		pointsChan <- p
	}
	close(pointsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for pr := range resultsChan {
		if pr.success {
			result.Successful++
		} else {
			result.Failed++
		}
		result.Errors = append(result.Errors, pr.errors...)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateStats(result)
	j.metrics.observeRefresh(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("conditions refresh completed")

	return result
}

type pointResult struct {
	success bool
	errors  []RefreshError
}

func (j *RefreshJob) refreshWorker(ctx context.Context, points <-chan geo.Point, results chan<- pointResult) {
	for point := range points {
		if ctx.Err() != nil {
			return
		}
		results <- j.refreshPoint(ctx, point)
	}
}

func (j *RefreshJob) refreshPoint(ctx context.Context, point geo.Point) pointResult {
	result := pointResult{success: true}

	pointCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	record := func(provider string, counter *int64, err error) {
		j.metrics.observeFetch(provider, err)
		if err != nil {
			result.success = false
			result.errors = append(result.errors, RefreshError{
				Provider: provider,
				Point:    point,
				Error:    err.Error(),
			})
			return
		}
		j.stats.mu.Lock()
		*counter++
		j.stats.mu.Unlock()
	}

	if j.config.RefreshWeather && j.weather != nil {
		_, err := j.weather.GetConditions(pointCtx, point)
		record(providerWeather, &j.stats.WeatherRefresh, err)
	}
	if j.config.RefreshTraffic && j.traffic != nil {
		_, err := j.traffic.GetConditions(pointCtx, point)
		record(providerTraffic, &j.stats.TrafficRefresh, err)
	}
	if j.config.RefreshTerrain && j.terrain != nil {
		_, err := j.terrain.GetConditions(pointCtx, point)
		record(providerTerrain, &j.stats.TerrainRefresh, err)
	}

	return result
}

func (j *RefreshJob) updateStats(result *RefreshResult) {
	j.stats.mu.Lock()
	defer j.stats.mu.Unlock()

	j.stats.TotalRefreshes++
	j.stats.SuccessfulRefresh += int64(result.Successful)
	j.stats.FailedRefreshes += int64(result.Failed)
	j.stats.LastRefreshAt = result.EndTime
	j.stats.LastRefreshDuration = result.Duration
	j.stats.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current statistics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.stats.mu.RLock()
	defer j.stats.mu.RUnlock()

	return RefreshMetrics{
		TotalRefreshes:      j.stats.TotalRefreshes,
		SuccessfulRefresh:   j.stats.SuccessfulRefresh,
		FailedRefreshes:     j.stats.FailedRefreshes,
		WeatherRefresh:      j.stats.WeatherRefresh,
		TrafficRefresh:      j.stats.TrafficRefresh,
		TerrainRefresh:      j.stats.TerrainRefresh,
		LastRefreshAt:       j.stats.LastRefreshAt,
		LastRefreshDuration: j.stats.LastRefreshDuration,
		TotalDuration:       j.stats.TotalDuration,
	}
}

// MetricsSnapshot returns the current statistics as a map for JSON output.
func (j *RefreshJob) MetricsSnapshot() map[string]any {
	m := j.GetMetrics()
	return map[string]any{
		"total_refreshes":       m.TotalRefreshes,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"weather_refreshes":     m.WeatherRefresh,
		"traffic_refreshes":     m.TrafficRefresh,
		"terrain_refreshes":     m.TerrainRefresh,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}

// withTargets returns a job sharing providers but refreshing only the given
// points. Its runs are not recorded in the refresh metrics.
func (j *RefreshJob) withTargets(points []geo.Point, timeout time.Duration) *RefreshJob {
	cfg := j.config
	cfg.Targets = []RefreshTarget{{Name: "health-check", Priority: 1, Points: points}}
	cfg.Concurrency = 1
	cfg.Timeout = timeout

	clone := *j
	clone.config = cfg
	clone.stats = &RefreshMetrics{}
	clone.metrics = nil
	return &clone
}
