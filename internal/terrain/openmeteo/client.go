// Package openmeteo implements terrain.Provider over the Open-Meteo elevation API.
// Slope is estimated from elevation samples around the requested point.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/internal/terrain"
)

const (
	// ProviderName identifies this terrain provider.
	ProviderName = "openmeteo"

	// DefaultBaseURL is the Open-Meteo API base URL.
	DefaultBaseURL = "https://api.open-meteo.com/v1"

	// DefaultSampleDistance is the distance in meters between the point and each slope sample.
	DefaultSampleDistance = 100.0

	steepGradePercent = 15.0
)

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL is the API base URL (optional).
	BaseURL string

	// SampleDistance is the slope sampling distance in meters (optional).
	SampleDistance float64

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is an Open-Meteo elevation client.
type Client struct {
	baseURL        string
	sampleDistance float64
	httpClient     *resilience.Client
	logger         zerolog.Logger
}

var _ terrain.Provider = (*Client)(nil)

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	sample := cfg.SampleDistance
	if sample <= 0 {
		sample = DefaultSampleDistance
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:        baseURL,
		sampleDistance: sample,
		httpClient:     httpClient,
		logger:         cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetConditions fetches elevation at p and at four points around it, and
// reports the steepest grade. The elevation API carries no surface data, so
// the surface is reported as dry.
func (c *Client) GetConditions(ctx context.Context, p geo.Point) (terrain.Conditions, error) {
	samples := []geo.Point{p}
	for _, bearing := range []float64{0, 90, 180, 270} {
		samples = append(samples, geo.Offset(p, bearing, c.sampleDistance))
	}

	elevations, err := c.elevations(ctx, samples)
	if err != nil {
		return terrain.Conditions{}, err
	}
	if len(elevations) != len(samples) {
		return terrain.Conditions{}, fmt.Errorf("%w: expected %d elevations, got %d",
			terrain.ErrNoDataForLocation, len(samples), len(elevations))
	}

	slope := 0.0
	for _, e := range elevations[1:] {
		grade := math.Abs(e-elevations[0]) / c.sampleDistance * 100
		slope = math.Max(slope, grade)
	}

	cond := terrain.Conditions{
		Surface:   terrain.SurfaceDry,
		Slope:     math.Round(slope*10) / 10,
		Elevation: elevations[0],
	}
	if cond.Slope > steepGradePercent {
		cond.Hazards = []string{terrain.HazardSteepGrade}
	}
	cond.DifficultyClass, cond.Difficulty = terrain.Classify(cond.Slope, cond.Surface)

	return cond, nil
}

func (c *Client) elevations(ctx context.Context, points []geo.Point) ([]float64, error) {
	lats := make([]string, len(points))
	lngs := make([]string, len(points))
	for i, p := range points {
		lats[i] = strconv.FormatFloat(p.Lat, 'f', 6, 64)
		lngs[i] = strconv.FormatFloat(p.Lng, 'f', 6, 64)
	}

	q := url.Values{}
	q.Set("latitude", strings.Join(lats, ","))
	q.Set("longitude", strings.Join(lngs, ","))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/elevation?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, resilience.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body elevationResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return body.Elevation, nil
}

type elevationResponse struct {
	Elevation []float64 `json:"elevation"`
}
