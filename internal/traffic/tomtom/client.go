// Package tomtom implements traffic.Provider over the TomTom Traffic Flow API.
package tomtom

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/internal/traffic"
)

const (
	// ProviderName identifies this traffic provider.
	ProviderName = "tomtom"

	// DefaultBaseURL is the TomTom Traffic Flow API base URL.
	DefaultBaseURL = "https://api.tomtom.com/traffic/services/4"

	// DefaultZoom is the flow segment zoom level; higher values resolve smaller roads.
	DefaultZoom = 10
)

// ClientConfig holds configuration for the TomTom client.
type ClientConfig struct {
	// APIKey is the TomTom API key (required).
	APIKey string

	// BaseURL is the API base URL (optional).
	BaseURL string

	// Zoom is the flow segment zoom level (optional, default 10).
	Zoom int

	// HTTPClient is the HTTP client to use (optional).
	HTTPClient *resilience.Client

	Logger zerolog.Logger
}

// Client is a TomTom Traffic Flow client.
type Client struct {
	apiKey     string
	baseURL    string
	zoom       int
	httpClient *resilience.Client
	logger     zerolog.Logger
}

var _ traffic.Provider = (*Client)(nil)

// NewClient creates a new TomTom client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	zoom := cfg.Zoom
	if zoom == 0 {
		zoom = DefaultZoom
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		zoom:       zoom,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetConditions fetches flow data for the road segment nearest to p.
func (c *Client) GetConditions(ctx context.Context, p geo.Point) (traffic.Conditions, error) {
	q := url.Values{}
	q.Set("point", fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng))
	q.Set("unit", "KMPH")
	q.Set("key", c.apiKey)

	endpoint := fmt.Sprintf("%s/flowSegmentData/absolute/%d/json?%s", c.baseURL, c.zoom, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return traffic.Conditions{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return traffic.Conditions{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
		// TomTom answers 400 when no road segment is near the point.
		return traffic.Conditions{}, resilience.Permanent(traffic.ErrNoDataForLocation)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return traffic.Conditions{}, resilience.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return traffic.Conditions{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var flow flowResponse
	if err := json.NewDecoder(resp.Body).Decode(&flow); err != nil {
		return traffic.Conditions{}, fmt.Errorf("decoding response: %w", err)
	}

	return toConditions(flow.FlowSegmentData), nil
}

func toConditions(d flowSegmentData) traffic.Conditions {
	c := traffic.Conditions{
		AverageSpeed:    d.CurrentSpeed,
		FreeFlowSpeed:   d.FreeFlowSpeed,
		CongestionLevel: traffic.CongestionFromSpeed(d.CurrentSpeed, d.FreeFlowSpeed),
		Density:         traffic.DensityFromSpeed(d.CurrentSpeed, d.FreeFlowSpeed),
		Confidence:      d.Confidence,
		Timestamp:       time.Now().UTC(),
	}
	if d.RoadClosure {
		c.CongestionLevel = 1
		c.AverageSpeed = 0
		c.Incidents = 1
	}
	return c
}

type flowResponse struct {
	FlowSegmentData flowSegmentData `json:"flowSegmentData"`
}

type flowSegmentData struct {
	FRC                string  `json:"frc"`
	CurrentSpeed       float64 `json:"currentSpeed"`
	FreeFlowSpeed      float64 `json:"freeFlowSpeed"`
	CurrentTravelTime  int     `json:"currentTravelTime"`
	FreeFlowTravelTime int     `json:"freeFlowTravelTime"`
	Confidence         float64 `json:"confidence"`
	RoadClosure        bool    `json:"roadClosure"`
}
