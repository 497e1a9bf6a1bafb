// Package openweathermap implements weather.Provider over the OpenWeatherMap current weather API.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap API base URL.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	// freezingRainID is the OpenWeatherMap condition code for freezing rain.
	freezingRainID = 511
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is the OpenWeatherMap API key (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenWeatherMap API).
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

var _ weather.Provider = (*Client)(nil)

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetConditions fetches current weather for a point.
func (c *Client) GetConditions(ctx context.Context, p geo.Point) (weather.Conditions, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Lat, 'f', 6, 64))
	q.Set("lon", strconv.FormatFloat(p.Lng, 'f', 6, 64))
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), http.NoBody)
	if err != nil {
		return weather.Conditions{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return weather.Conditions{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return weather.Conditions{}, resilience.Permanent(weather.ErrNoDataForLocation)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return weather.Conditions{}, resilience.Permanent(fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return weather.Conditions{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var owmResp currentWeatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return weather.Conditions{}, fmt.Errorf("decoding response: %w", err)
	}

	return toConditions(&owmResp), nil
}

// toConditions converts an OpenWeatherMap response to domain conditions.
func toConditions(resp *currentWeatherResponse) weather.Conditions {
	c := weather.Conditions{
		Temperature:   resp.Main.Temp,
		WindSpeed:     resp.Wind.Speed * 3.6, // m/s to km/h
		Precipitation: resp.Rain.OneHour + resp.Snow.OneHour,
		Visibility:    float64(resp.Visibility),
		Humidity:      resp.Main.Humidity,
		ObservedAt:    time.Unix(resp.Dt, 0).UTC(),
	}

	seen := make(map[weather.Tag]bool)
	add := func(tags ...weather.Tag) {
		for _, t := range tags {
			if !seen[t] {
				seen[t] = true
				c.Tags = append(c.Tags, t)
			}
		}
	}

	for _, w := range resp.Weather {
		add(mapCondition(w.ID, w.Main)...)
	}
	if seen[weather.TagRain] && c.Temperature <= 0 {
		add(weather.TagIce)
	}

	c.Severity = weather.Severity(c)
	return c
}

// mapCondition maps an OpenWeatherMap condition group to domain tags.
func mapCondition(id int, main string) []weather.Tag {
	if id == freezingRainID {
		return []weather.Tag{weather.TagRain, weather.TagIce}
	}

	switch main {
	case "Clear":
		return []weather.Tag{weather.TagClear}
	case "Clouds":
		return []weather.Tag{weather.TagClouds}
	case "Rain", "Drizzle":
		return []weather.Tag{weather.TagRain}
	case "Thunderstorm", "Squall", "Tornado":
		return []weather.Tag{weather.TagStorm, weather.TagRain}
	case "Snow":
		return []weather.Tag{weather.TagSnow}
	case "Mist", "Fog", "Haze", "Smoke", "Dust", "Sand", "Ash":
		return []weather.Tag{weather.TagFog}
	default:
		return nil
	}
}

type precipitation struct {
	OneHour float64 `json:"1h"`
}

type currentWeatherResponse struct {
	Coord struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		ID          int    `json:"id"`
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Rain precipitation `json:"rain"`
	Snow precipitation `json:"snow"`
	Dt   int64         `json:"dt"`
}
