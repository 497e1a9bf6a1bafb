// Package openrouteservice implements directions.Provider on top of the
// OpenRouteService directions API.
package openrouteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/routopia/routeengine/internal/directions"
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/provider/resilience"
	"github.com/routopia/routeengine/pkg/polyline"
)

const (
	// ProviderName identifies this directions provider.
	ProviderName = "openrouteservice"

	// DefaultBaseURL is the public ORS endpoint.
	DefaultBaseURL = "https://api.openrouteservice.org"

	// DefaultTimeout bounds a single HTTP attempt.
	DefaultTimeout = 10 * time.Second

	defaultAlternatives = 2
)

// HTTPDoer executes HTTP requests. *resilience.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the OpenRouteService client.
type ClientConfig struct {
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilience.Client named ProviderName.
	HTTPClient HTTPDoer
	Timeout    time.Duration
	Registry   *resilience.Registry

	Logger zerolog.Logger
}

// Client is an OpenRouteService API client.
type Client struct {
	apiKey  string
	baseURL string
	http    HTTPDoer
	logger  zerolog.Logger
}

var _ directions.Provider = (*Client)(nil)

// NewClient creates a new OpenRouteService client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger.With().Str("provider", ProviderName).Logger(),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.http == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Registry = cfg.Registry
		rc.Timeout = DefaultTimeout
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		c.http = resilience.NewClient(rc)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return ProviderName }

// SupportedProfiles returns every profile ORS routes.
func (c *Client) SupportedProfiles() []directions.Profile {
	return []directions.Profile{
		directions.ProfileWalk,
		directions.ProfileHike,
		directions.ProfileBike,
		directions.ProfileDrive,
	}
}

// GetDirections requests the primary route plus up to MaxAlternatives
// alternatives between the two points.
func (c *Client) GetDirections(ctx context.Context, req directions.Request) (*directions.Response, error) {
	if err := req.Origin.Validate(); err != nil {
		return nil, failure("INVALID_ORIGIN", "invalid origin coordinates", err)
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, failure("INVALID_DESTINATION", "invalid destination coordinates", err)
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("profile", string(req.Profile)).
		Float64("origin_lat", req.Origin.Lat).
		Float64("origin_lng", req.Origin.Lng).
		Float64("dest_lat", req.Destination.Lat).
		Float64("dest_lng", req.Destination.Lng).
		Msg("requesting directions")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, failure("REQUEST_FAILED", "failed to reach directions provider",
			fmt.Errorf("%w: %w", directions.ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, mapError(resp.StatusCode, body)
	}

	var decoded routeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	routes, err := toRoutes(decoded.Routes)
	if err != nil {
		return nil, failure("BAD_GEOMETRY", "provider returned an undecodable geometry", err)
	}
	c.logger.Debug().Int("route_count", len(routes)).Msg("received directions")

	return &directions.Response{
		Routes:    routes,
		Provider:  ProviderName,
		FetchedAt: time.Now(),
	}, nil
}

func (c *Client) newRequest(ctx context.Context, req directions.Request) (*http.Request, error) {
	alts := req.MaxAlternatives
	if alts <= 0 {
		alts = defaultAlternatives
	}

	body, err := json.Marshal(routeRequest{
		Coordinates: [][2]float64{
			{req.Origin.Lng, req.Origin.Lat},
			{req.Destination.Lng, req.Destination.Lat},
		},
		Alternatives: &alternatives{TargetCount: alts + 1},
		Options:      avoid(req),
		Instructions: true,
		Geometry:     true,
		Units:        "m",
		Language:     "en",
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/v2/directions/" + string(req.Profile)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Authorization", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, application/geo+json")
	return httpReq, nil
}

// avoid builds avoid_features. ORS honours them only for driving.
func avoid(req directions.Request) *avoidOptions {
	if req.Profile != directions.ProfileDrive {
		return nil
	}
	var features []string
	if req.AvoidHighways {
		features = append(features, "highways")
	}
	if req.AvoidTolls {
		features = append(features, "tollways")
	}
	if len(features) == 0 {
		return nil
	}
	return &avoidOptions{AvoidFeatures: features}
}

func failure(code, msg string, err error) *directions.Error {
	return &directions.Error{Provider: ProviderName, Code: code, Message: msg, Err: err}
}

// mapError turns a non-200 answer into a directions.Error.
func mapError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err != nil {
		return failure(fmt.Sprintf("HTTP_%d", status),
			fmt.Sprintf("directions provider returned status %d", status),
			directions.ErrProviderUnavailable)
	}
	msg := apiErr.Error.Message

	switch {
	case status == http.StatusTooManyRequests:
		return failure("RATE_LIMIT", "API rate limit exceeded, please try again later", directions.ErrRateLimitExceeded)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return failure("FORBIDDEN", "API access denied, check the API key", directions.ErrProviderUnavailable)
	case status == http.StatusNotFound:
		return failure("NO_ROUTE", "no route found between the given points", directions.ErrNoRouteFound)
	case status == http.StatusBadRequest:
		switch apiErr.Error.Code {
		case codeRouteNotFound, codePointNotFound:
			return failure("NO_ROUTE", msg, directions.ErrNoRouteFound)
		case codeUnsupportedProfile:
			return failure("UNSUPPORTED_PROFILE", msg, directions.ErrUnsupportedProfile)
		default:
			return failure("BAD_REQUEST", msg, geo.ErrInvalidCoordinates)
		}
	case status >= http.StatusInternalServerError:
		return failure(fmt.Sprintf("SERVER_%d", status), "directions provider is temporarily unavailable", directions.ErrProviderUnavailable)
	default:
		return failure(fmt.Sprintf("HTTP_%d", status), msg, directions.ErrProviderUnavailable)
	}
}

// toRoutes decodes each route geometry and flattens its steps.
func toRoutes(in []route) ([]directions.Route, error) {
	out := make([]directions.Route, 0, len(in))
	for i := range in {
		r := &in[i]

		ls, err := polyline.Decode(r.Geometry)
		if err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
		path := make([]geo.Point, len(ls))
		for j, p := range ls {
			path[j] = geo.FromOrb(p)
		}

		dr := directions.Route{
			Path:            path,
			DistanceMeters:  r.Summary.Distance,
			DurationSeconds: r.Summary.Duration,
			Bound:           ls.Bound(),
		}

		// The route is named after its longest named step.
		var longest step
		for _, seg := range r.Segments {
			for _, s := range seg.Steps {
				dr.Instructions = append(dr.Instructions, directions.Instruction{
					Text:           s.Instruction,
					DistanceMeters: s.Distance,
					DurationSecs:   s.Duration,
					Type:           s.Type,
				})
				if s.Name != "" && s.Name != "-" && s.Distance > longest.Distance {
					longest = s
				}
			}
		}
		dr.Summary = longest.Name

		out = append(out, dr)
	}
	return out, nil
}
