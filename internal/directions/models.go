// Package directions provides base route geometry between two points.
package directions

import (
	"context"
	"errors"
	"time"

	"github.com/paulmach/orb"

	"github.com/routopia/routeengine/internal/geo"
)

// Sentinel errors for directions operations.
var (
	// ErrProviderUnavailable indicates the provider is down or the circuit breaker is open.
	ErrProviderUnavailable = errors.New("directions provider unavailable")
	// ErrNoRouteFound indicates no valid route exists between the given points.
	ErrNoRouteFound = errors.New("no route found between the given points")
	// ErrRateLimitExceeded indicates the API quota has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	// ErrUnsupportedProfile indicates the provider cannot route the requested profile.
	ErrUnsupportedProfile = errors.New("unsupported profile")
)

// Provider defines the interface for directions providers.
type Provider interface {
	// GetDirections retrieves routes between two points, best first.
	GetDirections(ctx context.Context, req Request) (*Response, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
	// SupportedProfiles returns the profiles this provider can route.
	SupportedProfiles() []Profile
}

// Profile is a routing profile (mode of transport).
type Profile string

const (
	ProfileWalk  Profile = "foot-walking"
	ProfileHike  Profile = "foot-hiking"
	ProfileBike  Profile = "cycling-regular"
	ProfileDrive Profile = "driving-car"
)

// Request is the request for computing routes.
type Request struct {
	Origin      geo.Point
	Destination geo.Point
	Profile     Profile

	// MaxAlternatives is the number of alternatives beyond the best route (default: 2).
	MaxAlternatives int

	AvoidHighways bool
	AvoidTolls    bool
}

// Response contains the best route followed by any alternatives.
type Response struct {
	Routes    []Route
	Provider  string
	FetchedAt time.Time
}

// Route is a single route option.
type Route struct {
	Path            []geo.Point
	DistanceMeters  float64
	DurationSeconds float64
	Summary         string
	Bound           orb.Bound
	Instructions    []Instruction
}

// Instruction is a turn-by-turn instruction.
type Instruction struct {
	Text           string
	DistanceMeters float64
	DurationSecs   float64
	Type           int
}

// Error provides detailed error information from a directions provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code from the provider
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrProviderUnavailable) || errors.Is(e.Err, ErrRateLimitExceeded)
}
