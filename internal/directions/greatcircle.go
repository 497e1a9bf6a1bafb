package directions

import (
	"context"
	"math"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// GreatCircle is a provider that returns the great-circle path between the two
// points. It never fails and is used when no road network provider is available.
type GreatCircle struct {
	// StepMeters is the spacing between path points (default: 1000).
	StepMeters float64
}

var _ Provider = GreatCircle{}

// nominal speeds in km/h used for duration estimates.
var profileSpeed = map[Profile]float64{
	ProfileWalk:  5,
	ProfileHike:  4,
	ProfileBike:  15,
	ProfileDrive: 50,
}

// EstimateDuration returns the seconds needed to cover distance meters at the
// profile's nominal speed. Unknown profiles travel at walking pace.
func EstimateDuration(distance float64, profile Profile) float64 {
	speed, ok := profileSpeed[profile]
	if !ok {
		speed = profileSpeed[ProfileWalk]
	}
	return distance / (speed / 3.6)
}

// Name returns the provider name.
func (GreatCircle) Name() string {
	return "greatcircle"
}

// SupportedProfiles returns every profile.
func (GreatCircle) SupportedProfiles() []Profile {
	return []Profile{ProfileWalk, ProfileHike, ProfileBike, ProfileDrive}
}

// GetDirections returns a single great-circle route.
func (g GreatCircle) GetDirections(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Origin.Validate(); err != nil {
		return nil, err
	}
	if err := req.Destination.Validate(); err != nil {
		return nil, err
	}

	return &Response{
		Routes:    []Route{g.Route(req.Origin, req.Destination, req.Profile)},
		Provider:  g.Name(),
		FetchedAt: time.Now(),
	}, nil
}

// Route builds the great-circle route between a and b.
func (g GreatCircle) Route(a, b geo.Point, profile Profile) Route {
	step := g.StepMeters
	if step <= 0 {
		step = 1000
	}

	distance := geo.Distance(a, b)
	n := int(math.Ceil(distance / step))
	n = max(1, min(n, 500))

	path := geo.GreatCirclePath(a, b, n)

	return Route{
		Path:            path,
		DistanceMeters:  distance,
		DurationSeconds: EstimateDuration(distance, profile),
		Summary:         "direct",
		Bound:           geo.Bound(path),
	}
}
