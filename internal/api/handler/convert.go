package handler

import (
	"fmt"

	"github.com/paulmach/orb"

	"github.com/routopia/routeengine/internal/api/models"
	"github.com/routopia/routeengine/internal/directions"
	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/optimizer"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/pkg/polyline"
)

func encodePath(path []geo.Point) string {
	ls := make(orb.LineString, len(path))
	for i, p := range path {
		ls[i] = p.Orb()
	}
	return polyline.Encode(ls)
}

func decodePath(encoded string) ([]geo.Point, error) {
	ls, err := polyline.Decode(encoded)
	if err != nil {
		return nil, err
	}
	path := make([]geo.Point, len(ls))
	for i, p := range ls {
		path[i] = geo.FromOrb(p)
	}
	return path, nil
}

// toRoute builds a domain route from client input. Segments without an
// activity inherit the preferences' activity, then walking.
func toRoute(in models.RouteInput, prefs routing.RoutePreferences, field string) (routing.Route, error) {
	if len(in.Segments) == 0 {
		return routing.Route{}, &routing.ValidationError{
			Field:   field + ".segments",
			Message: "at least one segment is required",
			Err:     routing.ErrEmptyRoute,
		}
	}

	segments := make([]routing.Segment, 0, len(in.Segments))
	for i, s := range in.Segments {
		seg, err := toSegment(s, prefs.Activity, fmt.Sprintf("%s.segments[%d]", field, i))
		if err != nil {
			return routing.Route{}, err
		}
		segments = append(segments, seg)
	}

	kind := in.Kind
	if kind == "" {
		kind = routing.KindBase
	}
	route := routing.NewRoute(kind, segments, prefs)
	if in.ID != "" {
		route.ID = in.ID
	}
	if err := route.Validate(); err != nil {
		return routing.Route{}, err
	}
	return route, nil
}

func toSegment(in models.SegmentInput, activity routing.Activity, field string) (routing.Segment, error) {
	path := in.Path
	if in.Polyline != "" {
		if len(in.Path) > 0 {
			return routing.Segment{}, &routing.ValidationError{Field: field, Message: "set either polyline or path, not both"}
		}
		decoded, err := decodePath(in.Polyline)
		if err != nil {
			return routing.Segment{}, &routing.ValidationError{Field: field + ".polyline", Message: err.Error(), Err: err}
		}
		path = decoded
	}

	if in.Activity != "" {
		activity = in.Activity
	}
	if activity == "" {
		activity = routing.ActivityWalk
	}
	if !activity.Valid() {
		return routing.Segment{}, &routing.ValidationError{
			Field:   field + ".activity",
			Message: fmt.Sprintf("unsupported activity %q", activity),
			Err:     routing.ErrUnknownActivity,
		}
	}
	if in.Surface != "" && !in.Surface.Valid() {
		return routing.Segment{}, &routing.ValidationError{
			Field:   field + ".surfaceType",
			Message: fmt.Sprintf("unknown surface %q", in.Surface),
		}
	}

	distance := geo.PathLength(path)
	if in.Distance != nil {
		if *in.Distance < 0 {
			return routing.Segment{}, &routing.ValidationError{Field: field + ".distance", Message: "must not be negative"}
		}
		distance = *in.Distance
	}
	duration := directions.EstimateDuration(distance, optimizer.ProfileFor(activity))
	if in.Duration != nil {
		if *in.Duration < 0 {
			return routing.Segment{}, &routing.ValidationError{Field: field + ".duration", Message: "must not be negative"}
		}
		duration = *in.Duration
	}

	return routing.Segment{
		Path:     path,
		Activity: activity,
		Metrics: routing.Metrics{
			Distance:      distance,
			Duration:      duration,
			ElevationGain: in.ElevationGain,
			ElevationLoss: in.ElevationLoss,
			Surface:       in.Surface,
		},
	}, nil
}

func routeResponse(r routing.Route) models.RouteResponse {
	segments := make([]models.SegmentResponse, len(r.Segments))
	for i, s := range r.Segments {
		segments[i] = models.SegmentResponse{
			Polyline: encodePath(s.Path),
			Activity: s.Activity,
			Metrics:  s.Metrics,
		}
	}
	return models.RouteResponse{
		ID:            r.ID,
		Kind:          r.Kind,
		Segments:      segments,
		TotalDistance: r.TotalDistance,
		TotalDuration: r.TotalDuration,
		CreatedAt:     models.Timestamp(r.CreatedAt),
	}
}

func routeResponses(routes []routing.Route) []models.RouteResponse {
	out := make([]models.RouteResponse, len(routes))
	for i, r := range routes {
		out[i] = routeResponse(r)
	}
	return out
}

func optimizeResponse(res *optimizer.OptimizedRoute) models.OptimizeResponse {
	alternatives := make([]models.AlternativeResponse, len(res.Alternatives))
	for i, a := range res.Alternatives {
		alternatives[i] = models.AlternativeResponse{
			ID:       a.ID,
			Kind:     a.Kind,
			Polyline: encodePath(a.Path),
			Metrics:  a.Metrics,
			Score:    a.Score,
		}
	}

	transitions := res.WeatherTransitions
	if transitions == nil {
		transitions = []optimizer.WeatherTransition{}
	}

	return models.OptimizeResponse{
		ID:                 res.ID,
		Polyline:           encodePath(res.Path),
		Metrics:            res.Metrics,
		Score:              res.Score,
		Warnings:           res.Warnings,
		Alternatives:       alternatives,
		WeatherTransitions: transitions,
		Season:             res.Season,
		Source:             res.Source,
	}
}
