package optimizer

import (
	"context"
	"errors"
	"sync"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/routing"
	"github.com/routopia/routeengine/internal/weather"
)

var errNoTerrainSample = errors.New("no terrain provider for sampling")

// sampleFractions are the positions along the path where conditions are sampled.
var sampleFractions = []float64{0, 0.5, 1}

// sample is the conditions observed at one point along the path.
type sample struct {
	position geo.Point
	distance float64
	snapshot routing.Snapshot
}

// sampleConditions fetches weather and terrain at each sample fraction of path.
// The start reuses start, refetching its terrain when fetchStartTerrain is set.
func (o *Optimizer) sampleConditions(ctx context.Context, path []geo.Point, start routing.Snapshot, fetchStartTerrain bool) []sample {
	total := geo.PathLength(path)
	providers := o.engine.Providers()
	providers.Traffic = nil

	samples := make([]sample, len(sampleFractions))
	var wg sync.WaitGroup

	for i, f := range sampleFractions {
		p := pointAlong(path, f*total)
		samples[i] = sample{position: p, distance: f * total}
		if i > 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				samples[i].snapshot = providers.Fetch(ctx, p)
			}()
			continue
		}

		samples[i].snapshot = start
		if !fetchStartTerrain {
			continue
		}
		if providers.Terrain == nil {
			samples[i].snapshot.TerrainErr = errNoTerrainSample
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := routing.Providers{Terrain: providers.Terrain}.Fetch(ctx, p)
			samples[i].snapshot.Terrain, samples[i].snapshot.TerrainErr = s.Terrain, s.TerrainErr
		}()
	}

	wg.Wait()
	return samples
}

// pointAlong returns the point d meters along path.
func pointAlong(path []geo.Point, d float64) geo.Point {
	for i := 1; i < len(path); i++ {
		leg := geo.Distance(path[i-1], path[i])
		if d <= leg {
			if leg == 0 {
				return path[i]
			}
			return geo.Interpolate(path[i-1], path[i], d/leg)
		}
		d -= leg
	}
	return path[len(path)-1]
}

// tagPriority orders weather tags from most to least significant.
var tagPriority = []weather.Tag{
	weather.TagStorm,
	weather.TagSnow,
	weather.TagIce,
	weather.TagRain,
	weather.TagFog,
	weather.TagClouds,
	weather.TagClear,
}

func dominant(c weather.Conditions) weather.Tag {
	for _, t := range tagPriority {
		if c.Has(t) {
			return t
		}
	}
	return weather.TagClear
}

// transitions reports every change of dominant weather between consecutive
// samples with weather data.
func transitions(samples []sample) []WeatherTransition {
	var (
		out  []WeatherTransition
		prev weather.Tag
	)
	for _, s := range samples {
		if s.snapshot.WeatherErr != nil {
			continue
		}
		tag := dominant(s.snapshot.Weather)
		if prev != "" && tag != prev {
			out = append(out, WeatherTransition{
				Position: s.position,
				Distance: s.distance,
				From:     prev,
				To:       tag,
			})
		}
		prev = tag
	}
	return out
}

// elevationGain sums the climbs between consecutive samples with terrain data.
func elevationGain(samples []sample) float64 {
	var (
		gain float64
		prev *float64
	)
	for _, s := range samples {
		if s.snapshot.TerrainErr != nil {
			continue
		}
		e := s.snapshot.Terrain.Elevation
		if prev != nil && e > *prev {
			gain += e - *prev
		}
		prev = &e
	}
	return gain
}
