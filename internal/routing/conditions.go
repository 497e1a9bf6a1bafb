package routing

import (
	"context"
	"errors"
	"sync"

	"github.com/routopia/routeengine/internal/geo"
	"github.com/routopia/routeengine/internal/terrain"
	"github.com/routopia/routeengine/internal/traffic"
	"github.com/routopia/routeengine/internal/weather"
)

// Providers groups the condition providers consulted by the engine.
// A nil provider is skipped by Fetch.
type Providers struct {
	Weather weather.Provider
	Traffic traffic.Provider
	Terrain terrain.Provider
}

// Snapshot is the set of conditions observed at one point. Each kind carries
// its own error so a failed fetch does not hide the others.
type Snapshot struct {
	Weather    weather.Conditions
	WeatherErr error
	Traffic    traffic.Conditions
	TrafficErr error
	Terrain    terrain.Conditions
	TerrainErr error
}

// Err joins every fetch error, or returns nil when all succeeded.
func (s Snapshot) Err() error {
	return errors.Join(s.WeatherErr, s.TrafficErr, s.TerrainErr)
}

// Failed returns the number of kinds that could not be fetched.
func (s Snapshot) Failed() int {
	n := 0
	for _, err := range []error{s.WeatherErr, s.TrafficErr, s.TerrainErr} {
		if err != nil {
			n++
		}
	}
	return n
}

// Fetch queries every configured provider for p concurrently and waits for
// all of them to settle.
func (ps Providers) Fetch(ctx context.Context, p geo.Point) Snapshot {
	var (
		s  Snapshot
		wg sync.WaitGroup
	)

	if ps.Weather != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Weather, s.WeatherErr = ps.Weather.GetConditions(ctx, p)
		}()
	}
	if ps.Traffic != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Traffic, s.TrafficErr = ps.Traffic.GetConditions(ctx, p)
		}()
	}
	if ps.Terrain != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Terrain, s.TerrainErr = ps.Terrain.GetConditions(ctx, p)
		}()
	}

	wg.Wait()
	return s
}
