// Package worker warms the condition provider caches in the background so
// route requests for busy areas are served from cache.
package worker

import (
	"slices"
	"time"

	"github.com/routopia/routeengine/internal/geo"
)

// RefreshTarget is an area whose conditions are kept warm.
type RefreshTarget struct {
	Name string

	// Points are sampled independently. Points closer than the cache grid
	// size share a cache entry, so one per district is enough.
	Points []geo.Point

	// Priority orders refresh work (lower first).
	Priority int
}

// RefreshConfig configures the conditions refresh job.
type RefreshConfig struct {
	// Targets to refresh. If empty, DefaultRefreshTargets is used.
	Targets []RefreshTarget

	// Concurrency is the number of points refreshed at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the refresh of a single point across all providers.
	// Default: 30 seconds
	Timeout time.Duration

	RefreshWeather bool
	RefreshTraffic bool
	RefreshTerrain bool
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:        DefaultRefreshTargets(),
		Concurrency:    3,
		Timeout:        30 * time.Second,
		RefreshWeather: true,
		RefreshTraffic: true,
		RefreshTerrain: true,
	}
}

// DefaultRefreshTargets returns the city centres refreshed when nothing else
// is configured.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{
			Name:     "Amsterdam",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 52.3676, Lng: 4.9041}, // Centraal
				{Lat: 52.3386, Lng: 4.8919}, // Zuid
				{Lat: 52.3894, Lng: 4.9006}, // Noord
			},
		},
		{
			Name:     "Paris",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 48.8566, Lng: 2.3522}, // Hôtel de Ville
				{Lat: 48.8443, Lng: 2.3744}, // Gare de Lyon
				{Lat: 48.8809, Lng: 2.3553}, // Gare du Nord
			},
		},
		{
			Name:     "Berlin",
			Priority: 1,
			Points: []geo.Point{
				{Lat: 52.5251, Lng: 13.3694}, // Hauptbahnhof
				{Lat: 52.5200, Lng: 13.4050}, // Mitte
			},
		},
		{
			Name:     "London",
			Priority: 2,
			Points: []geo.Point{
				{Lat: 51.5074, Lng: -0.1278}, // Charing Cross
				{Lat: 51.5308, Lng: -0.1238}, // King's Cross
			},
		},
		{
			Name:     "Zurich",
			Priority: 2,
			Points: []geo.Point{
				{Lat: 47.3779, Lng: 8.5403}, // HB
				{Lat: 47.3493, Lng: 8.4920}, // Uetliberg
			},
		},
		{
			Name:     "Sydney",
			Priority: 3,
			Points: []geo.Point{
				{Lat: -33.8688, Lng: 151.2093}, // CBD
			},
		},
	}
}

// AllPoints returns the points of every target, highest priority first.
func (c RefreshConfig) AllPoints() []geo.Point {
	targets := slices.Clone(c.Targets)
	slices.SortStableFunc(targets, func(a, b RefreshTarget) int {
		return a.Priority - b.Priority
	})

	points := make([]geo.Point, 0, c.TotalPoints())
	for _, target := range targets {
		points = append(points, target.Points...)
	}
	return points
}

// TotalPoints returns the number of points to refresh.
func (c RefreshConfig) TotalPoints() int {
	total := 0
	for _, target := range c.Targets {
		total += len(target.Points)
	}
	return total
}
