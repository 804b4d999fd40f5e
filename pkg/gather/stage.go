// Package gather runs the data gathering stage: POIs, area context, research.
package gather

import (
	"context"
	"log/slog"
	"time"

	"kahaanigo/pkg/model"
)

// POIFinder finds named points of interest around a coordinate.
type POIFinder interface {
	FindNearby(ctx context.Context, lat, lng float64) []model.PointOfInterest
}

// AreaResolver reverse-geocodes a coordinate into administrative context.
type AreaResolver interface {
	Resolve(ctx context.Context, lat, lng float64) model.AreaInfo
}

// Researcher fetches background content for a resolved place name.
type Researcher interface {
	Lookup(ctx context.Context, locationName string, prefs model.Preferences) string
}

// Stage assembles GatheredData for a location. Its adapters absorb provider
// failures internally, so Gather always succeeds structurally.
type Stage struct {
	pois     POIFinder
	area     AreaResolver
	research Researcher
}

// NewStage creates a new data gathering stage.
func NewStage(p POIFinder, a AreaResolver, r Researcher) *Stage {
	return &Stage{pois: p, area: a, research: r}
}

// Gather collects POIs and area context concurrently, then researches the
// resolved place name. The resolved name prefers the geocoded neighborhood
// and falls back to the caller-supplied location name.
func (s *Stage) Gather(ctx context.Context, loc model.LocationRef, prefs model.Preferences) model.GatheredData {
	start := time.Now()

	poisCh := make(chan []model.PointOfInterest, 1)
	areaCh := make(chan model.AreaInfo, 1)

	go func() { poisCh <- s.pois.FindNearby(ctx, loc.Lat, loc.Lng) }()
	go func() { areaCh <- s.area.Resolve(ctx, loc.Lat, loc.Lng) }()

	pois := <-poisCh
	area := <-areaCh

	name := area.Neighborhood
	if name == "" {
		name = loc.Name
	}

	content := s.research.Lookup(ctx, name, prefs)

	slog.Info("Data gathered", "location", name, "pois", len(pois), "took", time.Since(start))

	return model.GatheredData{
		POIs:           pois,
		AreaInfo:       area,
		ScrapedContent: content,
		Location:       model.LocationRef{Lat: loc.Lat, Lng: loc.Lng, Name: name},
	}
}
