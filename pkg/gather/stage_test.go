package gather

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kahaanigo/pkg/model"
)

type fakePOIs struct {
	delay time.Duration
	out   []model.PointOfInterest

	mu      sync.Mutex
	started time.Time
}

func (f *fakePOIs) FindNearby(_ context.Context, _, _ float64) []model.PointOfInterest {
	f.mu.Lock()
	f.started = time.Now()
	f.mu.Unlock()
	time.Sleep(f.delay)
	return f.out
}

type fakeArea struct {
	delay time.Duration
	out   model.AreaInfo

	mu      sync.Mutex
	started time.Time
}

func (f *fakeArea) Resolve(_ context.Context, _, _ float64) model.AreaInfo {
	f.mu.Lock()
	f.started = time.Now()
	f.mu.Unlock()
	time.Sleep(f.delay)
	return f.out
}

type fakeResearch struct {
	out     string
	gotName string
}

func (f *fakeResearch) Lookup(_ context.Context, name string, _ model.Preferences) string {
	f.gotName = name
	return f.out
}

func TestGatherAssemblesData(t *testing.T) {
	pois := &fakePOIs{out: []model.PointOfInterest{{Name: "Mount Mary Basilica", Type: "place_of_worship"}}}
	area := &fakeArea{out: model.AreaInfo{Neighborhood: "Bandra West", Area: "Zone 3", City: "Mumbai"}}
	research := &fakeResearch{out: "Bandra history."}

	s := NewStage(pois, area, research)
	got := s.Gather(context.Background(),
		model.LocationRef{Lat: 19.0596, Lng: 72.8295, Name: "Bandra"},
		model.Preferences{})

	assert.Equal(t, pois.out, got.POIs)
	assert.Equal(t, area.out, got.AreaInfo)
	assert.Equal(t, "Bandra history.", got.ScrapedContent)
	assert.Equal(t, "Bandra West", got.Location.Name, "geocoded neighborhood wins")
	assert.Equal(t, "Bandra West", research.gotName, "research uses the resolved name")
	assert.Equal(t, 19.0596, got.Location.Lat)
}

func TestGatherFallsBackToCallerName(t *testing.T) {
	s := NewStage(
		&fakePOIs{out: nil},
		&fakeArea{out: model.AreaInfo{City: "Mumbai"}},
		&fakeResearch{out: "x"},
	)

	got := s.Gather(context.Background(),
		model.LocationRef{Lat: 19, Lng: 72.8, Name: "Custom Pin"},
		model.Preferences{})

	assert.Equal(t, "Custom Pin", got.Location.Name)
}

func TestGatherRunsLookupsConcurrently(t *testing.T) {
	pois := &fakePOIs{delay: 100 * time.Millisecond}
	area := &fakeArea{delay: 100 * time.Millisecond}
	s := NewStage(pois, area, &fakeResearch{})

	start := time.Now()
	s.Gather(context.Background(), model.LocationRef{Name: "X"}, model.Preferences{})
	elapsed := time.Since(start)

	// Sequential execution would take >=200ms.
	assert.Less(t, elapsed, 180*time.Millisecond, "POI and geocode lookups must overlap")
}
