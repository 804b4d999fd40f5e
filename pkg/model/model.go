package model

import (
	"time"
)

// Location represents a story location. Immutable once selected.
type Location struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Description string  `json:"description,omitempty"`
}

// PointOfInterest is a named place near a location, as returned by the
// POI provider. Order is the provider's order; it is never re-sorted.
type PointOfInterest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AreaInfo is the resolved administrative context of a location.
// City is always non-empty; the geocode adapter substitutes a default
// when resolution fails.
type AreaInfo struct {
	Neighborhood string `json:"neighborhood"`
	Area         string `json:"area"`
	City         string `json:"city"`
}

// LocationRef is the lat/lng/name triple echoed through the pipeline.
type LocationRef struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

// GatheredData is the output of the data gathering stage.
// Owned by the gathering stage; read-only downstream.
type GatheredData struct {
	POIs           []PointOfInterest `json:"pois"`
	AreaInfo       AreaInfo          `json:"areaInfo"`
	ScrapedContent string            `json:"scrapedContent"`
	Location       LocationRef       `json:"location"`
}

// StoryData is the finished pipeline product and the sole input to playback.
type StoryData struct {
	GatheredData
	Script        string      `json:"script"`
	KnowledgeBase string      `json:"knowledgeBase"`
	Preferences   Preferences `json:"preferences"`
}

// TranscriptRole labels the origin of a transcript entry.
type TranscriptRole string

const (
	RoleAgent  TranscriptRole = "agent"
	RoleUser   TranscriptRole = "user"
	RoleSystem TranscriptRole = "system"
)

// TranscriptEntry is one append-only line of conversational history.
type TranscriptEntry struct {
	Role      TranscriptRole `json:"role"`
	Text      string         `json:"text"`
	Timestamp time.Time      `json:"timestamp"`
}
