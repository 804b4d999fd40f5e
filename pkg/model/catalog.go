package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Catalog is the fixed set of selectable story locations.
var Catalog = []Location{
	{ID: "andheri", Name: "Andheri", Lat: 19.1197, Lng: 72.8464, Description: "The sleepless heart of entertainment"},
	{ID: "bandra", Name: "Bandra", Lat: 19.0596, Lng: 72.8295, Description: "Queen of the Suburbs"},
	{ID: "colaba", Name: "Colaba", Lat: 18.9067, Lng: 72.8147, Description: "Gateway to history"},
	{ID: "dharavi", Name: "Dharavi", Lat: 19.0420, Lng: 72.8522, Description: "City within a city"},
	{ID: "juhu", Name: "Juhu", Lat: 19.0883, Lng: 72.8263, Description: "Sands of stardom"},
	{ID: "marine-lines", Name: "Marine Lines", Lat: 18.9432, Lng: 72.8235, Description: "The Queen's Necklace"},
	{ID: "worli", Name: "Worli", Lat: 19.0176, Lng: 72.8150, Description: "Where sea meets sky"},
	{ID: "dadar", Name: "Dadar", Lat: 19.0178, Lng: 72.8478, Description: "The cultural pulse"},
	{ID: "fort", Name: "Fort", Lat: 18.9322, Lng: 72.8353, Description: "Colonial echoes"},
	{ID: "powai", Name: "Powai", Lat: 19.1176, Lng: 72.9060, Description: "Lakeside innovation"},
}

// catalogSnapDistanceM is how close a map click must be to a catalog entry
// before it is treated as that entry rather than a custom location.
const catalogSnapDistanceM = 1000.0

// CatalogByID returns the catalog entry with the given ID, if any.
func CatalogByID(id string) (Location, bool) {
	for _, l := range Catalog {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// LocationFromPoint resolves a map click into a Location: a catalog entry
// if one is within snapping distance, otherwise a synthesized location
// with a temporary identifier.
func LocationFromPoint(lat, lng float64, name string) Location {
	click := orb.Point{lng, lat}

	best := -1
	bestDist := catalogSnapDistanceM
	for i, l := range Catalog {
		d := geo.Distance(click, orb.Point{l.Lng, l.Lat})
		if d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best >= 0 {
		return Catalog[best]
	}

	if name == "" {
		name = fmt.Sprintf("%.4f, %.4f", lat, lng)
	}
	return Location{
		ID:   "custom-" + uuid.New().String(),
		Name: name,
		Lat:  lat,
		Lng:  lng,
	}
}
