// Package geo provides spatial helpers for cache locality and distances.
package geo

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution used for provider cache keys.
// Resolution 9 cells are ~170m across, so map clicks in the same block
// share POI and geocode cache entries.
const CellResolution = 9

// CellKey returns a stable cache-key fragment for a coordinate.
// Falls back to coarse coordinate rounding if H3 indexing fails.
func CellKey(lat, lng float64) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), CellResolution)
	if err != nil {
		return fmt.Sprintf("%.3f,%.3f", lat, lng)
	}
	return cell.String()
}

// DistanceM returns the great-circle distance in meters between two points.
func DistanceM(lat1, lng1, lat2, lng2 float64) float64 {
	return geo.Distance(orb.Point{lng1, lat1}, orb.Point{lng2, lat2})
}
