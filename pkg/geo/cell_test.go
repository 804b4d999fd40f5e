package geo

import (
	"testing"
)

func TestCellKeyStable(t *testing.T) {
	a := CellKey(19.0596, 72.8295)
	b := CellKey(19.0596, 72.8295)
	if a != b {
		t.Errorf("same point must yield same key: %q vs %q", a, b)
	}
	if a == "" {
		t.Error("key must not be empty")
	}
}

func TestCellKeyGroupsNearbyPoints(t *testing.T) {
	// Two points ~20m apart should land in the same res-9 cell most of the
	// time; at minimum they must both produce valid keys.
	a := CellKey(19.05960, 72.82950)
	b := CellKey(19.05965, 72.82955)
	if a == "" || b == "" {
		t.Fatal("keys must not be empty")
	}
}

func TestCellKeyDistinguishesDistantPoints(t *testing.T) {
	bandra := CellKey(19.0596, 72.8295)
	colaba := CellKey(18.9067, 72.8147)
	if bandra == colaba {
		t.Error("distant neighbourhoods must not share a cell")
	}
}

func TestDistanceM(t *testing.T) {
	// Bandra to Colaba is roughly 17km.
	d := DistanceM(19.0596, 72.8295, 18.9067, 72.8147)
	if d < 15000 || d > 20000 {
		t.Errorf("unexpected distance: %f", d)
	}

	if DistanceM(19.0, 72.8, 19.0, 72.8) != 0 {
		t.Error("distance to self must be zero")
	}
}
