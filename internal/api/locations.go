package api

import (
	"net/http"

	"kahaanigo/pkg/model"
)

// LocationsHandler serves the fixed location catalog.
type LocationsHandler struct{}

// NewLocationsHandler creates a new LocationsHandler.
func NewLocationsHandler() *LocationsHandler {
	return &LocationsHandler{}
}

// HandleList returns the selectable story locations.
func (h *LocationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"locations": model.Catalog})
}
