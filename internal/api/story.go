package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"kahaanigo/pkg/gather"
	"kahaanigo/pkg/model"
	"kahaanigo/pkg/pipeline"
	"kahaanigo/pkg/script"
)

// StoryHandler serves the pipeline stage endpoints and the orchestrator
// control surface.
type StoryHandler struct {
	gather       *gather.Stage
	script       *script.Stage
	orchestrator *pipeline.Orchestrator
}

// NewStoryHandler creates a new StoryHandler.
func NewStoryHandler(g *gather.Stage, s *script.Stage, o *pipeline.Orchestrator) *StoryHandler {
	return &StoryHandler{gather: g, script: s, orchestrator: o}
}

type gatherRequest struct {
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
	LocationName string  `json:"locationName"`
	StoryMode    string  `json:"storyMode"`
	DateRange    string  `json:"dateRange"`
}

// HandleGatherData runs the data gathering stage once and returns the result.
// The stage absorbs provider failures, so the response is always 200 with
// possibly degraded content.
func (h *StoryHandler) HandleGatherData(w http.ResponseWriter, r *http.Request) {
	var req gatherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Lat == 0 && req.Lng == 0 {
		writeError(w, http.StatusBadRequest, "lat and lng are required", "")
		return
	}

	prefs := model.Preferences{StoryMode: req.StoryMode, DateRange: req.DateRange}
	prefs.Normalize()
	data := h.gather.Gather(r.Context(), model.LocationRef{Lat: req.Lat, Lng: req.Lng, Name: req.LocationName}, prefs)
	writeJSON(w, http.StatusOK, data)
}

type generateRequest struct {
	POIs           []model.PointOfInterest `json:"pois"`
	AreaInfo       model.AreaInfo          `json:"areaInfo"`
	ScrapedContent string                  `json:"scrapedContent"`
	Location       model.LocationRef       `json:"location"`
	Preferences    model.Preferences       `json:"preferences"`
}

// HandleGenerateScript runs the script generation stage on gathered data
// supplied by the caller. Like gathering, it degrades instead of failing.
func (h *StoryHandler) HandleGenerateScript(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	req.Preferences.Normalize()
	res := h.script.Generate(r.Context(), model.GatheredData{
		POIs:           req.POIs,
		AreaInfo:       req.AreaInfo,
		ScrapedContent: req.ScrapedContent,
		Location:       req.Location,
	}, req.Preferences)
	writeJSON(w, http.StatusOK, res)
}

type runRequest struct {
	LocationID  string            `json:"locationId"`
	Lat         float64           `json:"lat"`
	Lng         float64           `json:"lng"`
	Name        string            `json:"name"`
	Preferences model.Preferences `json:"preferences"`
}

// HandleRun starts a full pipeline run. A run started while another is in
// flight supersedes it; the older run's results are silently dropped.
func (h *StoryHandler) HandleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	var loc model.Location
	if req.LocationID != "" {
		var ok bool
		loc, ok = model.CatalogByID(req.LocationID)
		if !ok {
			writeError(w, http.StatusNotFound, "unknown location", req.LocationID)
			return
		}
	} else {
		if req.Lat == 0 && req.Lng == 0 {
			writeError(w, http.StatusBadRequest, "locationId or lat/lng required", "")
			return
		}
		loc = model.LocationFromPoint(req.Lat, req.Lng, req.Name)
	}

	slog.Info("Pipeline run requested", "location", loc.Name)
	// The run outlives this request; detach it from the request context.
	ctx := context.WithoutCancel(r.Context())
	token := h.orchestrator.Run(ctx, model.LocationRef{Lat: loc.Lat, Lng: loc.Lng, Name: loc.Name}, req.Preferences)
	writeJSON(w, http.StatusAccepted, map[string]any{"run": token})
}

// HandleStatus reports the orchestrator state. The finished story rides along
// once the pipeline is done.
func (h *StoryHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}

// HandleReset returns the orchestrator to idle, discarding any in-flight run.
func (h *StoryHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	h.orchestrator.Reset()
	writeJSON(w, http.StatusOK, h.orchestrator.Snapshot())
}
