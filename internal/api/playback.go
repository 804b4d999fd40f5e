package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"kahaanigo/pkg/model"
	"kahaanigo/pkg/pipeline"
	"kahaanigo/pkg/playback"
)

// ControllerFactory builds a playback controller for one story. The audio
// device is shared, so at most one controller is active at a time.
type ControllerFactory func() *playback.Controller

// PlaybackHandler owns the single active playback controller.
type PlaybackHandler struct {
	orchestrator *pipeline.Orchestrator
	factory      ControllerFactory

	mu      sync.Mutex
	current *playback.Controller
}

// NewPlaybackHandler creates a new PlaybackHandler.
func NewPlaybackHandler(o *pipeline.Orchestrator, f ControllerFactory) *PlaybackHandler {
	return &PlaybackHandler{orchestrator: o, factory: f}
}

type playbackStatus struct {
	Phase      playback.Phase          `json:"phase"`
	IsPlaying  bool                    `json:"isPlaying"`
	Transcript []model.TranscriptEntry `json:"transcript"`
}

// HandleStart begins playback of the orchestrator's finished story. Starting
// while a controller is active tears the old one down first; the request is a
// 409 when no story has finished.
func (h *PlaybackHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	story := h.orchestrator.Story()
	if story == nil {
		writeError(w, http.StatusConflict, "no finished story to play", "run the pipeline first")
		return
	}

	h.mu.Lock()
	if h.current != nil {
		h.current.Close()
	}
	h.current = h.factory()
	c := h.current
	h.mu.Unlock()

	// On synthesis failure the controller has already recorded the visible
	// notice in its transcript; report the phase either way so the caller
	// can render it. Playback outlives the request, so detach the context.
	_ = c.Start(context.WithoutCancel(r.Context()), story)
	writeJSON(w, http.StatusOK, h.status())
}

// HandleStatus reports the playback phase and transcript.
func (h *PlaybackHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

type messageRequest struct {
	Text string `json:"text"`
}

// HandleMessage injects a typed user message into the live session.
func (h *PlaybackHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}
	c := h.controller()
	if c == nil {
		writeError(w, http.StatusConflict, "playback not started", "")
		return
	}
	if err := c.SendMessage(req.Text); err != nil {
		writeError(w, http.StatusConflict, "no active conversation session", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.status())
}

type volumeRequest struct {
	Volume float64 `json:"volume"`
}

// HandleVolume sets the playback volume in [0, 1].
func (h *PlaybackHandler) HandleVolume(w http.ResponseWriter, r *http.Request) {
	var req volumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Volume < 0 || req.Volume > 1 {
		writeError(w, http.StatusBadRequest, "volume must be between 0 and 1", "")
		return
	}
	c := h.controller()
	if c == nil {
		writeError(w, http.StatusConflict, "playback not started", "")
		return
	}
	c.SetVolume(req.Volume)
	writeJSON(w, http.StatusOK, h.status())
}

// HandleStop tears the current controller down. Stopping twice, or with no
// controller, is not an error.
func (h *PlaybackHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	if c := h.controller(); c != nil {
		c.Close()
	}
	writeJSON(w, http.StatusOK, h.status())
}

func (h *PlaybackHandler) controller() *playback.Controller {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func (h *PlaybackHandler) status() playbackStatus {
	c := h.controller()
	if c == nil {
		return playbackStatus{Phase: playback.PhaseEnded, Transcript: []model.TranscriptEntry{}}
	}
	t := c.Transcript()
	if t == nil {
		t = []model.TranscriptEntry{}
	}
	return playbackStatus{
		Phase:      c.Phase(),
		IsPlaying:  c.IsPlaying(),
		Transcript: t,
	}
}
