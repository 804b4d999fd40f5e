package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"kahaanigo/pkg/convai"
	"kahaanigo/pkg/tts"
)

// SpeechHandler serves narration synthesis and conversation credentials.
// Unlike the gathering endpoints, speech failures surface as real errors:
// there is no silent fallback for audio.
type SpeechHandler struct {
	tts    tts.Provider
	dialer *convai.Dialer
}

// NewSpeechHandler creates a new SpeechHandler.
func NewSpeechHandler(p tts.Provider, d *convai.Dialer) *SpeechHandler {
	return &SpeechHandler{tts: p, dialer: d}
}

type narrateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
}

// HandleNarrate synthesizes the text and streams the audio payload back.
func (h *SpeechHandler) HandleNarrate(w http.ResponseWriter, r *http.Request) {
	var req narrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	payload, format, err := h.tts.Synthesize(r.Context(), req.Text, req.VoiceID)
	if err != nil {
		h.writeSynthesisError(w, err)
		return
	}

	contentType := "audio/mpeg"
	if format == "wav" {
		contentType = "audio/wav"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
	if _, err := w.Write(payload); err != nil {
		slog.Error("Failed to stream narration audio", "error", err)
	}
}

// HandleTTS is the raw text-to-speech endpoint with the provider's default voice.
func (h *SpeechHandler) HandleTTS(w http.ResponseWriter, r *http.Request) {
	var req narrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "text is required", "")
		return
	}

	payload, _, err := h.tts.Synthesize(r.Context(), req.Text, "")
	if err != nil {
		h.writeSynthesisError(w, err)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	if _, err := w.Write(payload); err != nil {
		slog.Error("Failed to stream audio", "error", err)
	}
}

func (h *SpeechHandler) writeSynthesisError(w http.ResponseWriter, err error) {
	slog.Error("Speech synthesis failed", "error", err)
	var fe *tts.FatalError
	if errors.As(err, &fe) && fe.StatusCode == http.StatusUnauthorized {
		writeError(w, http.StatusUnauthorized, "audio generation failed", fe.Message)
		return
	}
	writeError(w, http.StatusBadGateway, "audio generation failed", err.Error())
}

// HandleSignedURL returns a short-lived authenticated websocket URL for the
// conversation agent. A missing agent identity is a visible 503, never a
// degraded response.
func (h *SpeechHandler) HandleSignedURL(w http.ResponseWriter, r *http.Request) {
	signed, err := h.dialer.SignedURL(r.Context())
	if err != nil {
		if errors.Is(err, convai.ErrAgentNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, "conversation agent not configured", err.Error())
			return
		}
		slog.Error("Signed URL request failed", "error", err)
		writeError(w, http.StatusBadGateway, "failed to get signed url", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"signedUrl": signed})
}
