// Package api exposes the story pipeline over HTTP.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"kahaanigo/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, story *StoryHandler, speech *SpeechHandler, playbackH *PlaybackHandler, stats *StatsHandler, locations *LocationsHandler, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Stats Endpoint
	mux.Handle("GET /api/stats", stats)

	// 4. Location Catalog
	mux.HandleFunc("GET /api/locations", locations.HandleList)

	// 5. Pipeline Stage Endpoints (stateless, one-shot)
	mux.HandleFunc("POST /api/gather-data", story.HandleGatherData)
	mux.HandleFunc("POST /api/generate-script", story.HandleGenerateScript)

	// 6. Story Pipeline Control (stateful orchestrator)
	mux.HandleFunc("POST /api/story/run", story.HandleRun)
	mux.HandleFunc("GET /api/story/status", story.HandleStatus)
	mux.HandleFunc("POST /api/story/reset", story.HandleReset)

	// 7. Speech Endpoints
	mux.HandleFunc("POST /api/narrate", speech.HandleNarrate)
	mux.HandleFunc("POST /api/elevenlabs/tts", speech.HandleTTS)
	mux.HandleFunc("GET /api/elevenlabs/signed-url", speech.HandleSignedURL)

	// 8. Playback Endpoints
	mux.HandleFunc("POST /api/playback/start", playbackH.HandleStart)
	mux.HandleFunc("GET /api/playback/status", playbackH.HandleStatus)
	mux.HandleFunc("POST /api/playback/message", playbackH.HandleMessage)
	mux.HandleFunc("POST /api/playback/volume", playbackH.HandleVolume)
	mux.HandleFunc("POST /api/playback/stop", playbackH.HandleStop)

	// 9. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // narration synthesis can be slow
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
