package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kahaanigo/pkg/cache"
	"kahaanigo/pkg/config"
	"kahaanigo/pkg/convai"
	"kahaanigo/pkg/request"
	"kahaanigo/pkg/tracker"
	"kahaanigo/pkg/tts"
)

func newSpeechHandler(t *testing.T, synth *fakeTTS, convCfg *config.ConvAIConfig) *SpeechHandler {
	t.Helper()
	if convCfg == nil {
		cfg := config.DefaultConfig().ConvAI
		convCfg = &cfg
	}
	rc := request.New(cache.NullCache{}, tracker.New(), 2*time.Second)
	return NewSpeechHandler(synth, convai.NewDialer(rc, convCfg))
}

func TestHandleNarrateStreamsAudio(t *testing.T) {
	payload := bytes.Repeat([]byte{0xFF}, 2048)
	synth := &fakeTTS{payload: payload}
	h := newSpeechHandler(t, synth, nil)

	w := postJSON(t, h.HandleNarrate, `{"text": "A tale of Colaba.", "voiceId": "abc"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, payload, w.Body.Bytes())
	assert.Equal(t, "A tale of Colaba.", synth.gotText)
}

func TestHandleNarrateValidation(t *testing.T) {
	h := newSpeechHandler(t, &fakeTTS{}, nil)

	w := postJSON(t, h.HandleNarrate, `{"text": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, h.HandleNarrate, `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleNarrateFailureIsVisible(t *testing.T) {
	synth := &fakeTTS{err: tts.NewFatalError(0, "audio generation failed: upstream 500")}
	h := newSpeechHandler(t, synth, nil)

	w := postJSON(t, h.HandleNarrate, `{"text": "hello"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "audio generation failed", body["error"])
	assert.Contains(t, body["details"], "upstream 500")
}

func TestHandleNarrateMissingKeyIs401(t *testing.T) {
	synth := &fakeTTS{err: tts.NewFatalError(http.StatusUnauthorized, "audio generation failed: elevenlabs api key missing")}
	h := newSpeechHandler(t, synth, nil)

	w := postJSON(t, h.HandleNarrate, `{"text": "hello"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleTTSUsesDefaultVoice(t *testing.T) {
	synth := &fakeTTS{payload: bytes.Repeat([]byte{1}, 2048)}
	h := newSpeechHandler(t, synth, nil)

	w := postJSON(t, h.HandleTTS, `{"text": "namaste"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
}

func TestHandleSignedURLAgentNotConfigured(t *testing.T) {
	cfg := config.DefaultConfig().ConvAI
	cfg.AgentID = ""
	h := newSpeechHandler(t, &fakeTTS{}, &cfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.HandleSignedURL(w, req)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "conversation agent not configured", body["error"])
}

func TestHandleSignedURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent_12345678", r.URL.Query().Get("agent_id"))
		assert.Equal(t, "secret", r.Header.Get("xi-api-key"))
		w.Write([]byte(`{"signed_url": "wss://api.elevenlabs.io/v1/convai/conversation?token=xyz"}`))
	}))
	t.Cleanup(srv.Close)

	cfg := config.DefaultConfig().ConvAI
	cfg.AgentID = "agent_12345678"
	cfg.Key = "secret"
	cfg.BaseURL = srv.URL
	h := newSpeechHandler(t, &fakeTTS{}, &cfg)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.HandleSignedURL(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body["signedUrl"], "token=xyz")
}
