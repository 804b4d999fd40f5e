package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kahaanigo/pkg/model"
	"kahaanigo/pkg/pipeline"
	"kahaanigo/pkg/playback"
)

type playbackHarness struct {
	handler *PlaybackHandler
	orch    *pipeline.Orchestrator
	synth   *fakeTTS
	audio   *fakeAudio
	session *fakeSession
}

func newPlaybackHarness(t *testing.T) *playbackHarness {
	t.Helper()
	_, _, o := newTestPipeline(t)
	ph := &playbackHarness{
		orch:    o,
		synth:   &fakeTTS{payload: bytes.Repeat([]byte{1}, 2048)},
		audio:   &fakeAudio{},
		session: newFakeSession(),
	}
	factory := func() *playback.Controller {
		return playback.New(ph.synth, ph.audio, fakeSessionDialer{session: ph.session},
			newTestPrompts(t), t.TempDir(), "Mumbai")
	}
	ph.handler = NewPlaybackHandler(o, factory)
	return ph
}

func (ph *playbackHarness) runPipeline(t *testing.T, mode string) {
	t.Helper()
	ph.orch.Run(t.Context(), model.LocationRef{Lat: 18.9067, Lng: 72.8147, Name: "Colaba"},
		model.Preferences{Mode: mode})
	waitForStory(t, ph.orch)
}

func getStatus(t *testing.T, h *PlaybackHandler) playbackStatus {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.HandleStatus(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var st playbackStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func TestHandleStartWithoutStory(t *testing.T) {
	ph := newPlaybackHarness(t)

	w := postJSON(t, ph.handler.HandleStart, `{}`)
	require.Equal(t, http.StatusConflict, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no finished story to play", body["error"])
}

func TestHandleStartNarration(t *testing.T) {
	ph := newPlaybackHarness(t)
	ph.runPipeline(t, model.ModeNarrate)

	w := postJSON(t, ph.handler.HandleStart, `{}`)
	require.Equal(t, http.StatusOK, w.Code)

	var st playbackStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, playback.PhaseNarrating, st.Phase)
	assert.True(t, st.IsPlaying)
	require.NotEmpty(t, st.Transcript)
	assert.Equal(t, "A tale of Colaba.", st.Transcript[0].Text)
	assert.Len(t, ph.audio.played, 1)
}

func TestHandleStartReplacesActiveController(t *testing.T) {
	ph := newPlaybackHarness(t)
	ph.runPipeline(t, model.ModeNarrate)

	postJSON(t, ph.handler.HandleStart, `{}`)
	first := ph.handler.controller()

	postJSON(t, ph.handler.HandleStart, `{}`)
	second := ph.handler.controller()

	assert.NotSame(t, first, second)
	assert.Equal(t, playback.PhaseEnded, first.Phase(), "replaced controller is closed")
}

func TestHandleMessageRequiresSession(t *testing.T) {
	ph := newPlaybackHarness(t)

	w := postJSON(t, ph.handler.HandleMessage, `{"text": "hello"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(t, ph.handler.HandleMessage, `{"text": ""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessageLiveSession(t *testing.T) {
	ph := newPlaybackHarness(t)
	ph.runPipeline(t, model.ModeConversation)

	postJSON(t, ph.handler.HandleStart, `{}`)

	w := postJSON(t, ph.handler.HandleMessage, `{"text": "Who built the Gateway?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var st playbackStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	last := st.Transcript[len(st.Transcript)-1]
	assert.Equal(t, model.RoleUser, last.Role)
	assert.Equal(t, "Who built the Gateway?", last.Text)
	assert.Equal(t, []string{"Who built the Gateway?"}, ph.session.sent)
}

func TestHandleVolume(t *testing.T) {
	ph := newPlaybackHarness(t)
	ph.runPipeline(t, model.ModeNarrate)
	postJSON(t, ph.handler.HandleStart, `{}`)

	w := postJSON(t, ph.handler.HandleVolume, `{"volume": 0.5}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, ph.handler.HandleVolume, `{"volume": 1.5}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, ph.handler.HandleVolume, `{"volume": -0.1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleStopIsIdempotent(t *testing.T) {
	ph := newPlaybackHarness(t)
	ph.runPipeline(t, model.ModeNarrate)
	postJSON(t, ph.handler.HandleStart, `{}`)

	w := postJSON(t, ph.handler.HandleStop, ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ph.audio.stops)

	w = postJSON(t, ph.handler.HandleStop, ``)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, ph.audio.stops, "second stop is a no-op")

	st := getStatus(t, ph.handler)
	assert.Equal(t, playback.PhaseEnded, st.Phase)
	assert.False(t, st.IsPlaying)
}

func TestStatusBeforeStart(t *testing.T) {
	ph := newPlaybackHarness(t)
	st := getStatus(t, ph.handler)
	assert.Equal(t, playback.PhaseEnded, st.Phase)
	assert.Empty(t, st.Transcript)
}
