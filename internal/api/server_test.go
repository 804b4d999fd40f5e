package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kahaanigo/pkg/cache"
	"kahaanigo/pkg/config"
	"kahaanigo/pkg/convai"
	"kahaanigo/pkg/playback"
	"kahaanigo/pkg/request"
	"kahaanigo/pkg/tracker"
)

// newTestServer builds the full route table over fakes and returns its
// handler behind an httptest server.
func newTestServer(t *testing.T, shutdown func()) (*httptest.Server, *tracker.Tracker) {
	t.Helper()
	g, s, o := newTestPipeline(t)
	trk := tracker.New()

	convCfg := config.DefaultConfig().ConvAI
	dialer := convai.NewDialer(request.New(cache.NullCache{}, trk, time.Second), &convCfg)

	synth := &fakeTTS{payload: bytes.Repeat([]byte{1}, 2048)}
	factory := func() *playback.Controller {
		return playback.New(synth, &fakeAudio{}, fakeSessionDialer{session: newFakeSession()},
			newTestPrompts(t), t.TempDir(), "Mumbai")
	}

	if shutdown == nil {
		shutdown = func() {}
	}
	srv := NewServer("localhost:0",
		NewStoryHandler(g, s, o),
		NewSpeechHandler(synth, dialer),
		NewPlaybackHandler(o, factory),
		NewStatsHandler(trk),
		NewLocationsHandler(),
		shutdown)

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, trk
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "OK", string(body))
}

func TestVersionEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/version")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotEmpty(t, body["version"])
}

func TestLocationsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/locations")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Locations []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"locations"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Locations, 10)

	ids := make(map[string]bool)
	for _, l := range body.Locations {
		ids[l.ID] = true
	}
	assert.True(t, ids["colaba"])
	assert.True(t, ids["dharavi"])
}

func TestStatsEndpoint(t *testing.T) {
	ts, trk := newTestServer(t, nil)
	trk.TrackCacheHit("overpass")
	trk.TrackCacheHit("overpass")
	trk.TrackCacheMiss("overpass")
	trk.TrackFallback("perplexity")

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Providers []ProviderStatsDTO `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Providers, 2)

	// Sorted by provider name.
	assert.Equal(t, "overpass", body.Providers[0].Provider)
	assert.InDelta(t, 2.0/3.0, body.Providers[0].HitRate, 1e-9)
	assert.Equal(t, "perplexity", body.Providers[1].Provider)
	assert.Equal(t, int64(1), body.Providers[1].Fallbacks)
}

func TestShutdownEndpoint(t *testing.T) {
	var called atomic.Bool
	done := make(chan struct{})
	ts, _ := newTestServer(t, func() {
		called.Store(true)
		close(done)
	})

	resp, err := http.Post(ts.URL+"/api/shutdown", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown callback not invoked")
	}
	assert.True(t, called.Load())
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/api/story/run")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
