package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/convai"
	"kahaanigo/pkg/gather"
	"kahaanigo/pkg/model"
	"kahaanigo/pkg/pipeline"
	"kahaanigo/pkg/playback"
	"kahaanigo/pkg/prompt"
	"kahaanigo/pkg/script"
	"kahaanigo/pkg/tracker"
	"kahaanigo/pkg/tts"
)

type fakePOIs struct{ pois []model.PointOfInterest }

func (f fakePOIs) FindNearby(context.Context, float64, float64) []model.PointOfInterest {
	return f.pois
}

type fakeArea struct{ area model.AreaInfo }

func (f fakeArea) Resolve(context.Context, float64, float64) model.AreaInfo { return f.area }

type fakeResearch struct{ content string }

func (f fakeResearch) Lookup(context.Context, string, model.Preferences) string { return f.content }

type fakeLLM struct{ text string }

func (f fakeLLM) Name() string     { return "fake" }
func (f fakeLLM) Configured() bool { return true }
func (f fakeLLM) GenerateText(context.Context, string, string) (string, error) {
	return f.text, nil
}

type fakeTTS struct {
	mu      sync.Mutex
	payload []byte
	format  string
	err     error
	gotText string
}

func (f *fakeTTS) Synthesize(_ context.Context, text, _ string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gotText = text
	if f.err != nil {
		return nil, "", f.err
	}
	format := f.format
	if format == "" {
		format = "mp3"
	}
	return f.payload, format, nil
}

var _ tts.Provider = (*fakeTTS)(nil)

type fakeAudio struct {
	mu     sync.Mutex
	played []string
	stops  int
}

func (f *fakeAudio) Play(path string, onComplete func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.played = append(f.played, path)
	return nil
}

func (f *fakeAudio) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeAudio) SetVolume(float64) {}

type fakeSession struct {
	events chan convai.Event

	mu     sync.Mutex
	sent   []string
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan convai.Event, 16)}
}

func (f *fakeSession) Events() <-chan convai.Event { return f.events }

func (f *fakeSession) SendMessage(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSession) SetVolume(float64) error { return nil }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

type fakeSessionDialer struct{ session *fakeSession }

func (f fakeSessionDialer) Dial(context.Context, convai.SeedPrompt) (playback.Session, error) {
	return f.session, nil
}

func newTestPrompts(t *testing.T) *prompt.Manager {
	t.Helper()
	pm, err := prompt.NewManager("../../configs/prompts")
	require.NoError(t, err)
	return pm
}

// newTestPipeline wires an orchestrator over stages with canned providers.
func newTestPipeline(t *testing.T) (*gather.Stage, *script.Stage, *pipeline.Orchestrator) {
	t.Helper()
	g := gather.NewStage(
		fakePOIs{pois: []model.PointOfInterest{{Name: "Gateway of India", Type: "monument"}}},
		fakeArea{area: model.AreaInfo{Neighborhood: "Colaba", Area: "South Mumbai", City: "Mumbai"}},
		fakeResearch{content: "Colaba facts."},
	)
	narrCfg := config.DefaultConfig().Narrator
	s := script.NewStage(fakeLLM{text: "A tale of Colaba."}, newTestPrompts(t), tracker.New(), &narrCfg, "Mumbai")
	return g, s, pipeline.New(g, s)
}

func waitForStory(t *testing.T, o *pipeline.Orchestrator) *model.StoryData {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if story := o.Story(); story != nil {
			return story
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for pipeline, state %v", o.Snapshot().State)
		case <-time.After(time.Millisecond):
		}
	}
}
