// Package pipeline orchestrates the story pipeline: gather, generate, done.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"kahaanigo/pkg/model"
	"kahaanigo/pkg/script"
)

// State is the orchestrator's lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// Step labels the current loading phase for user-visible progress.
type Step string

const (
	StepGathering  Step = "gathering"
	StepGenerating Step = "generating"
	StepFinalizing Step = "finalizing"
)

// Gatherer runs the data gathering stage.
type Gatherer interface {
	Gather(ctx context.Context, loc model.LocationRef, prefs model.Preferences) model.GatheredData
}

// Generator runs the script generation stage.
type Generator interface {
	Generate(ctx context.Context, g model.GatheredData, prefs model.Preferences) script.Result
}

// Snapshot is a point-in-time copy of orchestrator state.
type Snapshot struct {
	State State            `json:"state"`
	Step  Step             `json:"step,omitempty"`
	Story *model.StoryData `json:"story,omitempty"`
	Error string           `json:"error,omitempty"`
	Run   uint64           `json:"run"`
}

// Orchestrator drives the story pipeline as a last-run-wins state machine.
// Stale runs are superseded by a monotonic run token: their results are
// discarded at the point of application, never cancelled mid-flight.
type Orchestrator struct {
	gather   Gatherer
	generate Generator

	token atomic.Uint64

	mu    sync.Mutex
	state State
	step  Step
	story *model.StoryData
	err   string
	run   uint64
}

// New creates a new Orchestrator in the idle state.
func New(g Gatherer, s Generator) *Orchestrator {
	return &Orchestrator{
		gather:   g,
		generate: s,
		state:    StateIdle,
	}
}

// Run starts a pipeline run and returns its token. A run started while
// another is loading implicitly supersedes it; the superseded run's results
// are dropped when they arrive.
func (o *Orchestrator) Run(ctx context.Context, loc model.LocationRef, prefs model.Preferences) uint64 {
	prefs.Normalize()
	token := o.token.Add(1)

	o.mu.Lock()
	o.state = StateLoading
	o.step = StepGathering
	o.story = nil
	o.err = ""
	o.run = token
	o.mu.Unlock()

	go o.execute(ctx, token, loc, prefs)
	return token
}

func (o *Orchestrator) execute(ctx context.Context, token uint64, loc model.LocationRef, prefs model.Preferences) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panicked", "run", token, "panic", r)
			o.fail(token, fmt.Sprintf("story pipeline failed: %v", r))
		}
	}()

	gathered := o.gather.Gather(ctx, loc, prefs)
	if !o.setStep(token, StepGenerating) {
		return
	}

	res := o.generate.Generate(ctx, gathered, prefs)
	if !o.setStep(token, StepFinalizing) {
		return
	}

	story := &model.StoryData{
		GatheredData:  gathered,
		Script:        res.Script,
		KnowledgeBase: gathered.ScrapedContent,
		Preferences:   res.Preferences,
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run != token {
		slog.Debug("Pipeline result dropped (superseded)", "run", token, "current", o.run)
		return
	}
	o.state = StateDone
	o.step = ""
	o.story = story
	slog.Info("Pipeline done", "run", token, "location", story.Location.Name)
}

// setStep advances the loading step, reporting false when the run has been
// superseded and the caller must stop applying results.
func (o *Orchestrator) setStep(token uint64, step Step) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run != token {
		slog.Debug("Pipeline step dropped (superseded)", "run", token, "current", o.run)
		return false
	}
	o.step = step
	return true
}

func (o *Orchestrator) fail(token uint64, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.run != token {
		return
	}
	o.state = StateFailed
	o.step = ""
	o.err = msg
}

// Reset returns the orchestrator to idle from any state, discarding in-flight
// results. Calling it twice is the same as calling it once.
func (o *Orchestrator) Reset() {
	// Bump the token so any in-flight run is superseded.
	o.token.Add(1)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	o.step = ""
	o.story = nil
	o.err = ""
	o.run = o.token.Load()
}

// Snapshot returns a copy of the current state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Snapshot{
		State: o.state,
		Step:  o.step,
		Story: o.story,
		Error: o.err,
		Run:   o.run,
	}
}

// Story returns the finished story, or nil if the pipeline is not done.
func (o *Orchestrator) Story() *model.StoryData {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateDone {
		return nil
	}
	return o.story
}
