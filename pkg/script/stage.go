// Package script turns gathered location data into a narration script.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/llm"
	"kahaanigo/pkg/model"
	"kahaanigo/pkg/prompt"
	"kahaanigo/pkg/tracker"
)

// Stage generates narration scripts via the configured LLM provider.
type Stage struct {
	provider  llm.Provider
	prompts   *prompt.Manager
	tracker   *tracker.Tracker
	city      string
	lengthMin int
	lengthMax int
}

// Result packages the generated script with echoed location and preferences
// for downstream consumers.
type Result struct {
	Script      string            `json:"script"`
	Location    string            `json:"location"`
	Preferences model.Preferences `json:"preferences"`
}

// NewStage creates a new script generation stage.
func NewStage(p llm.Provider, pm *prompt.Manager, t *tracker.Tracker, narrCfg *config.NarratorConfig, city string) *Stage {
	return &Stage{
		provider:  p,
		prompts:   pm,
		tracker:   t,
		city:      city,
		lengthMin: narrCfg.NarrationLengthMin,
		lengthMax: narrCfg.NarrationLengthMax,
	}
}

type systemData struct {
	City       string
	VoiceStyle string
	Language   string
	StoryMode  string
	Length     int
	Era        string
}

type userData struct {
	Neighborhood string
	POIs         []model.PointOfInterest
	Research     string
}

// Generate calls the script provider once and packages its output. It NEVER
// returns an error: without a credential it serves a labeled simulated script,
// and on call failure a labeled error string distinct from the simulated one.
func (s *Stage) Generate(ctx context.Context, g model.GatheredData, prefs model.Preferences) Result {
	res := Result{
		Location:    g.AreaInfo.Neighborhood,
		Preferences: prefs,
	}

	if s.provider == nil || !s.provider.Configured() {
		slog.Warn("Script provider not configured, simulation mode", "location", res.Location)
		s.tracker.TrackFallback("script")
		res.Script = s.simulatedScript(g)
		return res
	}

	script, err := s.call(ctx, g, prefs)
	if err != nil {
		slog.Error("Script generation failed", "location", res.Location, "error", err)
		s.tracker.TrackFallback("script")
		res.Script = fmt.Sprintf("Story generation error: %v", err)
		return res
	}

	res.Script = script
	return res
}

func (s *Stage) call(ctx context.Context, g model.GatheredData, prefs model.Preferences) (string, error) {
	system, err := s.prompts.Render("script/system.tmpl", systemData{
		City:       s.city,
		VoiceStyle: prefs.VoiceStyle,
		Language:   prefs.Language,
		StoryMode:  prefs.StoryMode,
		Length:     s.targetWords(),
		Era:        prefs.Era,
	})
	if err != nil {
		return "", fmt.Errorf("rendering system prompt: %w", err)
	}

	user, err := s.prompts.Render("script/user.tmpl", userData{
		Neighborhood: g.AreaInfo.Neighborhood,
		POIs:         g.POIs,
		Research:     g.ScrapedContent,
	})
	if err != nil {
		return "", fmt.Errorf("rendering user prompt: %w", err)
	}

	return s.provider.GenerateText(ctx, system, user)
}

// targetWords picks a narration length inside the configured range so
// repeated stories for the same place don't all land on one size.
func (s *Stage) targetWords() int {
	if s.lengthMax <= s.lengthMin {
		return s.lengthMin
	}
	return s.lengthMin + rand.Intn(s.lengthMax-s.lengthMin+1)
}

func (s *Stage) simulatedScript(g model.GatheredData) string {
	names := make([]string, 0, len(g.POIs))
	for _, p := range g.POIs {
		names = append(names, p.Name)
	}
	return fmt.Sprintf(
		"Welcome to %s! This is a simulated script because the API key is missing. Imagine a dramatic story about %s.",
		g.AreaInfo.Neighborhood, strings.Join(names, ", "))
}
