// Package research gathers background content for a location via Perplexity.
// Perplexity uses an OpenAI-compatible chat completions format.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/model"
	"kahaanigo/pkg/prompt"
	"kahaanigo/pkg/request"
	"kahaanigo/pkg/tracker"
)

// Client implements research lookups against the Perplexity Sonar API.
type Client struct {
	rc        *request.Client
	tracker   *tracker.Tracker
	prompts   *prompt.Manager
	Endpoint  string
	apiKey    string
	model     string
	maxTokens int
	city      string
}

type sonarRequest struct {
	Model     string         `json:"model"`
	Messages  []sonarMessage `json:"messages"`
	MaxTokens int            `json:"max_tokens,omitempty"`
}

type sonarMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type sonarResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Perplexity research client. An empty API key is
// allowed; the client then always serves its degraded placeholder.
func NewClient(rc *request.Client, t *tracker.Tracker, pm *prompt.Manager, cfg *config.ResearchConfig, city string) *Client {
	return &Client{
		rc:        rc,
		tracker:   t,
		prompts:   pm,
		Endpoint:  "https://api.perplexity.ai/chat/completions",
		apiKey:    cfg.Key,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		city:      city,
	}
}

// promptData feeds the research/<lens>.tmpl templates.
type promptData struct {
	LocationName string
	City         string
	Era          string
}

// Lookup returns research content for the named place. It NEVER returns an
// error: with no credential it serves a deterministic era placeholder, and on
// call failure a shorter generic one, so the pipeline always proceeds.
func (c *Client) Lookup(ctx context.Context, locationName string, prefs model.Preferences) string {
	if c.apiKey == "" {
		slog.Warn("Research key missing, serving placeholder", "location", locationName)
		c.tracker.TrackFallback("perplexity")
		return fmt.Sprintf("Detailed history of %s during the %s era.", locationName, prefs.Era)
	}

	content, err := c.call(ctx, locationName, prefs)
	if err != nil {
		slog.Warn("Research call failed, serving placeholder", "location", locationName, "error", err)
		c.tracker.TrackFallback("perplexity")
		return fmt.Sprintf("History and stories of %s.", locationName)
	}
	return content
}

func (c *Client) call(ctx context.Context, locationName string, prefs model.Preferences) (string, error) {
	data := promptData{
		LocationName: locationName,
		City:         c.city,
	}
	if prefs.Era != "" && prefs.Era != model.EraAll {
		data.Era = prefs.Era
	}

	tmpl := "research/" + prefs.StoryMode + ".tmpl"
	if !c.prompts.Has(tmpl) {
		tmpl = "research/both.tmpl"
	}
	userPrompt, err := c.prompts.Render(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("rendering research prompt: %w", err)
	}

	reqBody, err := json.Marshal(sonarRequest{
		Model:     c.model,
		Messages:  []sonarMessage{{Role: "user", Content: userPrompt}},
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", err
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}
	cacheKey := fmt.Sprintf("research:%s:%s:%s", locationName, prefs.StoryMode, prefs.Era)

	body, err := c.rc.PostWithCache(ctx, c.Endpoint, reqBody, headers, cacheKey)
	if err != nil {
		return "", err
	}

	var resp sonarResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing research response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("research api error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("research response empty")
	}
	return resp.Choices[0].Message.Content, nil
}
