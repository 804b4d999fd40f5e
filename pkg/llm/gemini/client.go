// Package gemini implements llm.Provider for Google Gemini.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"kahaanigo/pkg/config"
)

// Client implements llm.Provider for Google Gemini.
type Client struct {
	genaiClient *genai.Client
	model       string
}

// NewClient creates a new Gemini client. An empty key is allowed; the client
// then reports itself unconfigured and refuses calls.
func NewClient(ctx context.Context, cfg *config.LLMConfig) (*Client, error) {
	c := &Client{model: cfg.Model}
	if c.model == "" {
		c.model = "gemini-2.0-flash"
	}

	if cfg.Key == "" {
		return c, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.Key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	c.genaiClient = client
	return c, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Configured() bool { return c.genaiClient != nil }

// GenerateText sends the prompts to Gemini and returns the response text.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("gemini client not configured")
	}

	var genCfg *genai.GenerateContentConfig
	if system != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model, genai.Text(user), genCfg)
	if err != nil {
		return "", fmt.Errorf("gemini call: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("gemini response empty")
	}
	return text, nil
}
