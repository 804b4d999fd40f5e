// Package anthropic implements llm.Provider for the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/request"
)

const defaultEndpoint = "https://api.anthropic.com/v1/messages"

// apiVersion is the Messages API revision we speak.
const apiVersion = "2023-06-01"

// Client implements llm.Provider for Anthropic Claude models.
type Client struct {
	rc        *request.Client
	Endpoint  string
	apiKey    string
	model     string
	maxTokens int
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new Anthropic client. An empty key is allowed; the
// client then reports itself unconfigured and refuses calls.
func NewClient(rc *request.Client, cfg *config.LLMConfig) *Client {
	return &Client{
		rc:        rc,
		Endpoint:  defaultEndpoint,
		apiKey:    cfg.Key,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

func (c *Client) Name() string { return "anthropic" }

func (c *Client) Configured() bool { return c.apiKey != "" }

// GenerateText sends the prompts to the Messages API and returns the first
// content block.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("anthropic client not configured")
	}

	reqBody, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    system,
		Messages:  []message{{Role: "user", Content: user}},
	})
	if err != nil {
		return "", err
	}

	headers := map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
		"content-type":      "application/json",
	}

	body, err := c.rc.PostWithHeaders(ctx, c.Endpoint, reqBody, headers)
	if err != nil {
		return "", fmt.Errorf("anthropic call: %w", err)
	}

	var resp messagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing anthropic response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("anthropic api error: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", fmt.Errorf("anthropic response empty")
	}
	return resp.Content[0].Text, nil
}
