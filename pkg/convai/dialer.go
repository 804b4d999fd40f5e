package convai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/gorilla/websocket"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/request"
)

// ErrAgentNotConfigured means the conversation agent identity is missing or
// malformed. Callers must treat this as a configuration error and never
// attempt a transport.
var ErrAgentNotConfigured = errors.New("conversation agent not configured")

// minAgentIDLength guards against obviously truncated agent IDs.
const minAgentIDLength = 8

// SeedPrompt carries the conversation context injected at session start.
type SeedPrompt struct {
	Prompt       string
	FirstMessage string
	Language     string
}

// Dialer establishes live conversation sessions.
type Dialer struct {
	rc      *request.Client
	agentID string
	apiKey  string
	BaseURL string
	WSURL   string
}

// NewDialer creates a new conversation dialer.
func NewDialer(rc *request.Client, cfg *config.ConvAIConfig) *Dialer {
	return &Dialer{
		rc:      rc,
		agentID: cfg.AgentID,
		apiKey:  cfg.Key,
		BaseURL: cfg.BaseURL,
		WSURL:   cfg.WSURL,
	}
}

// Configured reports whether the dialer has a usable agent identity.
func (d *Dialer) Configured() bool {
	return d.validateAgentID() == nil
}

func (d *Dialer) validateAgentID() error {
	if d.agentID == "" {
		return fmt.Errorf("%w: agent id missing", ErrAgentNotConfigured)
	}
	if len(d.agentID) < minAgentIDLength {
		return fmt.Errorf("%w: agent id malformed: %q", ErrAgentNotConfigured, d.agentID)
	}
	return nil
}

type signedURLResponse struct {
	SignedURL string `json:"signed_url"`
}

// SignedURL requests a short-lived authenticated websocket URL for the agent.
func (d *Dialer) SignedURL(ctx context.Context) (string, error) {
	if err := d.validateAgentID(); err != nil {
		return "", err
	}
	if d.apiKey == "" {
		return "", fmt.Errorf("%w: api key required for signed url", ErrAgentNotConfigured)
	}

	u := fmt.Sprintf("%s/v1/convai/conversation/get-signed-url?agent_id=%s",
		d.BaseURL, url.QueryEscape(d.agentID))
	body, err := d.rc.GetWithHeaders(ctx, u, map[string]string{"xi-api-key": d.apiKey}, "")
	if err != nil {
		return "", fmt.Errorf("fetching signed url: %w", err)
	}

	var resp signedURLResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing signed url response: %w", err)
	}
	if resp.SignedURL == "" {
		return "", fmt.Errorf("signed url response empty")
	}
	return resp.SignedURL, nil
}

// Dial validates the agent identity, connects, and seeds the conversation.
// Validation failures return ErrAgentNotConfigured before any network I/O.
func (d *Dialer) Dial(ctx context.Context, seed SeedPrompt) (*Session, error) {
	if err := d.validateAgentID(); err != nil {
		return nil, err
	}

	wsURL := fmt.Sprintf("%s?agent_id=%s", d.WSURL, url.QueryEscape(d.agentID))
	if d.apiKey != "" {
		if signed, err := d.SignedURL(ctx); err == nil {
			wsURL = signed
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("conversation dial failed: %w", err)
	}

	s := newSession(conn)
	if err := s.write(initMessage(seed)); err != nil {
		s.Close()
		return nil, fmt.Errorf("conversation seed failed: %w", err)
	}
	return s, nil
}

// initMessage builds the conversation_initiation_client_data frame carrying
// the seed prompt overrides.
func initMessage(seed SeedPrompt) wire {
	return wire{Type: "conversation_initiation_client_data", Init: &initOverrides{
		Agent: agentOverride{
			Prompt:       promptOverride{Prompt: seed.Prompt},
			FirstMessage: seed.FirstMessage,
			Language:     seed.Language,
		},
	}}
}

type initOverrides struct {
	Agent agentOverride `json:"agent"`
}

type agentOverride struct {
	Prompt       promptOverride `json:"prompt"`
	FirstMessage string         `json:"first_message,omitempty"`
	Language     string         `json:"language,omitempty"`
}

type promptOverride struct {
	Prompt string `json:"prompt"`
}
