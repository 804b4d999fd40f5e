// Package elevenlabs implements tts.Provider for the ElevenLabs API.
package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"kahaanigo/pkg/config"
	"kahaanigo/pkg/request"
	"kahaanigo/pkg/tts"
)

// Client synthesizes speech via the ElevenLabs text-to-speech endpoint.
type Client struct {
	rc      *request.Client
	BaseURL string
	apiKey  string
	voiceID string
	modelID string
}

type synthesisRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// NewClient creates a new ElevenLabs TTS client.
func NewClient(rc *request.Client, cfg *config.TTSConfig) *Client {
	return &Client{
		rc:      rc,
		BaseURL: cfg.BaseURL,
		apiKey:  cfg.Key,
		voiceID: cfg.VoiceID,
		modelID: cfg.Model,
	}
}

// Synthesize generates MP3 audio for the text. A missing credential or any
// provider failure surfaces as a typed tts.FatalError; there is no silent
// fallback for audio.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	if c.apiKey == "" {
		return nil, "", tts.NewFatalError(http.StatusUnauthorized, "audio generation failed: elevenlabs api key missing")
	}
	if voice == "" {
		voice = c.voiceID
	}

	reqBody, err := json.Marshal(synthesisRequest{
		Text:    text,
		ModelID: c.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, "", err
	}

	u := fmt.Sprintf("%s/v1/text-to-speech/%s", c.BaseURL, voice)
	headers := map[string]string{
		"xi-api-key":   c.apiKey,
		"Content-Type": "application/json",
		"Accept":       "audio/mpeg",
	}

	body, err := c.rc.PostWithHeaders(ctx, u, reqBody, headers)
	if err != nil {
		return nil, "", tts.NewFatalError(0, fmt.Sprintf("audio generation failed: %v", err))
	}
	if len(body) < tts.MinAudioSize {
		return nil, "", tts.NewFatalError(0, fmt.Sprintf("audio generation failed: payload too small (%d bytes)", len(body)))
	}
	return body, "mp3", nil
}
