// Package llm defines the interface for script-generating language models.
package llm

import (
	"context"
)

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// Name identifies the provider for logs and stats.
	Name() string

	// Configured reports whether the provider has a usable credential.
	// Callers use this to choose their degraded mode before attempting a call.
	Configured() bool

	// GenerateText sends a system and user prompt and returns the text response.
	GenerateText(ctx context.Context, system, user string) (string, error)
}
