// Package tts defines the interface for text-to-speech engines.
package tts

import (
	"context"
	"errors"
)

const (
	// MinAudioSize is the minimum size of a plausible synthesis result (1KB).
	// Smaller payloads are treated as failed synthesis attempts.
	MinAudioSize = 1024
)

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Synthesize generates audio for text with the given voice and returns
	// the raw payload plus its format ("mp3", "wav").
	Synthesize(ctx context.Context, text, voice string) ([]byte, string, error)
}

// FatalError represents a synthesis failure that must surface to the caller.
// Audio absence is never silent: playback decides visibly what to do next.
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if an error is a typed synthesis failure.
func IsFatalError(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
