// Package tts provides the text-to-speech collaborator.
package tts

import "context"

// Client defines the interface for text-to-speech operations.
type Client interface {
	// Synthesize renders text to audio using the given voice. A nil
	// payload with a nil error means synthesis was skipped.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// Ensure implementations satisfy the interface.
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
