// Package stt provides the speech-to-text collaborator.
package stt

import "context"

// Client defines the interface for speech-to-text operations.
type Client interface {
	// Transcribe converts an audio payload to text. An empty transcript
	// with a nil error means the audio contained no recognizable speech.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Ensure implementations satisfy the interface.
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
