package tts

import (
	"context"
	"sync"
)

// MockClient is a TTS client for testing. It returns a small fixed
// payload unless told to fail.
type MockClient struct {
	mu  sync.Mutex
	err error

	// Calls records every synthesized text, for assertions.
	Calls []string
}

// NewMockClient creates a new mock TTS client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Fail makes every subsequent Synthesize call return err.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Synthesize returns a canned audio payload.
func (m *MockClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, text)
	if m.err != nil {
		return nil, m.err
	}
	return []byte("mock-audio"), nil
}
