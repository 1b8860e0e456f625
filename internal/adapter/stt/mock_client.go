package stt

import (
	"context"
	"sync"
)

// MockClient is a scriptable STT client for testing. Queued transcripts
// are returned in order; once the queue drains every payload transcribes
// to a fixed phrase, and empty payloads transcribe to nothing.
type MockClient struct {
	mu    sync.Mutex
	queue []string
	err   error
}

// NewMockClient creates a new mock STT client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Enqueue adds a transcript to be returned by a future Transcribe call.
func (m *MockClient) Enqueue(transcript string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, transcript)
}

// Fail makes every subsequent Transcribe call return err.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Transcribe returns the next queued transcript.
func (m *MockClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return "", m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	if len(audio) == 0 {
		return "", nil
	}
	return "Hello there.", nil
}
