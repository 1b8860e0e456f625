package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// MockClient is a scriptable Client for testing. Queued completions are
// returned in order; once the queue drains it echoes the last user
// message.
type MockClient struct {
	mu    sync.Mutex
	queue []*Completion
	err   error

	// Requests records every request seen, for assertions.
	Requests []*Request
}

// NewMockClient creates a new mock LLM client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Enqueue adds a completion to be returned by a future Complete call.
func (m *MockClient) Enqueue(c *Completion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, c)
}

// Fail makes every subsequent Complete call return err.
func (m *MockClient) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete returns the next queued completion.
func (m *MockClient) Complete(ctx context.Context, req *Request) (*Completion, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}

	var lastUser string
	for i := len(req.History) - 1; i >= 0; i-- {
		if req.History[i].Role == domain.RoleUser {
			lastUser = req.History[i].Content
			break
		}
	}
	if lastUser == "" {
		return &Completion{Text: "This is a mock response."}, nil
	}
	return &Completion{Text: fmt.Sprintf("Received your message: %q.", lastUser)}, nil
}
