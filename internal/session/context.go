// Package session implements the per-conversation orchestration loop
// and the process-wide session registry.
package session

import (
	"sync"
	"time"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// ConversationContext is the append-only message history of one
// session. The session loop is the only writer during normal turns, but
// persistence at session end reads from another goroutine, so access is
// guarded.
type ConversationContext struct {
	mu       sync.Mutex
	messages []domain.Message
}

// NewConversationContext creates an empty history.
func NewConversationContext() *ConversationContext {
	return &ConversationContext{}
}

// Append adds one message with the current timestamp.
func (c *ConversationContext) Append(role domain.Role, content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, domain.Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
}

// Window returns the most recent n messages for building model context.
// Tool pseudo-turns are included; the model sees them, the transport
// does not.
func (c *ConversationContext) Window(n int) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	start := 0
	if n > 0 && len(c.messages) > n {
		start = len(c.messages) - n
	}
	out := make([]domain.Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// All returns a copy of the full history, used for persistence. It is
// never truncated.
func (c *ConversationContext) All() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// TransportView returns the history without tool pseudo-turns, the way
// a client would have observed it.
func (c *ConversationContext) TransportView() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Message
	for _, m := range c.messages {
		if m.Role == domain.RoleTool {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Len returns the number of messages, tool pseudo-turns included.
func (c *ConversationContext) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}
