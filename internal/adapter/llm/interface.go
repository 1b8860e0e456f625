// Package llm provides the language model collaborator used to drive
// conversation turns.
package llm

import (
	"context"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// Request is one model invocation: a persona-derived system preamble,
// the windowed conversation history and the advertised tool schemas.
type Request struct {
	Model   string
	System  string
	History []domain.Message
	Tools   []domain.ToolSchema
}

// Completion is the model's reply. ToolCall is non-nil when the model
// requested a function call instead of (or alongside) plain text.
type Completion struct {
	Text     string
	ToolCall *domain.ToolInvocation
}

// Client defines the interface for LLM operations.
type Client interface {
	// Complete sends one chat completion request.
	Complete(ctx context.Context, req *Request) (*Completion, error)
}

// Ensure implementations satisfy the interface.
var (
	_ Client = (*HTTPClient)(nil)
	_ Client = (*MockClient)(nil)
)
