package domain

import (
	"encoding/json"
	"time"
)

// ToolSchema describes one tool as advertised to the model.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ProviderConfig is the configuration for one tool provider. Builtin
// providers use the "builtin://" URL scheme and execute in-process;
// everything else is an external HTTP provider.
type ProviderConfig struct {
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	APIKey       string       `json:"api_key,omitempty"`
	Enabled      bool         `json:"enabled"`
	ApprovalMode ApprovalMode `json:"approval_mode"`
	Description  string       `json:"description,omitempty"`
	UserID       string       `json:"user_id,omitempty"`
}

// BuiltinScheme prefixes provider URLs whose tools run in-process.
const BuiltinScheme = "builtin://"

// Builtin reports whether the provider executes in-process.
func (p ProviderConfig) Builtin() bool {
	return len(p.URL) >= len(BuiltinScheme) && p.URL[:len(BuiltinScheme)] == BuiltinScheme
}

// PendingToolCall is a tool call gated on user confirmation.
type PendingToolCall struct {
	CallID    string          `json:"call_id"`
	ToolName  string          `json:"tool_name"`
	Arguments json.RawMessage `json:"arguments"`
	UserID    string          `json:"user_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// ToolResult is the outcome of one tool invocation. Exactly one of the
// three shapes is meaningful: an error (Err non-empty), a pending
// approval (RequiresApproval with CallID), or a completed result (Text).
type ToolResult struct {
	Text             string `json:"text,omitempty"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
	CallID           string `json:"call_id,omitempty"`
	Err              string `json:"error,omitempty"`
}

// Failed reports whether the invocation ended in an error.
func (r ToolResult) Failed() bool { return r.Err != "" }

// Pending reports whether the invocation is waiting on user approval.
func (r ToolResult) Pending() bool { return r.RequiresApproval }

// ToolInvocation is a model-issued function call.
type ToolInvocation struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}
