// Package domain defines the core domain models for the voice assistant
// backend.
package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	// RoleTool marks tool-result pseudo-turns. They are visible to the
	// model but never exposed on the transport.
	RoleTool Role = "tool"
)

// ApprovalMode controls whether a provider's tool calls are gated on
// explicit user confirmation.
type ApprovalMode string

const (
	ApprovalAlwaysAsk   ApprovalMode = "always_ask"
	ApprovalAutoApprove ApprovalMode = "auto_approve"
	ApprovalNever       ApprovalMode = "never"
)

// Valid reports whether m is a known approval mode.
func (m ApprovalMode) Valid() bool {
	switch m {
	case ApprovalAlwaysAsk, ApprovalAutoApprove, ApprovalNever:
		return true
	}
	return false
}

// PolicyDecision is the outcome of evaluating the tool policy for a call.
type PolicyDecision string

const (
	PolicyAllow           PolicyDecision = "allow"
	PolicyRequireApproval PolicyDecision = "require_approval"
	PolicyBlock           PolicyDecision = "block"
)
