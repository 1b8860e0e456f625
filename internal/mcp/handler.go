package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/obs"
	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/policy"
)

// Handler is the single entry point the session loop uses to advertise
// and invoke tools. It composes the registry, the approval store and
// the policy engine.
type Handler struct {
	registry  *Registry
	approvals *ApprovalStore
	policy    *policy.Engine
	metrics   *obs.Metrics
	logger    *slog.Logger
}

// NewHandler creates a tool protocol handler.
func NewHandler(registry *Registry, approvals *ApprovalStore, engine *policy.Engine, metrics *obs.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		registry:  registry,
		approvals: approvals,
		policy:    engine,
		metrics:   metrics,
		logger:    logger,
	}
}

// AvailableTools returns the schemas advertised to the model. It is
// side-effect-free.
func (h *Handler) AvailableTools() []domain.ToolSchema {
	return h.registry.ListEnabledTools()
}

// Execute runs one model-issued tool call. The outcome is always a
// ToolResult; no failure propagates as an error to the caller.
func (h *Handler) Execute(ctx context.Context, toolName string, args json.RawMessage, userID string) domain.ToolResult {
	return h.execute(ctx, toolName, args, userID, false)
}

func (h *Handler) execute(ctx context.Context, toolName string, args json.RawMessage, userID string, skipApproval bool) domain.ToolResult {
	provider, err := h.registry.Resolve(toolName)
	if err != nil {
		h.metrics.ToolCall("unknown")
		return domain.ToolResult{Err: fmt.Sprintf("unknown tool: %s", toolName)}
	}

	if !skipApproval {
		switch h.decide(ctx, provider, toolName, args, userID) {
		case domain.PolicyBlock:
			h.metrics.ToolCall("blocked")
			return domain.ToolResult{Err: fmt.Sprintf("tool %s is blocked by policy", toolName)}
		case domain.PolicyRequireApproval:
			callID := h.approvals.Put(domain.PendingToolCall{
				ToolName:  toolName,
				Arguments: args,
				UserID:    userID,
				CreatedAt: time.Now(),
			})
			h.metrics.ToolCall("pending")
			h.logger.Info("tool call pending approval", "tool", toolName, "call_id", callID, "user_id", userID)
			return domain.ToolResult{
				RequiresApproval: true,
				CallID:           callID,
				Text:             fmt.Sprintf("I need your approval to run %s with arguments %s.", toolName, compactArgs(args)),
			}
		}
	}

	text, err := h.dispatch(ctx, provider, toolName, args)
	if err != nil {
		h.metrics.ToolCall("error")
		h.logger.Warn("tool execution failed", "tool", toolName, "error", err)
		return domain.ToolResult{Err: err.Error()}
	}
	h.metrics.ToolCall("executed")
	return domain.ToolResult{Text: text}
}

// decide evaluates the tool policy. A policy evaluation error falls
// back to the provider's approval mode so a broken policy cannot let
// gated calls through.
func (h *Handler) decide(ctx context.Context, provider *Provider, toolName string, args json.RawMessage, userID string) domain.PolicyDecision {
	var argMap map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &argMap); err != nil {
			argMap = nil
		}
	}

	decision, err := h.policy.Evaluate(ctx, policy.Input{
		ToolName:     toolName,
		Provider:     provider.Config.Name,
		ApprovalMode: string(provider.Config.ApprovalMode),
		UserID:       userID,
		Args:         argMap,
	})
	if err != nil {
		h.logger.Error("policy evaluation failed, falling back to approval mode", "tool", toolName, "error", err)
		if provider.Config.ApprovalMode == domain.ApprovalAlwaysAsk {
			return domain.PolicyRequireApproval
		}
		return domain.PolicyAllow
	}
	return decision
}

func (h *Handler) dispatch(ctx context.Context, provider *Provider, toolName string, args json.RawMessage) (string, error) {
	if provider.Config.Builtin() {
		exec := provider.handlers[toolName]
		if exec == nil {
			return "", fmt.Errorf("no executor registered for %s", toolName)
		}
		return exec(ctx, args)
	}
	return h.registry.invoker.Invoke(ctx, provider.Config, toolName, args)
}

// Approve consumes a pending call and executes it with the approval
// gate bypassed. An unknown or already-resolved call id returns
// ErrNotFound, distinct from an execution failure.
func (h *Handler) Approve(ctx context.Context, callID string) (domain.ToolResult, error) {
	call, ok := h.approvals.Take(callID)
	if !ok {
		return domain.ToolResult{}, fmt.Errorf("pending call %s: %w", callID, domain.ErrNotFound)
	}
	h.logger.Info("tool call approved", "tool", call.ToolName, "call_id", callID)
	return h.execute(ctx, call.ToolName, call.Arguments, call.UserID, true), nil
}

// Deny consumes a pending call without executing it. The return value
// reports whether a call was actually removed.
func (h *Handler) Deny(callID string) bool {
	call, ok := h.approvals.Take(callID)
	if ok {
		h.metrics.ToolCall("denied")
		h.logger.Info("tool call denied", "tool", call.ToolName, "call_id", callID)
	}
	return ok
}

func compactArgs(args json.RawMessage) string {
	if len(args) == 0 {
		return "{}"
	}
	return string(args)
}
