// Package policy evaluates tool-call policy with OPA.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

// Engine decides whether a tool call may run, requires user approval, or
// is blocked outright.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles the given rego policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.tool_policy.decision"),
		rego.Module("tool_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Input is the document the policy is evaluated against.
type Input struct {
	ToolName     string         `json:"tool_name"`
	Provider     string         `json:"provider"`
	ApprovalMode string         `json:"approval_mode"`
	UserID       string         `json:"user_id"`
	Args         map[string]any `json:"args"`
}

// Evaluate returns the policy decision for one tool call.
func (e *Engine) Evaluate(ctx context.Context, input Input) (domain.PolicyDecision, error) {
	if input.Args == nil {
		input.Args = map[string]any{}
	}

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.PolicyAllow, nil
	}

	s, ok := results[0].Expressions[0].Value.(string)
	if !ok {
		return domain.PolicyAllow, nil
	}

	switch d := domain.PolicyDecision(s); d {
	case domain.PolicyAllow, domain.PolicyRequireApproval, domain.PolicyBlock:
		return d, nil
	default:
		return "", fmt.Errorf("policy returned unknown decision %q", s)
	}
}

// DefaultPolicy derives the decision from the provider's approval mode.
// Deployments can swap in a stricter policy that also blocks on tool
// name or argument values.
const DefaultPolicy = `
package tool_policy

default decision = "allow"

decision = "require_approval" {
	input.approval_mode == "always_ask"
}
`
