package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddhartharyaai/voice-soul-agent-isha/internal/domain"
)

func TestDefaultPolicyDecisions(t *testing.T) {
	engine, err := NewEngine(context.Background(), DefaultPolicy)
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), Input{
		ToolName: "send_email", Provider: "gmail", ApprovalMode: "always_ask", UserID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyRequireApproval, decision)

	decision, err = engine.Evaluate(context.Background(), Input{
		ToolName: "get_weather", Provider: "openweather", ApprovalMode: "auto_approve", UserID: "u1",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyAllow, decision)
}

func TestCustomPolicyCanBlock(t *testing.T) {
	const blockDeletes = `
package tool_policy

default decision = "allow"

decision = "block" {
	startswith(input.tool_name, "delete_")
}
`
	engine, err := NewEngine(context.Background(), blockDeletes)
	require.NoError(t, err)

	decision, err := engine.Evaluate(context.Background(), Input{ToolName: "delete_all"})
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyBlock, decision)
}

func TestBrokenPolicyFailsToCompile(t *testing.T) {
	_, err := NewEngine(context.Background(), "package tool_policy\ndecision {")
	assert.Error(t, err)
}
