package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicyAllowsByDefault(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(ctx, map[string]any{
		"tool_name": "add_client",
		"args":      map[string]any{"name": "Jane Doe"},
	})
	require.NoError(t, err)
	assert.Equal(t, "allow", decision)
}

func TestDefaultPolicyBlocksUnknownChannel(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	require.NoError(t, err)

	decision, _, err := engine.Evaluate(ctx, map[string]any{
		"tool_name": "send_briefing",
		"args":      map[string]any{"channel": "fax"},
	})
	require.NoError(t, err)
	assert.Equal(t, "block", decision)

	for _, channel := range []string{"email", "sms"} {
		decision, _, err := engine.Evaluate(ctx, map[string]any{
			"tool_name": "send_briefing",
			"args":      map[string]any{"channel": channel},
		})
		require.NoError(t, err)
		assert.Equal(t, "allow", decision, "channel %s", channel)
	}
}

func TestCustomPolicyWithReason(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, `
package assistant_tools

default decision = {"decision": "allow"}

decision = {"decision": "block", "reason": "read only mode"} {
	input.tool_name == "add_client"
}
`)
	require.NoError(t, err)

	decision, reason, err := engine.Evaluate(ctx, map[string]any{"tool_name": "add_client"})
	require.NoError(t, err)
	assert.Equal(t, "block", decision)
	assert.Equal(t, "read only mode", reason)
}
