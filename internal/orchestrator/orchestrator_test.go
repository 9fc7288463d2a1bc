package orchestrator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/provider"
	"github.com/openhouse-crm/assistant/internal/tools"
)

func newEchoExecutor(t *testing.T) *tools.Executor {
	t.Helper()
	r := tools.NewRegistry()
	r.MustRegister(domain.ToolDefinition{Name: "add_client"}, func(ctx context.Context, args map[string]any) (any, error) {
		return map[string]any{"client_id": "cl_1"}, nil
	})
	r.MustRegister(domain.ToolDefinition{Name: "broken_tool"}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, errors.New("store unavailable")
	})
	return tools.NewExecutor(r, nil)
}

func TestRunTextOnlyFinishesInOneTurn(t *testing.T) {
	adapter := provider.NewMockAdapter(&provider.Response{Text: "You have 3 deadlines this week."})
	o := New(adapter, newEchoExecutor(t), 5)

	result, err := o.Run(context.Background(), "system", nil, "what's due?", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "You have 3 deadlines this week.", result.Text)
	assert.Equal(t, 1, result.Turns)
}

func TestRunExecutesToolCallsThenFinishes(t *testing.T) {
	adapter := provider.NewMockAdapter(
		&provider.Response{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Name: "add_client", Arguments: map[string]any{"name": "Jane Doe"}},
		}},
		&provider.Response{Text: "Added Jane Doe as a new client."},
	)
	o := New(adapter, newEchoExecutor(t), 5)

	result, err := o.Run(context.Background(), "system", nil, "add jane doe", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, 2, result.Turns)

	// The second provider call must carry the assistant tool-call message
	// followed by exactly one tool result matched by call id.
	calls := adapter.Calls()
	require.Len(t, calls, 2)
	second := calls[1]
	last := second[len(second)-1]
	assert.Equal(t, domain.RoleTool, last.Role)
	assert.Equal(t, "call_1", last.ToolCallID)

	var decoded struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal([]byte(last.Content), &decoded))
	assert.True(t, decoded.Success)

	prev := second[len(second)-2]
	assert.Equal(t, domain.RoleAssistant, prev.Role)
	require.Len(t, prev.ToolCalls, 1)
	assert.Equal(t, "call_1", prev.ToolCalls[0].ID)
}

func TestRunToolFailureContinuesLoop(t *testing.T) {
	adapter := provider.NewMockAdapter(
		&provider.Response{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Name: "broken_tool"},
		}},
		&provider.Response{Text: "I couldn't reach the store, sorry."},
	)
	o := New(adapter, newEchoExecutor(t), 5)

	result, err := o.Run(context.Background(), "system", nil, "do the thing", nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, result.State)

	calls := adapter.Calls()
	require.Len(t, calls, 2)
	second := calls[1]
	last := second[len(second)-1]

	var decoded struct {
		Success bool   `json:"success"`
		Payload string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal([]byte(last.Content), &decoded))
	assert.False(t, decoded.Success)
	assert.Contains(t, decoded.Payload, "store unavailable")
}

func TestRunGuardrailTerminatesLoop(t *testing.T) {
	// A provider that always asks for another tool call never converges.
	adapter := provider.NewMockAdapter(&provider.Response{ToolCalls: []domain.ToolCall{
		{ID: "call_x", Name: "add_client", Arguments: map[string]any{"name": "Loop"}},
	}})
	o := New(adapter, newEchoExecutor(t), 3)

	result, err := o.Run(context.Background(), "system", nil, "loop forever", nil)
	require.Error(t, err)
	assert.True(t, domain.IsGuardrailError(err))
	require.NotNil(t, result)
	assert.Equal(t, StateFailed, result.State)
	assert.Equal(t, FallbackMessage, result.Text)
	assert.Equal(t, 3, result.Turns)
	assert.Len(t, adapter.Calls(), 3)
}

func TestRunProviderErrorPropagates(t *testing.T) {
	adapter := provider.NewMockAdapter().FailWith(errors.New("upstream 500"))
	o := New(adapter, newEchoExecutor(t), 5)

	result, err := o.Run(context.Background(), "system", nil, "hello", nil)
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
	assert.Nil(t, result)
}

func TestBuildMessagesOrder(t *testing.T) {
	history := []domain.Message{
		{Role: domain.RoleUser, Content: "earlier question"},
		{Role: domain.RoleAssistant, Content: "earlier answer"},
	}

	messages := buildMessages("prompt", history, "new question")
	require.Len(t, messages, 4)
	assert.Equal(t, domain.RoleSystem, messages[0].Role)
	assert.Equal(t, "earlier question", messages[1].Content)
	assert.Equal(t, "earlier answer", messages[2].Content)
	assert.Equal(t, "new question", messages[3].Content)

	messages = buildMessages("", nil, "solo")
	require.Len(t, messages, 1)
	assert.Equal(t, domain.RoleUser, messages[0].Role)
}
