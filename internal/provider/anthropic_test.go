package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhouse-crm/assistant/internal/domain"
)

func TestAnthropicBuildRequest(t *testing.T) {
	a := NewAnthropicAdapter("key", "", "claude-sonnet-4-20250514", time.Second)

	messages := []domain.Message{
		{Role: domain.RoleSystem, Content: "be helpful"},
		{Role: domain.RoleUser, Content: "add jane"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
			{ID: "toolu_1", Name: "add_client", Arguments: map[string]any{"name": "Jane"}},
		}},
		{Role: domain.RoleTool, Content: `{"success":true}`, ToolCallID: "toolu_1"},
	}
	req := a.buildRequest(messages, []domain.ToolDefinition{{Name: "add_client"}})

	// System content travels in the dedicated field, not the message list.
	assert.Equal(t, "be helpful", req.System)
	require.Len(t, req.Messages, 3)

	assert.Equal(t, "user", req.Messages[0].Role)

	require.Len(t, req.Messages[1].Content, 1)
	assert.Equal(t, "tool_use", req.Messages[1].Content[0].Type)
	assert.Equal(t, "toolu_1", req.Messages[1].Content[0].ID)

	// Tool results are user-role tool_result blocks.
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "tool_result", req.Messages[2].Content[0].Type)
	assert.Equal(t, "toolu_1", req.Messages[2].Content[0].ToolUseID)

	require.Len(t, req.Tools, 1)
	require.NotNil(t, req.Tools[0].InputSchema)
	assert.Equal(t, "object", req.Tools[0].InputSchema.Type)
}

func TestAnthropicSendParsesToolUse(t *testing.T) {
	var gotVersion, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")

		var req anthropicRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Model)

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContentBlock{
				{Type: "text", Text: "Let me add that client."},
				{Type: "tool_use", ID: "toolu_1", Name: "add_client", Input: map[string]any{"name": "Jane"}},
			},
			StopReason: "tool_use",
		})
	}))
	defer server.Close()

	a := NewAnthropicAdapter("secret", server.URL, "", time.Second)
	resp, err := a.Send(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "add jane"},
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, "2023-06-01", gotVersion)
	assert.Equal(t, "secret", gotKey)

	// Tool calls win over interleaved text.
	assert.Empty(t, resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.Equal(t, map[string]any{"name": "Jane"}, resp.ToolCalls[0].Arguments)
}

func TestAnthropicSendTextOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicResponse{
			Content:    []anthropicContentBlock{{Type: "text", Text: "All set."}},
			StopReason: "end_turn",
		})
	}))
	defer server.Close()

	a := NewAnthropicAdapter("secret", server.URL, "", time.Second)
	resp, err := a.Send(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "thanks"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "All set.", resp.Text)
	assert.Empty(t, resp.ToolCalls)
}

func TestAnthropicSendAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"type": "rate_limit_error", "message": "slow down"},
		})
	}))
	defer server.Close()

	a := NewAnthropicAdapter("secret", server.URL, "", time.Second)
	_, err := a.Send(context.Background(), []domain.Message{
		{Role: domain.RoleUser, Content: "hello"},
	}, nil)
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
	assert.Contains(t, err.Error(), "rate_limit_error")
}
