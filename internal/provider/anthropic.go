package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/internal/domain"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com"
	anthropicMessagesPath = "/v1/messages"
	anthropicVersion      = "2023-06-01"
	anthropicMaxTokens    = 1024
	defaultAnthropicModel = "claude-sonnet-4-20250514"
)

// anthropicRoles maps the neutral role set onto the Anthropic Messages
// API roles. System content travels in a dedicated request field and
// tool results travel as user-role content blocks, so both map to user.
var anthropicRoles = map[domain.Role]string{
	domain.RoleUser:      "user",
	domain.RoleAssistant: "assistant",
	domain.RoleTool:      "user",
}

// AnthropicAdapter speaks the Anthropic Messages API tool-use protocol.
type AnthropicAdapter struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewAnthropicAdapter creates an adapter over the given API key.
func NewAnthropicAdapter(apiKey, baseURL, model string, timeout time.Duration) *AnthropicAdapter {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicAdapter{
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *AnthropicAdapter) Name() string { return "anthropic" }

type anthropicContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type anthropicMessage struct {
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
}

type anthropicTool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *domain.JSONSchema `json:"input_schema"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
	MaxTokens int                `json:"max_tokens"`
}

type anthropicResponse struct {
	Content    []anthropicContentBlock `json:"content"`
	StopReason string                  `json:"stop_reason"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Send performs one messages round-trip.
func (a *AnthropicAdapter) Send(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*Response, error) {
	req := a.buildRequest(messages, tools)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, providerErr(a.Name(), errors.Wrap(err, "failed to marshal request"))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+anthropicMessagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, providerErr(a.Name(), errors.Wrap(err, "failed to create request"))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", a.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, providerErr(a.Name(), errors.Wrap(err, "request failed"))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, providerErr(a.Name(), errors.Wrap(err, "failed to read response"))
	}

	if httpResp.StatusCode != http.StatusOK {
		var errResp anthropicErrorResponse
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, providerErr(a.Name(), errors.Errorf("API error [%d, %s]: %s",
				httpResp.StatusCode, errResp.Error.Type, errResp.Error.Message))
		}
		return nil, providerErr(a.Name(), errors.Errorf("API error [%d]: %s", httpResp.StatusCode, string(respBody)))
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, providerErr(a.Name(), errors.Wrap(err, "failed to unmarshal response"))
	}

	return parseAnthropicResponse(&resp), nil
}

func (a *AnthropicAdapter) buildRequest(messages []domain.Message, tools []domain.ToolDefinition) *anthropicRequest {
	req := &anthropicRequest{
		Model:     a.model,
		MaxTokens: anthropicMaxTokens,
	}

	var system []string
	for _, m := range messages {
		if m.Role == domain.RoleSystem {
			system = append(system, m.Content)
			continue
		}

		var blocks []anthropicContentBlock
		switch {
		case m.Role == domain.RoleTool:
			blocks = append(blocks, anthropicContentBlock{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Content,
			})
		case len(m.ToolCalls) > 0:
			if m.Content != "" {
				blocks = append(blocks, anthropicContentBlock{Type: "text", Text: m.Content})
			}
			for _, call := range m.ToolCalls {
				blocks = append(blocks, anthropicContentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: call.Arguments,
				})
			}
		default:
			blocks = append(blocks, anthropicContentBlock{Type: "text", Text: m.Content})
		}

		req.Messages = append(req.Messages, anthropicMessage{
			Role:    anthropicRoles[m.Role],
			Content: blocks,
		})
	}
	req.System = strings.Join(system, "\n\n")

	for _, def := range tools {
		schema := def.Parameters
		if schema == nil {
			schema = &domain.JSONSchema{Type: "object"}
		}
		req.Tools = append(req.Tools, anthropicTool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		})
	}
	return req
}

func parseAnthropicResponse(resp *anthropicResponse) *Response {
	out := &Response{}
	var text []string
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text = append(text, block.Text)
		case "tool_use":
			args := block.Input
			if args == nil {
				args = map[string]any{}
			}
			out.ToolCalls = append(out.ToolCalls, domain.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
			})
		}
	}
	out.Text = strings.Join(text, "\n")
	if len(out.ToolCalls) > 0 {
		out.Text = ""
	}
	return out
}
