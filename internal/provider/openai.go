package provider

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/openhouse-crm/assistant/internal/domain"
)

const defaultOpenAIModel = "gpt-4o"

// openAIRoles maps the neutral role set onto OpenAI's chat roles.
var openAIRoles = map[domain.Role]string{
	domain.RoleSystem:    openai.ChatMessageRoleSystem,
	domain.RoleUser:      openai.ChatMessageRoleUser,
	domain.RoleAssistant: openai.ChatMessageRoleAssistant,
	domain.RoleTool:      openai.ChatMessageRoleTool,
}

// OpenAIAdapter speaks the OpenAI chat completions function-calling
// protocol.
type OpenAIAdapter struct {
	client *openai.Client
	model  string
}

// NewOpenAIAdapter creates an adapter over the given API key. baseURL
// overrides the API endpoint when non-empty (proxies, compatible APIs).
func NewOpenAIAdapter(apiKey, baseURL, model string) *OpenAIAdapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIAdapter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (a *OpenAIAdapter) Name() string { return "openai" }

// Send performs one chat completion round-trip.
func (a *OpenAIAdapter) Send(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: toOpenAIMessages(messages),
		Tools:    toOpenAITools(tools),
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, providerErr(a.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, providerErr(a.Name(), errors.New("response contained no choices"))
	}

	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func toOpenAIMessages(messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:       openAIRoles[m.Role],
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		for _, call := range m.ToolCalls {
			args, err := json.Marshal(call.Arguments)
			if err != nil {
				args = []byte("{}")
			}
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Name,
					Arguments: string(args),
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func toOpenAITools(tools []domain.ToolDefinition) []openai.Tool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(tools))
	for _, def := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) *Response {
	if len(msg.ToolCalls) == 0 {
		return &Response{Text: msg.Content}
	}

	resp := &Response{}
	for _, tc := range msg.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				log.Warn().Err(err).Str("tool", tc.Function.Name).
					Msg("tool call arguments are not valid JSON")
				args = map[string]any{}
			}
		}
		resp.ToolCalls = append(resp.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return resp
}
