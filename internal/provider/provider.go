// Package provider adapts the orchestrator's neutral message and tool
// representation to specific LLM backends.
package provider

import (
	"context"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// Response is the neutral shape of one provider round-trip: either a
// final text answer or one or more tool calls, never both interpreted
// at once (tool calls win when present).
type Response struct {
	Text      string
	ToolCalls []domain.ToolCall
}

// Adapter translates neutral messages and tool definitions into a
// provider's wire format and parses the reply back. Network and
// protocol failures surface as *domain.ProviderError; adapters never
// convert them into an empty response.
type Adapter interface {
	Name() string
	Send(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*Response, error)
}

func providerErr(name string, err error) error {
	return &domain.ProviderError{Provider: name, Err: err}
}
