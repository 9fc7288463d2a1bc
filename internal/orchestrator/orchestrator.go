// Package orchestrator implements the conversational tool-calling loop.
package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/provider"
	"github.com/openhouse-crm/assistant/internal/tools"
)

// State names one phase of the conversation state machine.
type State string

const (
	StateBuildingRequest  State = "BUILDING_REQUEST"
	StateAwaitingProvider State = "AWAITING_PROVIDER"
	StateExecutingTools   State = "EXECUTING_TOOLS"
	StateDone             State = "DONE"
	StateFailed           State = "FAILED"
)

// FallbackMessage is returned to the user when the loop guardrail
// trips. It is a fixed string so operators can spot it in transcripts.
const FallbackMessage = "I'm sorry, I wasn't able to complete that request. Please try asking again."

// Result is the terminal outcome of one orchestrator run.
type Result struct {
	State State
	Text  string
	Turns int
}

// Orchestrator owns the turn loop: it round-trips the provider,
// dispatches tool calls sequentially, and stops on a final text answer
// or the guardrail bound. One Run call handles exactly one inbound
// message; the orchestrator itself holds no cross-request state.
type Orchestrator struct {
	adapter  provider.Adapter
	executor *tools.Executor
	maxTurns int
	onEvent  tools.EventFunc
}

// New creates an orchestrator. maxTurns bounds the number of provider
// round-trips per run.
func New(adapter provider.Adapter, executor *tools.Executor, maxTurns int) *Orchestrator {
	if maxTurns < 1 {
		maxTurns = 5
	}
	return &Orchestrator{adapter: adapter, executor: executor, maxTurns: maxTurns}
}

// OnEvent installs an audit event callback for provider round-trips.
// Tool-level events are emitted by the executor.
func (o *Orchestrator) OnEvent(fn tools.EventFunc) {
	o.onEvent = fn
}

func (o *Orchestrator) emit(eventType domain.EventType, payload any) {
	if o.onEvent != nil {
		o.onEvent(eventType, payload)
	}
}

// Run executes the state machine to a terminal state. The returned
// Result is non-nil whenever err is nil or err is a GuardrailError; a
// provider failure returns a nil Result and a *domain.ProviderError.
func (o *Orchestrator) Run(ctx context.Context, system string, history []domain.Message, userMessage string, defs []domain.ToolDefinition) (*Result, error) {
	state := domain.ConversationState{
		Messages: buildMessages(system, history, userMessage),
	}

	for {
		state.TurnCount++
		if state.TurnCount > o.maxTurns {
			log.Warn().Int("max_turns", o.maxTurns).Msg("turn guardrail exceeded, terminating loop")
			o.emit(domain.EventTypeRunFailed, domain.RunFailedPayload{
				Code:    "guardrail_exceeded",
				Message: "turn limit reached",
			})
			return &Result{State: StateFailed, Text: FallbackMessage, Turns: o.maxTurns},
				&domain.GuardrailError{MaxTurns: o.maxTurns}
		}

		o.emit(domain.EventTypeProviderCallStarted, domain.ProviderCallStartedPayload{
			Turn:     state.TurnCount,
			Provider: o.adapter.Name(),
			Messages: len(state.Messages),
		})

		start := time.Now()
		resp, err := o.adapter.Send(ctx, state.Messages, defs)
		latency := time.Since(start).Milliseconds()

		if err != nil {
			log.Error().Err(err).Int("turn", state.TurnCount).Msg("provider call failed")
			o.emit(domain.EventTypeProviderCallDone, domain.ProviderCallDonePayload{
				Turn:      state.TurnCount,
				Provider:  o.adapter.Name(),
				LatencyMs: latency,
				Error:     err.Error(),
			})
			return nil, err
		}

		o.emit(domain.EventTypeProviderCallDone, domain.ProviderCallDonePayload{
			Turn:      state.TurnCount,
			Provider:  o.adapter.Name(),
			LatencyMs: latency,
			ToolCalls: len(resp.ToolCalls),
		})

		if len(resp.ToolCalls) == 0 {
			return &Result{State: StateDone, Text: resp.Text, Turns: state.TurnCount}, nil
		}

		// Execute the batch sequentially so side effects land in a
		// deterministic, auditable order and two calls never race on the
		// same find-or-create lookup.
		state.PendingToolCalls = resp.ToolCalls
		state.Messages = append(state.Messages, domain.Message{
			Role:      domain.RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
			Timestamp: time.Now(),
		})
		for _, call := range resp.ToolCalls {
			result := o.executor.Execute(ctx, call)
			state.Messages = append(state.Messages, domain.Message{
				Role:       domain.RoleTool,
				Content:    encodeResult(result),
				ToolCallID: result.CallID,
				Timestamp:  time.Now(),
			})
		}
		state.PendingToolCalls = nil
	}
}

func buildMessages(system string, history []domain.Message, userMessage string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	if system != "" {
		messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: system})
	}
	messages = append(messages, history...)
	messages = append(messages, domain.Message{Role: domain.RoleUser, Content: userMessage, Timestamp: time.Now()})
	return messages
}

func encodeResult(result domain.ToolResult) string {
	encoded, err := json.Marshal(map[string]any{
		"success": result.Success,
		"payload": result.Payload,
	})
	if err != nil {
		return `{"success":false,"payload":"tool result could not be encoded"}`
	}
	return string(encoded)
}
