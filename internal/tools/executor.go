package tools

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/policy"
)

// EventFunc receives audit events emitted during execution.
type EventFunc func(eventType domain.EventType, payload any)

// Executor invokes a single tool handler with validated arguments,
// isolates its failure, and returns a structured result. A failing or
// panicking handler never aborts the surrounding conversation turn.
type Executor struct {
	registry *Registry
	policy   *policy.Engine
	onEvent  EventFunc
}

// NewExecutor creates an executor over the registry. The policy engine
// is optional; when nil every call is allowed.
func NewExecutor(registry *Registry, policyEngine *policy.Engine) *Executor {
	return &Executor{registry: registry, policy: policyEngine}
}

// OnEvent installs an audit event callback.
func (e *Executor) OnEvent(fn EventFunc) {
	e.onEvent = fn
}

func (e *Executor) emit(eventType domain.EventType, payload any) {
	if e.onEvent != nil {
		e.onEvent(eventType, payload)
	}
}

// Execute runs one tool call to a terminal result. It never returns an
// error: unknown tools, policy blocks, validation failures, handler
// errors, and handler panics all surface as a failed ToolResult.
func (e *Executor) Execute(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	e.emit(domain.EventTypeToolCallStarted, domain.ToolCallStartedPayload{
		CallID: call.ID,
		Name:   call.Name,
		Args:   call.Arguments,
	})

	result := e.execute(ctx, call)

	e.emit(domain.EventTypeToolResult, domain.ToolResultPayload{
		CallID:  result.CallID,
		Name:    call.Name,
		Success: result.Success,
		Payload: result.Payload,
	})
	return result
}

func (e *Executor) execute(ctx context.Context, call domain.ToolCall) domain.ToolResult {
	entry, ok := e.registry.Get(call.Name)
	if !ok {
		log.Warn().Str("tool", call.Name).Str("call_id", call.ID).Msg("unknown tool requested")
		return failed(call.ID, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}

	// Presence check for required fields. Providers may under-validate,
	// so handlers still re-check their inputs.
	if schema := entry.Definition.Parameters; schema != nil {
		for _, field := range schema.Required {
			if _, present := args[field]; !present {
				return failed(call.ID, fmt.Sprintf("missing required argument: %s", field))
			}
		}
	}

	if e.policy != nil {
		decision, reason, err := e.policy.Evaluate(ctx, map[string]any{
			"tool_name": call.Name,
			"user_id":   UserFrom(ctx),
			"args":      args,
		})
		if err != nil {
			log.Error().Err(err).Str("tool", call.Name).Msg("policy evaluation failed")
			return failed(call.ID, "policy evaluation failed")
		}
		e.emit(domain.EventTypePolicyDecision, domain.PolicyDecisionPayload{
			CallID:   call.ID,
			Name:     call.Name,
			Decision: decision,
			Reason:   reason,
		})
		if decision != "allow" {
			if reason == "" {
				reason = "blocked by policy"
			}
			return failed(call.ID, fmt.Sprintf("tool %s blocked: %s", call.Name, reason))
		}
	}

	payload, err := e.invoke(ctx, entry.Handler, args)
	if err != nil {
		log.Warn().Err(err).Str("tool", call.Name).Str("call_id", call.ID).Msg("tool handler failed")
		return failed(call.ID, err.Error())
	}

	return domain.ToolResult{CallID: call.ID, Success: true, Payload: payload}
}

// invoke runs the handler behind a recover boundary so a panicking
// handler degrades into an error result.
func (e *Executor) invoke(ctx context.Context, handler HandlerFunc, args map[string]any) (payload any, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("tool handler panicked")
			err = fmt.Errorf("tool handler panicked: %v", r)
		}
	}()
	return handler(ctx, args)
}

func failed(callID, message string) domain.ToolResult {
	return domain.ToolResult{CallID: callID, Success: false, Payload: message}
}
