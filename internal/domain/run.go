package domain

import (
	"encoding/json"
	"time"
)

// Run represents a single execution of the chat orchestrator.
type Run struct {
	RunID     string          `json:"run_id"`
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
	Status    RunStatus       `json:"status"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
}

// Event is an audit record. The sequence of events for a run is the
// authoritative trace of every store write and notification dispatch
// the run triggered.
type Event struct {
	EventID string          `json:"event_id"`
	RunID   string          `json:"run_id"`
	Ts      int64           `json:"ts"` // Unix milliseconds
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RunStartedPayload is the payload for run_started events.
type RunStartedPayload struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
}

// UserInputPayload is the payload for user_input events.
type UserInputPayload struct {
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content"`
	Greeting  bool   `json:"greeting,omitempty"`
}

// ProviderCallStartedPayload is the payload for provider_call_started events.
type ProviderCallStartedPayload struct {
	Turn     int    `json:"turn"`
	Provider string `json:"provider"`
	Messages int    `json:"messages"`
}

// ProviderCallDonePayload is the payload for provider_call_done events.
type ProviderCallDonePayload struct {
	Turn      int    `json:"turn"`
	Provider  string `json:"provider"`
	LatencyMs int64  `json:"latency_ms"`
	ToolCalls int    `json:"tool_calls"`
	Error     string `json:"error,omitempty"`
}

// ToolCallStartedPayload is the payload for tool_call_started events.
type ToolCallStartedPayload struct {
	CallID string         `json:"call_id"`
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
}

// PolicyDecisionPayload is the payload for policy_decision events.
type PolicyDecisionPayload struct {
	CallID   string `json:"call_id"`
	Name     string `json:"name"`
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// ToolResultPayload is the payload for tool_result events.
type ToolResultPayload struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Success bool   `json:"success"`
	Payload any    `json:"payload,omitempty"`
}

// RunDonePayload is the payload for run_done events.
type RunDonePayload struct {
	Response string `json:"response"`
	Turns    int    `json:"turns"`
}

// RunFailedPayload is the payload for run_failed events.
type RunFailedPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
