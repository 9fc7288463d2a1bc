package domain

import "time"

// Message is the provider-neutral representation of one conversation turn.
// Ordering is significant and must be preserved exactly as appended.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Timestamp  time.Time  `json:"timestamp,omitempty"`
}

// ToolCall is a structured request emitted by the model naming an
// operation and the arguments it wants executed. The orchestrator never
// fabricates these.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult is the outcome of executing a single tool call. Exactly one
// result exists per call before the next provider round-trip.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Success bool   `json:"success"`
	Payload any    `json:"payload,omitempty"`
}

// ConversationState tracks one in-flight request. It is created at the
// start of a chat request and discarded at the end; durability comes
// only from the history store.
type ConversationState struct {
	TurnCount        int
	Messages         []Message
	PendingToolCalls []ToolCall
}

// HistoryMessage is a durably stored conversation turn.
type HistoryMessage struct {
	MessageID string    `json:"message_id"`
	OwnerKey  string    `json:"owner_key"`
	SessionID string    `json:"session_id,omitempty"`
	UserID    string    `json:"user_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
