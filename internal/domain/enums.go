// Package domain defines the core domain models for the assistant orchestrator.
package domain

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// RunStatus represents the status of a chat run.
type RunStatus string

const (
	RunStatusCreated RunStatus = "CREATED"
	RunStatusRunning RunStatus = "RUNNING"
	RunStatusDone    RunStatus = "DONE"
	RunStatusFailed  RunStatus = "FAILED"
)

// EventType represents the type of an audit event.
type EventType string

const (
	EventTypeRunStarted          EventType = "run_started"
	EventTypeUserInput           EventType = "user_input"
	EventTypeContextBuilt        EventType = "context_built"
	EventTypeProviderCallStarted EventType = "provider_call_started"
	EventTypeProviderCallDone    EventType = "provider_call_done"
	EventTypeToolCallStarted     EventType = "tool_call_started"
	EventTypePolicyDecision      EventType = "policy_decision"
	EventTypeToolResult          EventType = "tool_result"
	EventTypeRunDone             EventType = "run_done"
	EventTypeRunFailed           EventType = "run_failed"
)

// LeadStatus represents the pipeline status of a client.
type LeadStatus string

const (
	LeadStatusHot    LeadStatus = "hot"
	LeadStatusWarm   LeadStatus = "warm"
	LeadStatusCold   LeadStatus = "cold"
	LeadStatusActive LeadStatus = "active"
	LeadStatusClosed LeadStatus = "closed"
)

// ValidLeadStatus reports whether s is a known lead status.
func ValidLeadStatus(s LeadStatus) bool {
	switch s {
	case LeadStatusHot, LeadStatusWarm, LeadStatusCold, LeadStatusActive, LeadStatusClosed:
		return true
	}
	return false
}

// TransactionStatus represents the lifecycle status of a transaction.
type TransactionStatus string

const (
	TransactionStatusPending       TransactionStatus = "pending"
	TransactionStatusActive        TransactionStatus = "active"
	TransactionStatusUnderContract TransactionStatus = "under_contract"
	TransactionStatusClosed        TransactionStatus = "closed"
	TransactionStatusCancelled     TransactionStatus = "cancelled"
)

// HistoryScope selects how conversation history is keyed.
type HistoryScope string

const (
	// HistoryScopeUser keeps a rolling window of the user's global history.
	HistoryScopeUser HistoryScope = "user"
	// HistoryScopeSession keys history by the ephemeral session identifier.
	HistoryScopeSession HistoryScope = "session"
)
