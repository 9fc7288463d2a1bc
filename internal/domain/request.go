package domain

// ChatRequest is the inbound body for POST /v1/chat.
type ChatRequest struct {
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the outbound body for POST /v1/chat.
type ChatResponse struct {
	Success  bool   `json:"success"`
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}
