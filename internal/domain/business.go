package domain

import "time"

// Client is a CRM client record.
type Client struct {
	ClientID  string     `json:"client_id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Status    LeadStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// Transaction is a real-estate deal tracked between contract and closing.
type Transaction struct {
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	ClientID      string            `json:"client_id"`
	Address       string            `json:"address"`
	Price         float64           `json:"price,omitempty"`
	Status        TransactionStatus `json:"status"`
	ContractDate  time.Time         `json:"contract_date"`
	ClosingDate   time.Time         `json:"closing_date"`
	CreatedAt     time.Time         `json:"created_at"`
}

// Deadline is a dated milestone on a transaction timeline.
type Deadline struct {
	DeadlineID    string     `json:"deadline_id"`
	TransactionID string     `json:"transaction_id"`
	UserID        string     `json:"user_id"`
	Title         string     `json:"title"`
	DueDate       time.Time  `json:"due_date"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// BusinessContext is a read-only snapshot of a user's pipeline, rebuilt
// each turn and never persisted.
type BusinessContext struct {
	PendingDeadlines   []Deadline    `json:"pending_deadlines"`
	ActiveTransactions []Transaction `json:"active_transactions"`
	RecentClients      []Client      `json:"recent_clients"`
}
