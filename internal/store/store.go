// Package store provides persistent storage for the assistant.
package store

import (
	"context"
	"encoding/json"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// Store is the persistence contract consumed by the service layer. It
// covers the business data (clients, transactions, deadlines), the
// conversation history, and the run audit trail.
type Store interface {
	// Clients
	CreateClient(ctx context.Context, client *domain.Client) error
	// FindOrCreateClient resolves a client by normalized name, inserting
	// one when absent. The insert relies on a unique (user, name) index
	// so concurrent requests cannot create duplicates. The returned bool
	// is true when a new record was created.
	FindOrCreateClient(ctx context.Context, userID, name string, status domain.LeadStatus) (*domain.Client, bool, error)
	// FindClientByName performs a fuzzy name lookup, preferring an exact
	// normalized match over a substring match.
	FindClientByName(ctx context.Context, userID, name string) (*domain.Client, error)
	UpdateClientStatus(ctx context.Context, clientID string, status domain.LeadStatus) error
	UpdateClientContact(ctx context.Context, clientID, email, phone string) error
	ListRecentClients(ctx context.Context, userID string, limit int) ([]domain.Client, error)

	// Transactions
	CreateTransaction(ctx context.Context, tx *domain.Transaction) error
	ListActiveTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error)

	// Deadlines
	CreateDeadline(ctx context.Context, d *domain.Deadline) error
	ListPendingDeadlines(ctx context.Context, userID string, limit int) ([]domain.Deadline, error)
	FindPendingDeadlineByTitle(ctx context.Context, userID, title string) (*domain.Deadline, error)
	CompleteDeadline(ctx context.Context, deadlineID string) error

	// Conversation history. Append is append-only; Recent returns the
	// newest messages for the owner key, oldest first, never reordered.
	AppendHistory(ctx context.Context, msg *domain.HistoryMessage) error
	RecentHistory(ctx context.Context, ownerKey string, limit int) ([]domain.HistoryMessage, error)

	// Runs and audit events
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, runID string) (*domain.Run, error)
	UpdateRunCompleted(ctx context.Context, runID string, status domain.RunStatus, errData json.RawMessage) error
	AppendEvent(ctx context.Context, event *domain.Event) error
	ListRunEvents(ctx context.Context, runID string, limit int) ([]domain.Event, error)

	Close() error
}
