package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/internal/domain"
)

const maxRunEvents = 200

// GetRunEvents returns the run record and its ordered audit trail.
func (s *Service) GetRunEvents(ctx context.Context, runID string) (*domain.Run, []domain.Event, error) {
	run, err := s.store.GetRun(ctx, runID)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "get run %s", runID)
	}
	if run == nil {
		return nil, nil, nil
	}
	events, err := s.store.ListRunEvents(ctx, runID, maxRunEvents)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "list events for run %s", runID)
	}
	return run, events, nil
}

// ListClients returns the user's most recently added clients.
func (s *Service) ListClients(ctx context.Context, userID string, limit int) ([]domain.Client, error) {
	clients, err := s.store.ListRecentClients(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list clients for %s", userID)
	}
	return clients, nil
}

// ListTransactions returns the user's active transactions.
func (s *Service) ListTransactions(ctx context.Context, userID string, limit int) ([]domain.Transaction, error) {
	txs, err := s.store.ListActiveTransactions(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list transactions for %s", userID)
	}
	return txs, nil
}

// ListDeadlines returns the user's pending deadlines ordered by due date.
func (s *Service) ListDeadlines(ctx context.Context, userID string, limit int) ([]domain.Deadline, error) {
	deadlines, err := s.store.ListPendingDeadlines(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list deadlines for %s", userID)
	}
	return deadlines, nil
}
