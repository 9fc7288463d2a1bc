package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// recordEvent appends one audit event for a run. Audit persistence
// failures are logged and never abort the in-flight turn.
func (s *Service) recordEvent(ctx context.Context, runID string, eventType domain.EventType, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("run_id", runID).Str("type", string(eventType)).
			Msg("failed to marshal event payload")
		data = nil
	}

	event := &domain.Event{
		EventID: "ev_" + uuid.New().String()[:8],
		RunID:   runID,
		Ts:      time.Now().UnixMilli(),
		Type:    eventType,
		Payload: data,
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		log.Error().Err(err).Str("run_id", runID).Str("type", string(eventType)).
			Msg("failed to record event")
	}
}
