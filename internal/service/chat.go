package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/openhouse-crm/assistant/internal/assembler"
	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/orchestrator"
	"github.com/openhouse-crm/assistant/internal/tools"
)

const systemPrompt = `You are an assistant for a real-estate agent using the OpenHouse CRM.
You help track clients, transactions, and deadlines. Use the available
tools to read and update CRM data when the user asks for it. Answer
concisely and confirm every change you make.`

// ChatResult carries the final answer plus run metadata for the caller.
type ChatResult struct {
	Response string
	RunID    string
	Turns    int
}

// Chat handles one inbound user message end to end: validation, history
// append, context assembly, the orchestrator loop, and the final
// history append. History and audit persistence failures are logged and
// non-fatal; the in-flight message list keeps the turn coherent.
func (s *Service) Chat(ctx context.Context, req domain.ChatRequest) (*ChatResult, error) {
	userID := strings.TrimSpace(req.UserID)
	message := strings.TrimSpace(req.Message)
	if userID == "" {
		return nil, domain.NewValidationError("user_id", "is required")
	}
	if message == "" {
		return nil, domain.NewValidationError("message", "is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ChatTimeout)
	defer cancel()

	ownerKey := s.historyOwnerKey(userID, req.SessionID)
	runID := "run_" + uuid.New().String()[:8]
	now := time.Now().UTC()

	run := &domain.Run{
		RunID:     runID,
		UserID:    userID,
		SessionID: req.SessionID,
		Status:    domain.RunStatusRunning,
		StartedAt: now,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to create run record")
	}
	s.recordEvent(ctx, runID, domain.EventTypeRunStarted, domain.RunStartedPayload{
		UserID:    userID,
		SessionID: req.SessionID,
	})

	history := s.loadHistory(ctx, ownerKey)

	msgID := "msg_" + uuid.New().String()[:8]
	s.appendHistory(ctx, &domain.HistoryMessage{
		MessageID: msgID,
		OwnerKey:  ownerKey,
		SessionID: req.SessionID,
		UserID:    userID,
		Role:      domain.RoleUser,
		Content:   message,
		CreatedAt: now,
	})

	greeting := assembler.IsGreeting(message)
	s.recordEvent(ctx, runID, domain.EventTypeUserInput, domain.UserInputPayload{
		MessageID: msgID,
		Content:   message,
		Greeting:  greeting,
	})

	system := systemPrompt
	if !greeting {
		bc, err := s.assembler.Build(ctx, userID)
		if err != nil {
			// Context is an enrichment; a degraded prompt beats a failed turn.
			log.Warn().Err(err).Str("user_id", userID).Msg("context assembly failed")
		} else {
			system = systemPrompt + "\n\nCurrent business snapshot:\n" + assembler.Render(bc)
			s.recordEvent(ctx, runID, domain.EventTypeContextBuilt, map[string]any{
				"deadlines":    len(bc.PendingDeadlines),
				"transactions": len(bc.ActiveTransactions),
				"clients":      len(bc.RecentClients),
			})
		}
	}

	record := func(eventType domain.EventType, payload any) {
		s.recordEvent(ctx, runID, eventType, payload)
	}
	executor := tools.NewExecutor(s.registry, s.policyEngine)
	executor.OnEvent(record)
	orch := orchestrator.New(s.adapter, executor, s.config.MaxTurns)
	orch.OnEvent(record)

	toolCtx := tools.WithUser(ctx, userID)
	result, err := orch.Run(toolCtx, system, history, message, s.registry.Definitions())
	if err != nil {
		if domain.IsGuardrailError(err) {
			// The orchestrator already emitted run_failed through the
			// event callback.
			s.failRun(ctx, runID, "guardrail_exceeded", err.Error())
			return &ChatResult{Response: result.Text, RunID: runID, Turns: result.Turns}, err
		}
		s.recordEvent(ctx, runID, domain.EventTypeRunFailed, domain.RunFailedPayload{
			Code:    "provider_error",
			Message: err.Error(),
		})
		s.failRun(ctx, runID, "provider_error", err.Error())
		return nil, err
	}

	s.appendHistory(ctx, &domain.HistoryMessage{
		MessageID: "msg_" + uuid.New().String()[:8],
		OwnerKey:  ownerKey,
		SessionID: req.SessionID,
		UserID:    userID,
		Role:      domain.RoleAssistant,
		Content:   result.Text,
		CreatedAt: time.Now().UTC(),
	})

	s.recordEvent(ctx, runID, domain.EventTypeRunDone, domain.RunDonePayload{
		Response: result.Text,
		Turns:    result.Turns,
	})
	if err := s.store.UpdateRunCompleted(ctx, runID, domain.RunStatusDone, nil); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to mark run done")
	}

	return &ChatResult{Response: result.Text, RunID: runID, Turns: result.Turns}, nil
}

// historyOwnerKey selects the history scoping strategy. User scope uses
// a rolling window of the user's global history; session scope keys by
// the ephemeral session identifier and falls back to the user when the
// request carries no session.
func (s *Service) historyOwnerKey(userID, sessionID string) string {
	if s.config.HistoryScope == domain.HistoryScopeSession && sessionID != "" {
		return "sess:" + sessionID
	}
	return "user:" + userID
}

func (s *Service) loadHistory(ctx context.Context, ownerKey string) []domain.Message {
	stored, err := s.store.RecentHistory(ctx, ownerKey, s.config.HistoryLimit)
	if err != nil {
		log.Warn().Err(err).Str("owner_key", ownerKey).Msg("failed to load history")
		return nil
	}
	history := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		history = append(history, domain.Message{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}
	return history
}

func (s *Service) appendHistory(ctx context.Context, msg *domain.HistoryMessage) {
	// Durable append failure is a known durability gap: the turn keeps
	// its in-flight message list, so the response still completes.
	if err := s.store.AppendHistory(ctx, msg); err != nil {
		log.Warn().Err(err).Str("owner_key", msg.OwnerKey).Str("role", string(msg.Role)).
			Msg("history append failed, continuing without durability")
	}
}

func (s *Service) failRun(ctx context.Context, runID, code, message string) {
	errData, _ := json.Marshal(map[string]string{"code": code, "message": message})
	if err := s.store.UpdateRunCompleted(ctx, runID, domain.RunStatusFailed, errData); err != nil {
		log.Error().Err(err).Str("run_id", runID).Msg("failed to mark run failed")
	}
}
