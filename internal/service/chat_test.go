package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhouse-crm/assistant/config"
	"github.com/openhouse-crm/assistant/internal/assembler"
	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/notify"
	"github.com/openhouse-crm/assistant/internal/provider"
	"github.com/openhouse-crm/assistant/internal/store"
	"github.com/openhouse-crm/assistant/internal/tools"
	"github.com/openhouse-crm/assistant/policy"
	"github.com/openhouse-crm/assistant/tests/helpers"
)

// spyStore counts context-assembly reads so tests can verify the
// greeting short-circuit.
type spyStore struct {
	store.Store
	deadlineReads int
}

func (s *spyStore) ListPendingDeadlines(ctx context.Context, userID string, limit int) ([]domain.Deadline, error) {
	s.deadlineReads++
	return s.Store.ListPendingDeadlines(ctx, userID, limit)
}

func testConfig() *config.Config {
	return &config.Config{
		MaxTurns:     5,
		HistoryScope: domain.HistoryScopeUser,
		HistoryLimit: 50,
		ChatTimeout:  time.Minute,
	}
}

func newTestService(t *testing.T, db store.Store, adapter provider.Adapter) *Service {
	t.Helper()

	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	registry := tools.NewRegistry()
	tools.NewCRMHandlers(db, notify.NewClient("")).RegisterAll(registry)

	return New(db, adapter, assembler.New(db), registry, policyEngine, testConfig())
}

func TestChatValidatesRequest(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	svc := newTestService(t, db, provider.NewMockAdapter())

	_, err := svc.Chat(context.Background(), domain.ChatRequest{Message: "hello"})
	assert.True(t, domain.IsValidationError(err))

	_, err = svc.Chat(context.Background(), domain.ChatRequest{UserID: "u1", Message: "   "})
	assert.True(t, domain.IsValidationError(err))
}

func TestChatGreetingSkipsContextAssembly(t *testing.T) {
	spy := &spyStore{Store: helpers.NewTestSQLiteStore(t)}
	svc := newTestService(t, spy, provider.NewMockAdapter(&provider.Response{Text: "Hi! How can I help?"}))

	result, err := svc.Chat(context.Background(), domain.ChatRequest{UserID: "u1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", result.Response)
	assert.Zero(t, spy.deadlineReads)

	// A real question does pull the business snapshot.
	_, err = svc.Chat(context.Background(), domain.ChatRequest{UserID: "u1", Message: "what deadlines are coming up?"})
	require.NoError(t, err)
	assert.Equal(t, 1, spy.deadlineReads)
}

func TestChatEndToEndWithToolCall(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	adapter := provider.NewMockAdapter(
		&provider.Response{ToolCalls: []domain.ToolCall{
			{ID: "call_1", Name: "add_client", Arguments: map[string]any{"name": "Jane Doe", "status": "hot"}},
		}},
		&provider.Response{Text: "Jane Doe is now tracked as a hot lead."},
	)
	svc := newTestService(t, db, adapter)

	ctx := context.Background()
	result, err := svc.Chat(ctx, domain.ChatRequest{UserID: "u1", Message: "add jane doe as a hot lead"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe is now tracked as a hot lead.", result.Response)
	assert.Equal(t, 2, result.Turns)
	assert.NotEmpty(t, result.RunID)

	// The tool call landed in the store.
	client, err := db.FindClientByName(ctx, "u1", "Jane Doe")
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, domain.LeadStatusHot, client.Status)

	// The run completed and carries a full audit trail.
	run, err := db.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusDone, run.Status)

	events, err := db.ListRunEvents(ctx, result.RunID, 100)
	require.NoError(t, err)
	seen := map[domain.EventType]bool{}
	for _, ev := range events {
		seen[ev.Type] = true
	}
	for _, typ := range []domain.EventType{
		domain.EventTypeRunStarted,
		domain.EventTypeUserInput,
		domain.EventTypeProviderCallStarted,
		domain.EventTypeProviderCallDone,
		domain.EventTypeToolCallStarted,
		domain.EventTypePolicyDecision,
		domain.EventTypeToolResult,
		domain.EventTypeRunDone,
	} {
		assert.True(t, seen[typ], "missing event %s", typ)
	}
}

func TestChatAppendsHistoryInOrder(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	adapter := provider.NewMockAdapter(
		&provider.Response{Text: "first answer"},
		&provider.Response{Text: "second answer"},
	)
	svc := newTestService(t, db, adapter)

	ctx := context.Background()
	_, err := svc.Chat(ctx, domain.ChatRequest{UserID: "u1", Message: "first question"})
	require.NoError(t, err)
	_, err = svc.Chat(ctx, domain.ChatRequest{UserID: "u1", Message: "second question"})
	require.NoError(t, err)

	history, err := db.RecentHistory(ctx, "user:u1", 50)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "first question", history[0].Content)
	assert.Equal(t, "first answer", history[1].Content)
	assert.Equal(t, "second question", history[2].Content)
	assert.Equal(t, "second answer", history[3].Content)

	// The second turn saw the first exchange in its prompt.
	calls := adapter.Calls()
	require.Len(t, calls, 2)
	var contents []string
	for _, m := range calls[1] {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, "first question")
	assert.Contains(t, contents, "first answer")
}

func TestChatProviderFailureMarksRunFailed(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	adapter := provider.NewMockAdapter().FailWith(errors.New("upstream 500"))
	svc := newTestService(t, db, adapter)

	_, err := svc.Chat(context.Background(), domain.ChatRequest{UserID: "u1", Message: "do something"})
	require.Error(t, err)
	assert.True(t, domain.IsProviderError(err))
}

func TestChatGuardrailReturnsFallback(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	// Always asking for another tool call never converges.
	adapter := provider.NewMockAdapter(&provider.Response{ToolCalls: []domain.ToolCall{
		{ID: "call_x", Name: "list_deadlines", Arguments: map[string]any{}},
	}})
	svc := newTestService(t, db, adapter)

	ctx := context.Background()
	result, err := svc.Chat(ctx, domain.ChatRequest{UserID: "u1", Message: "loop forever"})
	require.Error(t, err)
	assert.True(t, domain.IsGuardrailError(err))
	require.NotNil(t, result)
	assert.Contains(t, result.Response, "wasn't able to complete")

	run, err := db.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusFailed, run.Status)
}

func TestHistoryOwnerKeyScoping(t *testing.T) {
	db := helpers.NewTestSQLiteStore(t)
	svc := newTestService(t, db, provider.NewMockAdapter())

	assert.Equal(t, "user:u1", svc.historyOwnerKey("u1", "s1"))

	svc.config.HistoryScope = domain.HistoryScopeSession
	assert.Equal(t, "sess:s1", svc.historyOwnerKey("u1", "s1"))
	assert.Equal(t, "user:u1", svc.historyOwnerKey("u1", ""))
}
