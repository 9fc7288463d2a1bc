package provider

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// MockAdapter replays a scripted sequence of responses. Used in tests
// and when the service runs in mock mode without provider credentials.
type MockAdapter struct {
	mu        sync.Mutex
	responses []*Response
	err       error
	calls     [][]domain.Message
}

// NewMockAdapter creates a mock that replays the given responses in
// order. Once exhausted it keeps returning the last response.
func NewMockAdapter(responses ...*Response) *MockAdapter {
	if len(responses) == 0 {
		responses = []*Response{{Text: "This is a mock response."}}
	}
	return &MockAdapter{responses: responses}
}

// FailWith makes every subsequent Send return a provider error.
func (m *MockAdapter) FailWith(err error) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MockAdapter) Name() string { return "mock" }

// Send pops the next scripted response.
func (m *MockAdapter) Send(ctx context.Context, messages []domain.Message, tools []domain.ToolDefinition) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, providerErr(m.Name(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make([]domain.Message, len(messages))
	copy(snapshot, messages)
	m.calls = append(m.calls, snapshot)

	if m.err != nil {
		return nil, providerErr(m.Name(), m.err)
	}
	if len(m.responses) == 0 {
		return nil, providerErr(m.Name(), errors.New("mock has no scripted responses"))
	}

	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// Calls returns the message lists observed by each Send invocation.
func (m *MockAdapter) Calls() [][]domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
