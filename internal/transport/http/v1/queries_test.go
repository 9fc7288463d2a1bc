package v1

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhouse-crm/assistant/internal/domain"
	"github.com/openhouse-crm/assistant/internal/provider"
)

func TestGetRunEventsNotFound(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockAdapter())

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_missing/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues("run_missing")

	require.NoError(t, h.GetRunEvents(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRunEventsReturnsTrail(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t, provider.NewMockAdapter())
	ctx := context.Background()

	require.NoError(t, db.CreateRun(ctx, &domain.Run{
		RunID:     "run_1",
		UserID:    "u1",
		Status:    domain.RunStatusDone,
		StartedAt: time.Now().UTC(),
	}))
	require.NoError(t, db.AppendEvent(ctx, &domain.Event{
		EventID: "ev_1",
		RunID:   "run_1",
		Ts:      time.Now().UnixMilli(),
		Type:    domain.EventTypeRunStarted,
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/runs/run_1/events", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("run_id")
	c.SetParamValues("run_1")

	require.NoError(t, h.GetRunEvents(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Run    domain.Run     `json:"run"`
		Events []domain.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run_1", resp.Run.RunID)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, domain.EventTypeRunStarted, resp.Events[0].Type)
}

func TestListClients(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t, provider.NewMockAdapter())
	ctx := context.Background()

	_, _, err := db.FindOrCreateClient(ctx, "u1", "Jane Doe", domain.LeadStatusWarm)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/clients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues("u1")

	require.NoError(t, h.ListClients(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Clients []domain.Client `json:"clients"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Clients, 1)
	assert.Equal(t, "Jane Doe", resp.Clients[0].Name)
}

func TestListDeadlinesHonorsLimit(t *testing.T) {
	e := echo.New()
	h, db := newTestHandler(t, provider.NewMockAdapter())
	ctx := context.Background()

	client, _, err := db.FindOrCreateClient(ctx, "u1", "Jane Doe", domain.LeadStatusWarm)
	require.NoError(t, err)
	require.NoError(t, db.CreateTransaction(ctx, &domain.Transaction{
		TransactionID: "tx_1",
		UserID:        "u1",
		ClientID:      client.ClientID,
		Address:       "12 Oak St",
		Status:        domain.TransactionStatusActive,
		ContractDate:  time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		ClosingDate:   time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt:     time.Now().UTC(),
	}))
	for i, title := range []string{"Home Inspection", "Appraisal", "Closing Day"} {
		require.NoError(t, db.CreateDeadline(ctx, &domain.Deadline{
			DeadlineID:    "dl_" + title[:2],
			TransactionID: "tx_1",
			UserID:        "u1",
			Title:         title,
			DueDate:       time.Date(2025, 7, 1+i, 0, 0, 0, 0, time.UTC),
		}))
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/users/u1/deadlines?limit=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("user_id")
	c.SetParamValues("u1")

	require.NoError(t, h.ListDeadlines(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Deadlines []domain.Deadline `json:"deadlines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Deadlines, 2)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	h, _ := newTestHandler(t, provider.NewMockAdapter())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
