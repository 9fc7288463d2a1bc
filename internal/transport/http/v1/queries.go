package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

const defaultListLimit = 20

// GetRunEvents retrieves the audit trail for a run.
// GET /v1/runs/:run_id/events
func (h *Handler) GetRunEvents(c echo.Context) error {
	ctx := c.Request().Context()
	runID := c.Param("run_id")

	run, events, err := h.service.GetRunEvents(ctx, runID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"run":    run,
		"events": events,
	})
}

// ListClients lists a user's most recently added clients.
// GET /v1/users/:user_id/clients
func (h *Handler) ListClients(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user_id")

	clients, err := h.service.ListClients(ctx, userID, listLimit(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"clients": clients,
	})
}

// ListTransactions lists a user's active transactions.
// GET /v1/users/:user_id/transactions
func (h *Handler) ListTransactions(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user_id")

	transactions, err := h.service.ListTransactions(ctx, userID, listLimit(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"transactions": transactions,
	})
}

// ListDeadlines lists a user's pending deadlines ordered by due date.
// GET /v1/users/:user_id/deadlines
func (h *Handler) ListDeadlines(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user_id")

	deadlines, err := h.service.ListDeadlines(ctx, userID, listLimit(c))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"deadlines": deadlines,
	})
}

func listLimit(c echo.Context) int {
	limit := defaultListLimit
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil && val > 0 {
			limit = val
		}
	}
	return limit
}
