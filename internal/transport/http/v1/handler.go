// Package v1 provides the external HTTP API for the assistant.
package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openhouse-crm/assistant/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation API
	e.POST("/v1/chat", h.Chat)

	// Audit API
	e.GET("/v1/runs/:run_id/events", h.GetRunEvents)

	// CRM read API
	e.GET("/v1/users/:user_id/clients", h.ListClients)
	e.GET("/v1/users/:user_id/transactions", h.ListTransactions)
	e.GET("/v1/users/:user_id/deadlines", h.ListDeadlines)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}
