package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openhouse-crm/assistant/internal/domain"
)

// Chat handles one conversational turn.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, domain.ChatResponse{
			Success: false,
			Error:   "invalid request body",
		})
	}

	result, err := h.service.Chat(ctx, req)
	if err != nil {
		switch {
		case domain.IsValidationError(err):
			return c.JSON(http.StatusBadRequest, domain.ChatResponse{
				Success: false,
				Error:   err.Error(),
			})
		case domain.IsGuardrailError(err):
			// The run was stopped by the turn limit; the result still
			// carries the fallback text for the caller to surface.
			resp := domain.ChatResponse{
				Success: false,
				Error:   err.Error(),
			}
			if result != nil {
				resp.Response = result.Response
				resp.RunID = result.RunID
			}
			return c.JSON(http.StatusInternalServerError, resp)
		case domain.IsProviderError(err):
			return c.JSON(http.StatusBadGateway, domain.ChatResponse{
				Success: false,
				Error:   err.Error(),
			})
		default:
			return c.JSON(http.StatusInternalServerError, domain.ChatResponse{
				Success: false,
				Error:   err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{
		Success:  true,
		Response: result.Response,
		RunID:    result.RunID,
	})
}
