package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/KaanK026/Harvia/internal/domain"
)

// ClearSession removes a session and its history.
// POST /clear-session
func (h *Handler) ClearSession(c echo.Context) error {
	var req domain.ClearSessionRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"), "")
	}

	resp, err := h.service.ClearSession(c.Request().Context(), req.SessionID)
	if err != nil {
		return h.fail(c, err, req.SessionID)
	}
	return c.JSON(http.StatusOK, resp)
}

// SessionHistory returns the messages of a session.
// GET /session/:session_id/history
func (h *Handler) SessionHistory(c echo.Context) error {
	sessionID := c.Param("session_id")

	resp, err := h.service.History(c.Request().Context(), sessionID)
	if err != nil {
		return h.fail(c, err, sessionID)
	}
	return c.JSON(http.StatusOK, resp)
}
