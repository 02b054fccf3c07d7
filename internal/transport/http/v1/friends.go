package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Friends lists the friends of the caller.
// GET /friends
func (h *Handler) Friends(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"friends": h.service.Friends(),
	})
}
