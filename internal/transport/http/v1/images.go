package v1

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
)

// UploadImage stores the multipart "file" field as a session image.
// POST /sessions/:session_id/images
func (h *Handler) UploadImage(c echo.Context) error {
	sessionID := c.Param("session_id")

	fh, err := c.FormFile("file")
	if err != nil {
		return h.fail(c, domain.Invalid("multipart field \"file\" is required"), sessionID)
	}
	f, err := fh.Open()
	if err != nil {
		return h.fail(c, domain.Internal("Error uploading image", err), sessionID)
	}
	defer f.Close()

	// Read one byte past the limit so oversized uploads are detected.
	var r io.Reader = f
	if h.maxUpload > 0 {
		r = io.LimitReader(f, h.maxUpload+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return h.fail(c, domain.Internal("Error uploading image", err), sessionID)
	}

	resp, err := h.service.UploadSessionImage(c.Request().Context(), middleware.UserID(c), sessionID, filepath.Base(fh.Filename), data)
	if err != nil {
		return h.fail(c, err, sessionID)
	}
	return c.JSON(http.StatusCreated, resp)
}

// DownloadImage returns a stored session image.
// GET /sessions/:session_id/images/:filename
func (h *Handler) DownloadImage(c echo.Context) error {
	sessionID := c.Param("session_id")

	obj, err := h.service.SessionImage(c.Request().Context(), middleware.UserID(c), sessionID, c.Param("filename"))
	if err != nil {
		return h.fail(c, err, sessionID)
	}
	return c.Blob(http.StatusOK, obj.ContentType, obj.Data)
}
