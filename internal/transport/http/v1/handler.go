// Package v1 provides the HTTP handlers of the sauna backend.
package v1

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service   *service.Service
	heartbeat time.Duration
	maxUpload int64
	log       *zap.Logger
}

// NewHandler creates a new handler. A zero heartbeat disables SSE pings.
func NewHandler(svc *service.Service, heartbeat time.Duration, maxUpload int64, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		service:   svc,
		heartbeat: heartbeat,
		maxUpload: maxUpload,
		log:       log.Named("http"),
	}
}

// RegisterRoutes registers the routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)

	// Chat
	e.POST("/ask", h.Ask)
	e.POST("/ask-stream", h.AskStream)
	e.POST("/clear-session", h.ClearSession)
	e.GET("/session/:session_id/history", h.SessionHistory)

	// Session images
	e.POST("/sessions/:session_id/images", h.UploadImage)
	e.GET("/sessions/:session_id/images/:filename", h.DownloadImage)

	// Sauna
	e.GET("/recommendations", h.GetRecommendations)
	e.POST("/recommendations", h.PostRecommendations)
	e.GET("/friends", h.Friends)
}

// Root returns a banner.
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Harvia sauna backend is running",
	})
}

// Health reports readiness of the chat engine.
func (h *Handler) Health(c echo.Context) error {
	if !h.service.Ready() {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":       "initializing",
			"engine_ready": false,
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "healthy",
		"engine_ready": true,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as an error body. Internal errors are logged with their cause.
func (h *Handler) fail(c echo.Context, err error, sessionID string) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		h.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(StatusFor(kind), domain.ErrorBody(err, sessionID))
}
