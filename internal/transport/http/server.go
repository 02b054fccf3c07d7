// Package http provides the HTTP server of the sauna backend.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/config"
	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/service"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
	v1 "github.com/KaanK026/Harvia/internal/transport/http/v1"
	"github.com/KaanK026/Harvia/internal/transport/ws"
)

// NewServer creates and configures the HTTP server.
func NewServer(svc *service.Service, cfg *config.Config, auth middleware.AuthConfig, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(log)

	// Middleware
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
		ExposeHeaders:    []string{v1.HeaderSessionID},
		AllowCredentials: !containsWildcard(cfg.CORSOrigins),
	}))
	e.Use(middleware.Auth(auth))

	// Handlers
	v1Handler := v1.NewHandler(svc, cfg.StreamHeartbeatInterval, cfg.MaxImageBytes, log)
	wsServer := ws.NewServer(svc, ws.DefaultConfig(), log)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// errorHandler renders router and middleware errors in the common error body.
func errorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		message := "Internal server error"
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(status)
			}
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}

		kind := domain.KindInternal
		switch status {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			kind = domain.KindNotFound
		case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
			kind = domain.KindValidation
		case http.StatusUnauthorized, http.StatusForbidden:
			kind = domain.KindUnauthorized
		case http.StatusServiceUnavailable:
			kind = domain.KindUnavailable
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, domain.ErrorResponse{Code: kind, Error: message})
		}
		if err != nil {
			log.Error("failed to write error response", zap.Error(err))
		}
	}
}
