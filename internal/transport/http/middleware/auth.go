// Package middleware holds the echo middleware of the HTTP server.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/adapter/identity"
	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/policy"
)

// UserIDKey is the echo context key holding the verified uid.
const UserIDKey = "uid"

const msgUnauthorized = "Missing or invalid authorization header"

// AuthConfig configures Auth.
type AuthConfig struct {
	// Verifier checks bearer tokens. When nil every request runs as AnonymousUID.
	Verifier     identity.Verifier
	Policy       *policy.Engine
	AnonymousUID string
	Log          *zap.Logger
}

// Auth verifies the bearer token, stores the uid in the context and asks the
// access policy whether the request may proceed.
func Auth(cfg AuthConfig) echo.MiddlewareFunc {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			uid := ""
			if cfg.Verifier == nil {
				uid = cfg.AnonymousUID
			} else if token := bearerToken(req.Header.Get(echo.HeaderAuthorization)); token != "" {
				verified, err := cfg.Verifier.Verify(req.Context(), token)
				if err != nil {
					log.Debug("token rejected", zap.String("path", req.URL.Path), zap.Error(err))
				} else {
					uid = verified
				}
			}

			decision, reason, err := cfg.Policy.Evaluate(req.Context(), policy.Input{
				Method: req.Method,
				Path:   req.URL.Path,
				UID:    uid,
			})
			if err != nil {
				log.Error("policy evaluation failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, domain.ErrorBody(err, ""))
			}
			if decision != policy.DecisionAllow {
				if reason == "" {
					reason = msgUnauthorized
				}
				return c.JSON(http.StatusUnauthorized, domain.ErrorBody(domain.Unauthorized(reason), ""))
			}

			if uid != "" {
				c.Set(UserIDKey, uid)
			}
			return next(c)
		}
	}
}

// UserID returns the uid stored by Auth, or "" for public routes.
func UserID(c echo.Context) string {
	uid, _ := c.Get(UserIDKey).(string)
	return uid
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
