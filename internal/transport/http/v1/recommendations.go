package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
)

// GetRecommendations reads the features from query parameters. Goals may be
// repeated (?goals=a&goals=b) or comma separated.
// GET /recommendations
func (h *Handler) GetRecommendations(c echo.Context) error {
	req, err := parseRecommendationQuery(c)
	if err != nil {
		return h.fail(c, err, "")
	}
	return h.recommend(c, req)
}

// PostRecommendations reads the features from a JSON body.
// POST /recommendations
func (h *Handler) PostRecommendations(c echo.Context) error {
	var req domain.RecommendationRequest
	if err := c.Bind(&req); err != nil {
		return h.fail(c, domain.Invalid("invalid request body"), "")
	}
	return h.recommend(c, req)
}

func (h *Handler) recommend(c echo.Context, req domain.RecommendationRequest) error {
	resp, err := h.service.Recommend(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return h.fail(c, err, "")
	}
	return c.JSON(http.StatusOK, resp)
}

func parseRecommendationQuery(c echo.Context) (domain.RecommendationRequest, error) {
	var req domain.RecommendationRequest
	q := c.QueryParams()

	if v := q.Get("age"); v != "" {
		age, err := strconv.Atoi(v)
		if err != nil {
			return req, domain.Invalid(fmt.Sprintf("age must be an integer, got %q", v))
		}
		req.Age = &age
	}
	if v := q.Get("gender"); v != "" {
		req.Gender = &v
	}
	for _, field := range []struct {
		name string
		dst  **float64
	}{
		{"height", &req.Height},
		{"weight", &req.Weight},
	} {
		v := q.Get(field.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return req, domain.Invalid(fmt.Sprintf("%s must be a number, got %q", field.name, v))
		}
		*field.dst = &f
	}
	for _, raw := range q["goals"] {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				req.Goals = append(req.Goals, g)
			}
		}
	}
	return req, nil
}
