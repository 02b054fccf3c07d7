package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KaanK026/Harvia/internal/adapter/identity"
	"github.com/KaanK026/Harvia/internal/config"
	"github.com/KaanK026/Harvia/internal/domain"
	"github.com/KaanK026/Harvia/internal/policy"
	"github.com/KaanK026/Harvia/internal/service"
	"github.com/KaanK026/Harvia/internal/transport/http/middleware"
	"github.com/KaanK026/Harvia/tests/helpers"
)

func newTestServer(t *testing.T) (*httptest.Server, *identity.HMACVerifier) {
	t.Helper()
	cfg := &config.Config{
		CORSOrigins:       []string{"*"},
		QuestionMaxLength: 2000,
		StreamIdleTimeout: time.Second,
	}
	engine, err := policy.NewEngine(context.Background(), "")
	require.NoError(t, err)
	verifier := identity.NewHMACVerifier("secret", "")

	svc := service.New(service.Deps{Store: helpers.NewTestSQLiteStore(t), Engine: &helpers.StubEngine{}}, cfg, zap.NewNop())
	e := NewServer(svc, cfg, middleware.AuthConfig{Verifier: verifier, Policy: engine}, zap.NewNop())

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv, verifier
}

func TestServerAskRequiresAuth(t *testing.T) {
	srv, verifier := newTestServer(t)

	resp, err := http.Post(srv.URL+"/ask", "application/json", strings.NewReader(`{"question":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := verifier.Issue("u1", time.Minute)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/ask", strings.NewReader(`{"question":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Session-Id"))
}

func TestServerPublicRoutes(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/health", "/metrics"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestServerUnknownRoute(t *testing.T) {
	srv, verifier := newTestServer(t)
	token, err := verifier.Issue("u1", time.Minute)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/nope", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body domain.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, domain.KindNotFound, body.Code)
}
