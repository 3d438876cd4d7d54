package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scoutdesk/scoutdesk/internal/observability"
	"github.com/scoutdesk/scoutdesk/internal/rbac"
	"github.com/scoutdesk/scoutdesk/internal/shared"
)

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	matrix, err := rbac.DefaultMatrix()
	require.NoError(t, err)
	mw := rbac.Middleware{Matrix: matrix}
	cfg := &Config{AppEnv: "test", RateLimitPerMinute: 100, AppRequestTimeout: time.Second}
	return NewRouter(RouterParams{
		Logger:             NewLogger(cfg),
		Config:             cfg,
		SessionManager:     shared.NewSessionManager(client, "scoutdesk_session", "secret", time.Hour, false),
		RBACMiddleware:     mw,
		PermissionsHandler: rbac.NewPermissionsHandler(matrix, mw),
		Metrics:            observability.NewMetrics(),
		HealthChecks:       checks,
	}), mr
}

func TestHealthz(t *testing.T) {
	router, _ := newTestRouter(t, map[string]HealthCheck{
		"postgres": func(context.Context) error { return nil },
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])
}

func TestHealthzDegraded(t *testing.T) {
	router, _ := newTestRouter(t, map[string]HealthCheck{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPermissionsRequireSession(t *testing.T) {
	router, mr := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/me/permissions", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))

	require.NoError(t, mr.Set("session:abc", `{"user_id":"6","role":"manager"}`))
	req := httptest.NewRequest(http.MethodGet, "/me/permissions", nil)
	req.AddCookie(&http.Cookie{Name: "scoutdesk_session", Value: "abc"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"role":"manager"`)
}

func TestUnknownRouteIsProblem(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}
